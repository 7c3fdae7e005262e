// Package llm is the boundary to the language model provider. The rest of
// the program only sees the Model interface.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Role of a chat message as understood by chat-completion APIs
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a prompt
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// Model answers a prompt with free text
type Model interface {
	Ask(ctx context.Context, messages []Message) (string, error)
}

// Func adapts a function to the Model interface
type Func func(ctx context.Context, messages []Message) (string, error)

func (f Func) Ask(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

// ErrUnrecoverable marks errors that will not go away by asking again, such
// as a prompt that exceeds the context window or a rejected API key.
var ErrUnrecoverable = errors.New("unrecoverable model error")

type unrecoverableError struct {
	err error
}

func (e *unrecoverableError) Error() string { return e.err.Error() }

func (e *unrecoverableError) Unwrap() []error { return []error{e.err, ErrUnrecoverable} }

// Unrecoverable wraps err so that errors.Is(err, ErrUnrecoverable) holds
func Unrecoverable(err error) error {
	if err == nil {
		return nil
	}
	return &unrecoverableError{err: err}
}

// IsUnrecoverable reports whether retrying err is pointless
func IsUnrecoverable(err error) bool {
	return errors.Is(err, ErrUnrecoverable)
}

// StatusError is a non-2xx response from the provider
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("model API returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("model API returned %d: %s", e.StatusCode, e.Message)
}
