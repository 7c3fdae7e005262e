package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lox/wordwolf/internal/randutil"
)

// ErrScriptExhausted is returned once a Scripted model has no replies left
var ErrScriptExhausted = errors.New("scripted model has no replies left")

// Reply is one canned answer of a Scripted model
type Reply struct {
	Text string
	Err  error
}

// Scripted replays a fixed sequence of replies and records every prompt it
// receives. It is safe for concurrent use.
type Scripted struct {
	mu      sync.Mutex
	replies []Reply
	prompts [][]Message
}

// NewScripted returns a model that answers with texts in order
func NewScripted(texts ...string) *Scripted {
	s := &Scripted{}
	for _, t := range texts {
		s.replies = append(s.replies, Reply{Text: t})
	}
	return s
}

// Then appends another reply
func (s *Scripted) Then(r Reply) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, r)
	return s
}

func (s *Scripted) Ask(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, messages)
	if len(s.replies) == 0 {
		return "", ErrScriptExhausted
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.Text, r.Err
}

// Calls returns how many prompts the model has received
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// Prompts returns a copy of every prompt received so far
func (s *Scripted) Prompts() [][]Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]Message, len(s.prompts))
	copy(out, s.prompts)
	return out
}

var offlineLines = []string{
	"I'd say it's something most people have at home.",
	"Hmm, mine is pretty common. You see it every day.",
	"I like mine best in the morning.",
	"It can be a bit noisy sometimes, right?",
	"Honestly I'm not sure we're all talking about the same thing.",
	"Who here has actually owned one?",
	"I think of it as small and friendly.",
	"That doesn't quite match what I have in mind.",
}

// Offline is a stand-in model for playing without an API key. It answers
// every prompt with a random canned chat line; vote prompts fail schema
// validation and fall back to a random vote.
type Offline struct {
	mu  sync.Mutex
	src randutil.Source
}

// NewOffline creates an offline model drawing lines from src
func NewOffline(src randutil.Source) *Offline {
	return &Offline{src: src}
}

func (o *Offline) Ask(ctx context.Context, _ []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	o.mu.Lock()
	line := randutil.Pick(o.src, offlineLines)
	o.mu.Unlock()
	return fmt.Sprintf(`{"thoughts": "offline", "say": %q}`, line), nil
}
