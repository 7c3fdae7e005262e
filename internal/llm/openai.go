package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://api.openai.com/v1"
	DefaultModel    = "gpt-4"
	DefaultTimeout  = 30 * time.Second

	codeContextLengthExceeded = "context_length_exceeded"
)

// OpenAI talks to an OpenAI-compatible chat completions endpoint
type OpenAI struct {
	apiKey   string
	endpoint string
	model    string
	http     *http.Client
}

// OpenAIOption configures an OpenAI client
type OpenAIOption func(*OpenAI)

// WithEndpoint overrides the API base URL
func WithEndpoint(endpoint string) OpenAIOption {
	return func(c *OpenAI) { c.endpoint = strings.TrimRight(endpoint, "/") }
}

// WithModel selects the model name sent with each request
func WithModel(model string) OpenAIOption {
	return func(c *OpenAI) { c.model = model }
}

// WithTimeout bounds each HTTP request
func WithTimeout(timeout time.Duration) OpenAIOption {
	return func(c *OpenAI) { c.http.Timeout = timeout }
}

// WithHTTPClient replaces the HTTP client entirely
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(c *OpenAI) { c.http = client }
}

// NewOpenAI creates a client for the given API key
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	c := &OpenAI{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		model:    DefaultModel,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Ask sends the messages and returns the content of the first choice
func (c *OpenAI) Ask(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", Unrecoverable(fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", Unrecoverable(fmt.Errorf("failed to form request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", handleError(resp)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", nil
	}
	return decoded.Choices[0].Message.Content, nil
}

func handleError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	statusErr := &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}

	var decoded errorResponse
	if err := json.Unmarshal(data, &decoded); err == nil && decoded.Error.Message != "" {
		statusErr.Code = decoded.Error.Code
		statusErr.Message = decoded.Error.Message
	}

	if statusErr.Code == codeContextLengthExceeded {
		return Unrecoverable(NewTooManyTokensError(statusErr.Message))
	}

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return Unrecoverable(statusErr)
	default:
		// 429 and 5xx are worth another attempt
		return statusErr
	}
}

// TooManyTokensError means the prompt exceeded the model's context window
type TooManyTokensError struct {
	Message   string
	MaxTokens int // 0 when the provider message could not be parsed
	Tokens    int
}

func (e *TooManyTokensError) Error() string {
	if e.MaxTokens > 0 {
		return fmt.Sprintf("too many tokens: %d requested, model allows %d", e.Tokens, e.MaxTokens)
	}
	return "too many tokens: " + e.Message
}

var (
	maxTokensPattern = regexp.MustCompile(`maximum context length is (\d+) tokens`)
	tokensPattern    = regexp.MustCompile(`resulted in (\d+) tokens`)
)

// NewTooManyTokensError parses the provider message, which reads like
// "This model's maximum context length is 4097 tokens. However, your
// messages resulted in 12007 tokens."
func NewTooManyTokensError(message string) *TooManyTokensError {
	e := &TooManyTokensError{Message: message}
	if m := maxTokensPattern.FindStringSubmatch(message); m != nil {
		e.MaxTokens, _ = strconv.Atoi(m[1])
	}
	if m := tokensPattern.FindStringSubmatch(message); m != nil {
		e.Tokens, _ = strconv.Atoi(m[1])
	}
	return e
}
