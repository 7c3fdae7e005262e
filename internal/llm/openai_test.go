package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIAsk(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"say\":\"hi\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", WithEndpoint(srv.URL+"/v1/"), WithModel("gpt-test"))
	out, err := c.Ask(context.Background(), []Message{
		{Role: RoleSystem, Content: "rules"},
		{Role: RoleUser, Name: "Tom", Content: "hello"},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"say":"hi"}`, out)
	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "Tom", got.Messages[1].Name)
}

func TestOpenAIErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		unrecoverable bool
		tooMany       bool
	}{
		{
			name:          "context length",
			status:        http.StatusBadRequest,
			body:          `{"error":{"code":"context_length_exceeded","message":"This model's maximum context length is 4097 tokens. However, your messages resulted in 12007 tokens. Please reduce the length of the messages."}}`,
			unrecoverable: true,
			tooMany:       true,
		},
		{name: "bad key", status: http.StatusUnauthorized, body: `{"error":{"code":"invalid_api_key","message":"nope"}}`, unrecoverable: true},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":{"code":"rate_limit","message":"slow down"}}`},
		{name: "server error", status: http.StatusBadGateway, body: `upstream down`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOpenAI("k", WithEndpoint(srv.URL)).Ask(context.Background(), nil)
			require.Error(t, err)
			assert.Equal(t, tt.unrecoverable, IsUnrecoverable(err))

			var tooMany *TooManyTokensError
			assert.Equal(t, tt.tooMany, errors.As(err, &tooMany))
			if tt.tooMany {
				assert.Equal(t, 4097, tooMany.MaxTokens)
				assert.Equal(t, 12007, tooMany.Tokens)
			}
		})
	}
}

func TestScripted(t *testing.T) {
	boom := errors.New("boom")
	m := NewScripted("one").Then(Reply{Err: boom})

	out, err := m.Ask(context.Background(), []Message{{Role: RoleUser, Content: "a"}})
	require.NoError(t, err)
	assert.Equal(t, "one", out)

	_, err = m.Ask(context.Background(), nil)
	assert.ErrorIs(t, err, boom)

	_, err = m.Ask(context.Background(), nil)
	assert.ErrorIs(t, err, ErrScriptExhausted)

	assert.Equal(t, 3, m.Calls())
	assert.Equal(t, "a", m.Prompts()[0][0].Content)
}

func TestUnrecoverable(t *testing.T) {
	base := errors.New("base")
	err := Unrecoverable(base)

	assert.ErrorIs(t, err, base)
	assert.True(t, IsUnrecoverable(err))
	assert.False(t, IsUnrecoverable(base))
	assert.Nil(t, Unrecoverable(nil))
}
