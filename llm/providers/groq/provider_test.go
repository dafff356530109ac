package groq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"souschef/llm"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		DefaultModel: "llama-3.3-70b-versatile",
	}, nil)
}

func TestCompletionSuccess(t *testing.T) {
	var gotAuth string
	var gotBody wireRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "chatcmpl-1",
			"model": "llama-3.3-70b-versatile",
			"choices": []map[string]any{
				{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": `{"Order": 1}`}},
			},
			"usage": map[string]any{"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150},
		})
	})

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You convert recipes."},
			{Role: llm.RoleUser, Content: "Tomato soup."},
		},
		Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "llama-3.3-70b-versatile", gotBody.Model, "default model fills the request")
	assert.Equal(t, `{"Order": 1}`, resp.Text())
	assert.Equal(t, 150, resp.Usage.TotalTokens)
	assert.Equal(t, "groq", resp.Provider)
}

func TestCompletionErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  llm.ErrorCode
		retryable bool
	}{
		{
			name:      "rate limited",
			status:    http.StatusTooManyRequests,
			body:      `{"error": {"message": "rate limit exceeded"}}`,
			wantCode:  llm.ErrRateLimited,
			retryable: true,
		},
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			body:     `{"error": {"message": "invalid api key"}}`,
			wantCode: llm.ErrUnauthorized,
		},
		{
			name:      "server error",
			status:    http.StatusInternalServerError,
			body:      `boom`,
			wantCode:  llm.ErrUpstreamError,
			retryable: true,
		},
		{
			name:     "quota exhausted",
			status:   http.StatusBadRequest,
			body:     `{"error": {"message": "monthly quota reached"}}`,
			wantCode: llm.ErrQuotaExceeded,
		},
		{
			name:     "bad request",
			status:   http.StatusBadRequest,
			body:     `{"error": {"message": "messages must not be empty"}}`,
			wantCode: llm.ErrInvalidRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := p.Completion(context.Background(), &llm.ChatRequest{
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
			})
			require.Error(t, err)
			var pe *llm.Error
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.wantCode, pe.Code)
			assert.Equal(t, tt.retryable, pe.Retryable)
			assert.Equal(t, "groq", pe.Provider)
		})
	}
}

func TestCompletionEmptyContent(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "chatcmpl-2", "model": "m", "choices": []any{},
		})
	})

	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, llm.ErrMalformedOutput, llm.CodeOf(err))
	assert.False(t, llm.IsRetryable(err))
}

func TestCompletionTimeout(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		Timeout:  20 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Equal(t, llm.ErrUpstreamTimeout, llm.CodeOf(err))
	assert.True(t, llm.IsRetryable(err))
}

func TestCompletionNoModel(t *testing.T) {
	p := New(Config{APIKey: "k", BaseURL: "http://127.0.0.1:0"}, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, llm.ErrInvalidRequest, llm.CodeOf(err))
}
