package llm

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T, h http.HandlerFunc) *OpenAIGenerator {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	g := NewOpenAIGenerator(srv.URL, "qwen3-8b", "secret", 5*time.Second)
	g.SetRetryPolicy(RetryPolicy{MaxRetries: 2, Base: time.Millisecond, Max: 5 * time.Millisecond})
	return g
}

func writeChoice(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
	})
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	t.Run("Should send sampling options and return the first choice", func(t *testing.T) {
		var got chatRequest
		g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			writeChoice(w, `{"score": 7, "feedback": "good"}`)
		})

		out, err := g.Generate(t.Context(), "grade this", Options{Temperature: 0.2, MaxTokens: 100, TopP: 0.8})
		require.NoError(t, err)

		assert.Equal(t, `{"score": 7, "feedback": "good"}`, out)
		assert.Equal(t, "qwen3-8b", got.Model)
		assert.InDelta(t, 0.2, got.Temperature, 1e-6)
		assert.InDelta(t, 0.8, got.TopP, 1e-6)
		assert.Equal(t, 100, got.MaxTokens)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, "grade this", got.Messages[0].Content)
	})

	t.Run("Should retry server errors", func(t *testing.T) {
		var calls atomic.Int32
		g := newTestGenerator(t, func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			writeChoice(w, "ok")
		})

		out, err := g.Generate(t.Context(), "p", Options{})
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("Should not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		g := newTestGenerator(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := g.Generate(t.Context(), "p", Options{})
		var genErr *GenerateError
		require.True(t, errors.As(err, &genErr))
		assert.Equal(t, "status 401", genErr.Reason)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("Should give up after the retry budget", func(t *testing.T) {
		var calls atomic.Int32
		g := newTestGenerator(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := g.Generate(t.Context(), "p", Options{})
		assert.Error(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("Should fail on empty content", func(t *testing.T) {
		g := newTestGenerator(t, func(w http.ResponseWriter, _ *http.Request) {
			writeChoice(w, "   ")
		})

		_, err := g.Generate(t.Context(), "p", Options{})
		assert.Error(t, err)
	})

	t.Run("Should fail when there are no choices", func(t *testing.T) {
		g := newTestGenerator(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"choices": []}`))
		})

		_, err := g.Generate(t.Context(), "p", Options{})
		assert.Error(t, err)
	})
}

func TestGenerateError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &GenerateError{Provider: "openai", Reason: "request failed", Wrapped: cause}
	assert.Equal(t, "openai: request failed: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "gemini: empty response", (&GenerateError{Provider: "gemini", Reason: "empty response"}).Error())
}
