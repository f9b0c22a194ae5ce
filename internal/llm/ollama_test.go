package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/config"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
)

func ollamaServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaComplete(t *testing.T) {
	srv := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "llama3", req.Model)
		require.False(t, req.Stream)

		json.NewEncoder(w).Encode(ollamaResponse{
			Model:           "llama3",
			Message:         ollamaMessage{Role: "assistant", Content: "Go is a language."},
			Done:            true,
			PromptEvalCount: 8,
			EvalCount:       5,
		})
	})

	p := NewOllamaProvider(srv.URL)
	res, err := p.Complete(context.Background(), "llama3", "What is Go?")
	require.NoError(t, err)

	require.Equal(t, "Go is a language.", res.Text)
	require.Equal(t, 8, res.InputTokens)
	require.Equal(t, 5, res.OutputTokens)
	require.Greater(t, res.Latency, time.Duration(0))
}

func TestOllamaCompleteRateLimited(t *testing.T) {
	srv := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})

	p := NewOllamaProvider(srv.URL)
	_, err := p.Complete(context.Background(), "llama3", "What is Go?")

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, domain.ErrKindRateLimited, pe.Kind)
}

func TestOllamaCompleteUpstreamError(t *testing.T) {
	srv := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	})

	p := NewOllamaProvider(srv.URL)
	_, err := p.Complete(context.Background(), "llama3", "What is Go?")

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, domain.ErrKindUpstream, pe.Kind)
}

func TestOllamaAvailable(t *testing.T) {
	srv := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	p := NewOllamaProvider(srv.URL)
	require.True(t, p.Available(context.Background()))

	down := NewOllamaProvider("http://127.0.0.1:1")
	require.False(t, down.Available(context.Background()))
}

func TestGatewayCallUnknownProvider(t *testing.T) {
	g, err := NewGateway(&config.ProvidersConfig{OllamaBaseURL: "http://localhost:11434"})
	require.NoError(t, err)

	_, err = g.Call(context.Background(), "nonesuch", "model", "prompt")

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, domain.ErrKindUnknown, pe.Kind)
}

func TestGatewayClassifiesFailures(t *testing.T) {
	srv := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	})

	g := &Gateway{providers: map[string]Provider{}, timeout: time.Second}
	g.Register(NewOllamaProvider(srv.URL))

	_, err := g.Call(context.Background(), "ollama", "llama3", "prompt")

	var pe *domain.ProviderError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, domain.ErrKindRateLimited, pe.Kind)
}
