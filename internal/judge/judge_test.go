package judge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/llm"
)

type fakeCompleter struct {
	lastPrompt string
	text       string
	err        error
}

func (f *fakeCompleter) Call(ctx context.Context, providerID, model, prompt string) (*llm.Completion, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Completion{Text: f.text}, nil
}

func candidates() []domain.ModelOutcome {
	return []domain.ModelOutcome{
		{
			Provider: "groq",
			Model:    "llama3-8b-8192",
			Response: "Go is a compiled language.",
			Metrics:  &domain.UsageMetrics{CoherenceScore: 0.5, RelevanceScore: 0.5, QualityScore: 0.5},
		},
		{
			Provider: "ollama",
			Model:    "mistral",
			Response: "Go was designed at Google.",
			Metrics:  &domain.UsageMetrics{CoherenceScore: 0.6, RelevanceScore: 0.6, QualityScore: 0.6},
		},
	}
}

func TestRescoreAppliesScores(t *testing.T) {
	completer := &fakeCompleter{
		// Prose around the JSON must be tolerated.
		text: `Here are my scores:
{"scores": [{"coherence": 0.9, "relevance": 0.8, "quality": 0.85}, {"coherence": 0.7, "relevance": 1.5, "quality": -0.2}]}
Hope that helps!`,
	}
	j := New(completer, "ollama", "llama3")

	outcomes := candidates()
	rescored, err := j.Rescore(context.Background(), "What is Go?", outcomes)
	require.NoError(t, err)
	require.Len(t, rescored, 2)

	require.Equal(t, 0.9, rescored[0].Metrics.CoherenceScore)
	require.Equal(t, 0.8, rescored[0].Metrics.RelevanceScore)
	require.Equal(t, 0.85, rescored[0].Metrics.QualityScore)

	// Out-of-range scores are clamped into [0, 1].
	require.Equal(t, 1.0, rescored[1].Metrics.RelevanceScore)
	require.Equal(t, 0.0, rescored[1].Metrics.QualityScore)

	// Inputs stay untouched.
	require.Equal(t, 0.5, outcomes[0].Metrics.QualityScore)
}

func TestRescoreCompleterFailure(t *testing.T) {
	j := New(&fakeCompleter{err: errors.New("connection refused")}, "ollama", "llama3")

	_, err := j.Rescore(context.Background(), "What is Go?", candidates())
	require.Error(t, err)
}

func TestRescoreRejectsMalformedOutput(t *testing.T) {
	j := New(&fakeCompleter{text: "I cannot score these responses."}, "ollama", "llama3")

	_, err := j.Rescore(context.Background(), "What is Go?", candidates())
	require.Error(t, err)
}

func TestRescoreRejectsCountMismatch(t *testing.T) {
	j := New(&fakeCompleter{
		text: `{"scores": [{"coherence": 0.9, "relevance": 0.8, "quality": 0.85}]}`,
	}, "ollama", "llama3")

	_, err := j.Rescore(context.Background(), "What is Go?", candidates())
	require.Error(t, err)
}

func TestRescoreEmptyInputSkipsCall(t *testing.T) {
	completer := &fakeCompleter{text: "unused"}
	j := New(completer, "ollama", "llama3")

	rescored, err := j.Rescore(context.Background(), "What is Go?", nil)
	require.NoError(t, err)
	require.Empty(t, rescored)
	require.Empty(t, completer.lastPrompt)
}

func TestPromptTruncatesLongResponses(t *testing.T) {
	completer := &fakeCompleter{
		text: `{"scores": [{"coherence": 0.5, "relevance": 0.5, "quality": 0.5}]}`,
	}
	j := New(completer, "ollama", "llama3")

	long := strings.Repeat("x", maxResponseChars+500)
	_, err := j.Rescore(context.Background(), "What is Go?", []domain.ModelOutcome{
		{Provider: "groq", Model: "llama3-8b-8192", Response: long, Metrics: &domain.UsageMetrics{}},
	})
	require.NoError(t, err)

	require.Contains(t, completer.lastPrompt, "[truncated]")
	require.NotContains(t, completer.lastPrompt, long)
}
