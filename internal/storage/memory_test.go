package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
)

func sampleResult(id string) *domain.EvaluationResult {
	return &domain.EvaluationResult{
		ID:        id,
		Query:     "What is Go?",
		CreatedAt: time.Now().UTC(),
		Outcomes: []domain.ModelOutcome{
			{
				Provider: "groq",
				Model:    "llama3-8b-8192",
				Response: "Go is a compiled language.",
				Metrics:  &domain.UsageMetrics{LatencyMs: 820, QualityScore: 0.8},
			},
		},
		Summary: domain.ComparisonSummary{
			Fastest:           "groq/llama3-8b-8192",
			HighestQuality:    "groq/llama3-8b-8192",
			MostCostEffective: "groq/llama3-8b-8192",
			BestOverall:       "groq/llama3-8b-8192",
		},
	}
}

func TestMemoryRepoRoundTrip(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	want := sampleResult("id-1")
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Get(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestMemoryRepoGetUnknown(t *testing.T) {
	repo := NewMemoryRepo()

	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryRepoListNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(ctx, sampleResult(fmt.Sprintf("id-%d", i))))
	}

	results, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "id-2", results[0].ID)
	require.Equal(t, "id-1", results[1].ID)
}

func TestMemoryRepoEvictsOldest(t *testing.T) {
	repo := NewMemoryRepoWithCapacity(2)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleResult("id-0")))
	require.NoError(t, repo.Save(ctx, sampleResult("id-1")))
	require.NoError(t, repo.Save(ctx, sampleResult("id-2")))

	_, err := repo.Get(ctx, "id-0")
	require.ErrorIs(t, err, domain.ErrNotFound)

	results, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestMemoryRepoReturnsCopies(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleResult("id-1")))

	first, err := repo.Get(ctx, "id-1")
	require.NoError(t, err)
	first.Outcomes[0].Response = "mutated"
	first.Outcomes[0].Metrics.QualityScore = 0

	second, err := repo.Get(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, "Go is a compiled language.", second.Outcomes[0].Response)
	require.Equal(t, 0.8, second.Outcomes[0].Metrics.QualityScore)
}

func TestMemoryRepoAssignsID(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	result := sampleResult("")
	require.NoError(t, repo.Save(ctx, result))
	require.NotEmpty(t, result.ID)

	got, err := repo.Get(ctx, result.ID)
	require.NoError(t, err)
	require.Equal(t, result.ID, got.ID)
}
