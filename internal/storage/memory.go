package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
)

const defaultMemoryCapacity = 100

// MemoryRepo is an in-memory history store, capped at a fixed capacity with
// oldest-first eviction. Used when no database is configured and in tests.
type MemoryRepo struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	items    map[string]*domain.EvaluationResult
}

func NewMemoryRepo() *MemoryRepo {
	return NewMemoryRepoWithCapacity(defaultMemoryCapacity)
}

func NewMemoryRepoWithCapacity(capacity int) *MemoryRepo {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryRepo{
		capacity: capacity,
		items:    make(map[string]*domain.EvaluationResult),
	}
}

func (r *MemoryRepo) Save(ctx context.Context, result *domain.EvaluationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if result.ID == "" {
		result.ID = uuid.New().String()
	}

	if _, exists := r.items[result.ID]; !exists {
		if len(r.order) >= r.capacity {
			oldest := r.order[0]
			r.order = r.order[1:]
			delete(r.items, oldest)
		}
		r.order = append(r.order, result.ID)
	}

	r.items[result.ID] = cloneResult(result)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, limit int) ([]*domain.EvaluationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	results := make([]*domain.EvaluationResult, 0, limit)
	for i := len(r.order) - 1; i >= 0 && len(results) < limit; i-- {
		results = append(results, cloneResult(r.items[r.order[i]]))
	}
	return results, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (*domain.EvaluationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneResult(result), nil
}

// cloneResult deep-copies a result so callers cannot mutate stored state.
func cloneResult(in *domain.EvaluationResult) *domain.EvaluationResult {
	out := *in
	out.Outcomes = make([]domain.ModelOutcome, len(in.Outcomes))
	for i, o := range in.Outcomes {
		out.Outcomes[i] = o
		if o.Metrics != nil {
			m := *o.Metrics
			out.Outcomes[i].Metrics = &m
		}
	}
	return &out
}
