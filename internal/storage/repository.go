package storage

import (
	"context"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
)

// Repository is the history store boundary. Save takes ownership of the
// result; Get returns domain.ErrNotFound for unknown ids; List returns
// newest first.
type Repository interface {
	Save(ctx context.Context, result *domain.EvaluationResult) error
	List(ctx context.Context, limit int) ([]*domain.EvaluationResult, error)
	Get(ctx context.Context, id string) (*domain.EvaluationResult, error)
}
