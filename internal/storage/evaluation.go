package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
)

// EvaluationRepo persists completed evaluation results in PostgreSQL.
// Outcomes are stored as a JSONB document on the evaluation row; the four
// summary ranks get their own columns for cheap listing.
type EvaluationRepo struct {
	db *PostgresDB
}

func NewEvaluationRepo(db *PostgresDB) *EvaluationRepo {
	return &EvaluationRepo{db: db}
}

func (r *EvaluationRepo) Save(ctx context.Context, result *domain.EvaluationResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}

	outcomesJSON, err := json.Marshal(result.Outcomes)
	if err != nil {
		return fmt.Errorf("marshal outcomes: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO evaluations (
			id, query, created_at, outcomes,
			fastest, highest_quality, most_cost_effective, best_overall
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, result.ID, result.Query, result.CreatedAt, outcomesJSON,
		result.Summary.Fastest, result.Summary.HighestQuality,
		result.Summary.MostCostEffective, result.Summary.BestOverall)

	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	return nil
}

func (r *EvaluationRepo) List(ctx context.Context, limit int) ([]*domain.EvaluationResult, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, query, created_at, outcomes,
			fastest, highest_quality, most_cost_effective, best_overall
		FROM evaluations
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var results []*domain.EvaluationResult
	for rows.Next() {
		result, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

func (r *EvaluationRepo) Get(ctx context.Context, id string) (*domain.EvaluationResult, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, query, created_at, outcomes,
			fastest, highest_quality, most_cost_effective, best_overall
		FROM evaluations
		WHERE id = $1
	`, id)

	result, err := scanEvaluation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return result, nil
}

func scanEvaluation(row pgx.Row) (*domain.EvaluationResult, error) {
	var result domain.EvaluationResult
	var outcomesJSON []byte

	if err := row.Scan(
		&result.ID, &result.Query, &result.CreatedAt, &outcomesJSON,
		&result.Summary.Fastest, &result.Summary.HighestQuality,
		&result.Summary.MostCostEffective, &result.Summary.BestOverall,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	if err := json.Unmarshal(outcomesJSON, &result.Outcomes); err != nil {
		return nil, fmt.Errorf("unmarshal outcomes: %w", err)
	}

	return &result, nil
}
