package idempotency

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	portidempotency "github.com/alanyang/projects-sync/internal/port/idempotency"
)

var _ portidempotency.Store = (*Repository)(nil)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Check(ctx context.Context, key string) ([]byte, bool, error) {
	query := `SELECT result_jsonb FROM processed_requests WHERE idempotency_key = $1`

	var result []byte
	err := r.pool.QueryRow(ctx, query, key).Scan(&result)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("checking idempotency key: %w", err)
	}
	return result, true, nil
}

// Store keeps the first result recorded for key; later writes are ignored.
func (r *Repository) Store(ctx context.Context, key, opType string, result []byte) error {
	query := `
		INSERT INTO processed_requests (idempotency_key, operation_type, result_jsonb, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (idempotency_key) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, key, opType, result); err != nil {
		return fmt.Errorf("storing idempotency key: %w", err)
	}
	return nil
}
