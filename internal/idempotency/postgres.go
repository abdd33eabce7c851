package idempotency

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps markers in a Postgres table so that they survive
// restarts and are shared across instances.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS processed_comments (
	marker_key text PRIMARY KEY,
	created_at timestamptz NOT NULL DEFAULT now()
)`

// NewPostgresStore connects to dsn and ensures the marker table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("idempotency: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("idempotency: ensure table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_comments WHERE marker_key = $1)`, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("idempotency: exists %q: %w", key, err)
	}
	return exists, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO processed_comments (marker_key) VALUES ($1) ON CONFLICT DO NOTHING`, key)
	if err != nil {
		return fmt.Errorf("idempotency: put %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
