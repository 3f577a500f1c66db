package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/seedotp/internal/pkg/goerror"
)

// PostgresTable holds the single seed row.
const PostgresTable = "seedotp_seed"

const (
	queryEnsureSchema = `CREATE TABLE IF NOT EXISTS seedotp_seed (
	id         SMALLINT PRIMARY KEY CHECK (id = 1),
	seed       TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	queryUpsertSeed = `INSERT INTO seedotp_seed (id, seed, updated_at) VALUES (1, $1, now())
ON CONFLICT (id) DO UPDATE SET seed = EXCLUDED.seed, updated_at = EXCLUDED.updated_at`

	querySelectSeed = `SELECT seed FROM seedotp_seed WHERE id = 1`
)

// Postgres stores the seed in a single-row table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps pool. The store owns pool and closes it on Close.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the seed table when it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, queryEnsureSchema); err != nil {
		return fmt.Errorf("%w: postgres ensure schema: %w", ErrStorage, err)
	}
	return nil
}

// Write implements Store.
func (p *Postgres) Write(ctx context.Context, seed string) error {
	if _, err := p.pool.Exec(ctx, queryUpsertSeed, seed); err != nil {
		return fmt.Errorf("%w: postgres upsert: %w", ErrStorage, err)
	}
	return nil
}

// Read implements Store.
func (p *Postgres) Read(ctx context.Context) (string, error) {
	var seed string
	err := p.pool.QueryRow(ctx, querySelectSeed).Scan(&seed)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", goerror.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: postgres select: %w", ErrStorage, err)
	}

	return normalize(seed)
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
