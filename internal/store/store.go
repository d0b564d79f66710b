// Package store is the Postgres persistence layer: the LLM provider config
// row, the single current-game-state row with optimistic versioning, the
// append-only game history, persisted analysis reports and a small metadata
// key-value table.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version_conflict")
)

// Store wraps DB access.
type Store struct {
	Pool *pgxpool.Pool
}

func New(dsn string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

// EnsureSchema creates the tables when they do not exist yet. The schema is
// small enough that a migration tool would be overkill.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS llm_config (
    id          int PRIMARY KEY DEFAULT 1 CHECK (id = 1),
    base_url    text NOT NULL,
    api_key     text NOT NULL,
    model       text NOT NULL,
    models      jsonb NOT NULL DEFAULT '[]'::jsonb,
    updated_at  timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS game_state (
    id         int PRIMARY KEY DEFAULT 1 CHECK (id = 1),
    version    bigint NOT NULL,
    state      jsonb NOT NULL,
    saved_at   timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS game_history (
    game_id                    text PRIMARY KEY,
    status                     text NOT NULL,
    last_checkpoint_state_json jsonb,
    created_at                 timestamptz NOT NULL DEFAULT now(),
    updated_at                 timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS game_analysis (
    game_id     text PRIMARY KEY,
    report_json jsonb NOT NULL,
    created_at  timestamptz NOT NULL DEFAULT now(),
    updated_at  timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS kv_meta (
    key        text PRIMARY KEY,
    value      text NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now()
);`)
	return err
}
