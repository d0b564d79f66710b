package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	GameStatusInProgress = "in_progress"
	GameStatusPaused     = "paused"
	GameStatusCompleted  = "completed"
)

// GameHistoryEntry is one row of the per-game history. The checkpoint holds
// the last serialized state so an interrupted game can be resumed.
type GameHistoryEntry struct {
	GameID         string    `json:"gameId"`
	Status         string    `json:"status"`
	CheckpointJSON []byte    `json:"checkpointStateJson,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (s *Store) UpsertGameHistory(ctx context.Context, e *GameHistoryEntry) error {
	_, err := s.Pool.Exec(ctx, `
INSERT INTO game_history (game_id, status, last_checkpoint_state_json, created_at, updated_at)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (game_id) DO UPDATE SET
    status = EXCLUDED.status,
    last_checkpoint_state_json = EXCLUDED.last_checkpoint_state_json,
    updated_at = now()`,
		e.GameID, e.Status, e.CheckpointJSON)
	return err
}

func (s *Store) GetGameHistory(ctx context.Context, gameID string) (*GameHistoryEntry, error) {
	var e GameHistoryEntry
	err := s.Pool.QueryRow(ctx, `
SELECT game_id, status, last_checkpoint_state_json, created_at, updated_at
FROM game_history WHERE game_id = $1`, gameID,
	).Scan(&e.GameID, &e.Status, &e.CheckpointJSON, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListGameHistory returns entries newest first, without checkpoint payloads.
func (s *Store) ListGameHistory(ctx context.Context, limit int) ([]GameHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
SELECT game_id, status, created_at, updated_at
FROM game_history ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GameHistoryEntry
	for rows.Next() {
		var e GameHistoryEntry
		if err := rows.Scan(&e.GameID, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) DeleteGameHistory(ctx context.Context, gameID string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM game_history WHERE game_id = $1`, gameID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
