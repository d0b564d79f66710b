package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// SavedGameState is the single current-game snapshot. Version guards against
// two browser tabs overwriting each other: a write must carry the version it
// read, and the row only updates when that version is still current.
type SavedGameState struct {
	Version int64     `json:"version"`
	State   []byte    `json:"state"`
	SavedAt time.Time `json:"savedAt"`
}

func (s *Store) GetGameState(ctx context.Context) (*SavedGameState, error) {
	var gs SavedGameState
	err := s.Pool.QueryRow(ctx,
		`SELECT version, state, saved_at FROM game_state WHERE id = 1`,
	).Scan(&gs.Version, &gs.State, &gs.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &gs, nil
}

// SaveGameState writes the snapshot when expectedVersion matches the stored
// row (or the row does not exist yet and expectedVersion is 0). It returns
// the new version on success and ErrVersionConflict when a concurrent save
// got there first.
func (s *Store) SaveGameState(ctx context.Context, state []byte, expectedVersion int64) (int64, error) {
	newVersion := expectedVersion + 1
	tag, err := s.Pool.Exec(ctx, `
INSERT INTO game_state (id, version, state, saved_at)
VALUES (1, $1, $2, now())
ON CONFLICT (id) DO UPDATE SET
    version = EXCLUDED.version,
    state = EXCLUDED.state,
    saved_at = now()
WHERE game_state.version = $3`,
		newVersion, state, expectedVersion)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrVersionConflict
	}
	return newVersion, nil
}

func (s *Store) DeleteGameState(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM game_state WHERE id = 1`)
	return err
}
