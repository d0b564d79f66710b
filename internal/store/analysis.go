package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// SavedAnalysis is a persisted post-game report, keyed by game so a finished
// game's analysis is generated once and replayed from the DB afterwards.
type SavedAnalysis struct {
	GameID     string    `json:"gameId"`
	ReportJSON []byte    `json:"report"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (s *Store) UpsertGameAnalysis(ctx context.Context, gameID string, report []byte) error {
	_, err := s.Pool.Exec(ctx, `
INSERT INTO game_analysis (game_id, report_json, created_at, updated_at)
VALUES ($1, $2, now(), now())
ON CONFLICT (game_id) DO UPDATE SET
    report_json = EXCLUDED.report_json,
    updated_at = now()`,
		gameID, report)
	return err
}

func (s *Store) GetGameAnalysis(ctx context.Context, gameID string) (*SavedAnalysis, error) {
	var a SavedAnalysis
	err := s.Pool.QueryRow(ctx, `
SELECT game_id, report_json, created_at, updated_at
FROM game_analysis WHERE game_id = $1`, gameID,
	).Scan(&a.GameID, &a.ReportJSON, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) DeleteGameAnalysis(ctx context.Context, gameID string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM game_analysis WHERE game_id = $1`, gameID)
	return err
}
