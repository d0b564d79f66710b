package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// LLMConfig is the single provider configuration row. The API key is stored
// as-is; this service runs on the player's own machine with their own key.
type LLMConfig struct {
	BaseURL   string    `json:"baseUrl"`
	APIKey    string    `json:"apiKey"`
	Model     string    `json:"model"`
	Models    []string  `json:"models"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Store) GetLLMConfig(ctx context.Context) (*LLMConfig, error) {
	var (
		cfg    LLMConfig
		models []byte
	)
	err := s.Pool.QueryRow(ctx,
		`SELECT base_url, api_key, model, models, updated_at FROM llm_config WHERE id = 1`,
	).Scan(&cfg.BaseURL, &cfg.APIKey, &cfg.Model, &models, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(models, &cfg.Models); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) SaveLLMConfig(ctx context.Context, cfg *LLMConfig) error {
	models, err := json.Marshal(cfg.Models)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
INSERT INTO llm_config (id, base_url, api_key, model, models, updated_at)
VALUES (1, $1, $2, $3, $4, now())
ON CONFLICT (id) DO UPDATE SET
    base_url = EXCLUDED.base_url,
    api_key = EXCLUDED.api_key,
    model = EXCLUDED.model,
    models = EXCLUDED.models,
    updated_at = now()`,
		cfg.BaseURL, cfg.APIKey, cfg.Model, models)
	return err
}
