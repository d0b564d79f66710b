package main

import (
	"context"
	"net/http"
	"time"

	"ai-werewolf/internal/config"
	"ai-werewolf/internal/logging"
	"ai-werewolf/internal/store"

	"github.com/rs/zerolog/log"
)

func main() {
	logging.Init()
	cfg, err := config.LoadApp()
	if err != nil {
		log.Fatal().Err(err).Msg("load config failed")
	}

	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	if err := st.EnsureSchema(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("ensure schema failed")
	}
	seedLLMConfig(st, cfg.LLM)

	r := newRouter(st, cfg)
	logRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}

// seedLLMConfig writes the env-provided provider settings when no config row
// exists yet, so a fresh install works without touching the settings UI.
func seedLLMConfig(st *store.Store, llmCfg config.LLMConfig) {
	ctx := context.Background()
	if _, err := st.GetLLMConfig(ctx); err == nil {
		return
	}
	if llmCfg.APIKey == "" {
		return
	}
	err := st.SaveLLMConfig(ctx, &store.LLMConfig{
		BaseURL: llmCfg.BaseURL,
		APIKey:  llmCfg.APIKey,
		Model:   llmCfg.Model,
		Models:  llmCfg.Models,
	})
	if err != nil {
		log.Error().Err(err).Msg("seed llm config failed")
	}
}
