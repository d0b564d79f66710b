package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ai-werewolf/internal/analysis"
	"ai-werewolf/internal/game"
	"ai-werewolf/internal/llm"
	"ai-werewolf/internal/store"

	"github.com/go-chi/chi/v5"
)

func healthHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": "up"})
	}
}

// llmModelsHandler queries the provider's model list with the submitted
// credentials so the settings screen can offer a picker before anything is
// saved.
func llmModelsHandler() http.HandlerFunc {
	client := &http.Client{Timeout: 15 * time.Second}
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			BaseURL string `json:"base_url"`
			APIKey  string `json:"api_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		baseURL := strings.TrimRight(strings.TrimSpace(body.BaseURL), "/")
		apiKey := strings.TrimSpace(body.APIKey)
		if baseURL == "" || apiKey == "" {
			writeHTTPError(w, http.StatusBadRequest, "missing_base_url_or_api_key")
			return
		}
		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, baseURL+"/models", nil)
		if err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)
		resp, err := client.Do(req)
		if err != nil {
			writeHTTPError(w, http.StatusBadGateway, "upstream_error")
			return
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil || resp.StatusCode >= 400 {
			writeHTTPError(w, http.StatusBadGateway, "upstream_error")
			return
		}
		var parsed struct {
			Data []struct {
				ID    string `json:"id"`
				Model string `json:"model"`
			} `json:"data"`
			Models []string `json:"models"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			writeHTTPError(w, http.StatusBadGateway, "upstream_error")
			return
		}
		models := make([]string, 0, len(parsed.Data)+len(parsed.Models))
		for _, item := range parsed.Data {
			if item.ID != "" {
				models = append(models, item.ID)
			} else if item.Model != "" {
				models = append(models, item.Model)
			}
		}
		for _, m := range parsed.Models {
			if strings.TrimSpace(m) != "" {
				models = append(models, m)
			}
		}
		writeOK(w, map[string]any{"models": models})
	}
}

func getLLMConfigHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := st.GetLLMConfig(r.Context())
		if errors.Is(err, store.ErrNotFound) {
			writeOK(w, map[string]any{"data": nil})
			return
		}
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeOK(w, map[string]any{"data": cfg})
	}
}

func putLLMConfigHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg store.LLMConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if cfg.BaseURL == "" || cfg.Model == "" {
			writeHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if err := st.SaveLLMConfig(r.Context(), &cfg); err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeOK(w, nil)
	}
}

func getGameStateHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gs, err := st.GetGameState(r.Context())
		if errors.Is(err, store.ErrNotFound) {
			writeOK(w, map[string]any{"data": nil})
			return
		}
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeOK(w, map[string]any{"data": map[string]any{
			"version": gs.Version,
			"state":   json.RawMessage(gs.State),
			"savedAt": gs.SavedAt,
		}})
	}
}

func putGameStateHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Version *int64          `json:"version"`
			State   json.RawMessage `json:"state"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.Version == nil || len(body.State) == 0 {
			writeHTTPError(w, http.StatusBadRequest, "missing_game_state")
			return
		}
		newVersion, err := st.SaveGameState(r.Context(), body.State, *body.Version)
		if errors.Is(err, store.ErrVersionConflict) {
			writeHTTPError(w, http.StatusConflict, "version_conflict")
			return
		}
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeOK(w, map[string]any{"version": newVersion})
	}
}

func deleteGameStateHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.DeleteGameState(r.Context()); err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeOK(w, nil)
	}
}

func listGameHistoryHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		if limit > 500 {
			limit = 500
		}
		items, err := st.ListGameHistory(r.Context(), limit)
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeOK(w, map[string]any{"items": items})
	}
}

func getGameHistoryHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := st.GetGameHistory(r.Context(), chi.URLParam(r, "game_id"))
		if errors.Is(err, store.ErrNotFound) {
			writeHTTPError(w, http.StatusNotFound, "game_not_found")
			return
		}
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeOK(w, map[string]any{"data": map[string]any{
			"gameId":    entry.GameID,
			"status":    entry.Status,
			"state":     json.RawMessage(entry.CheckpointJSON),
			"createdAt": entry.CreatedAt,
			"updatedAt": entry.UpdatedAt,
		}})
	}
}

func putGameHistoryHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "game_id")
		var body struct {
			Status string          `json:"status"`
			State  json.RawMessage `json:"state"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		switch body.Status {
		case store.GameStatusInProgress, store.GameStatusPaused, store.GameStatusCompleted:
		default:
			writeHTTPError(w, http.StatusBadRequest, "invalid_status")
			return
		}
		entry := &store.GameHistoryEntry{
			GameID:         gameID,
			Status:         body.Status,
			CheckpointJSON: body.State,
		}
		if err := st.UpsertGameHistory(r.Context(), entry); err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeOK(w, nil)
	}
}

func deleteGameHistoryHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "game_id")
		err := st.DeleteGameHistory(r.Context(), gameID)
		if errors.Is(err, store.ErrNotFound) {
			writeHTTPError(w, http.StatusNotFound, "game_not_found")
			return
		}
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = st.DeleteGameAnalysis(r.Context(), gameID)
		writeOK(w, nil)
	}
}

func getGameAnalysisHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saved, err := st.GetGameAnalysis(r.Context(), chi.URLParam(r, "game_id"))
		if errors.Is(err, store.ErrNotFound) {
			writeHTTPError(w, http.StatusNotFound, "analysis_not_found")
			return
		}
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeOK(w, map[string]any{"data": json.RawMessage(saved.ReportJSON)})
	}
}

// generateGameAnalysisHandler derives the post-game report from the submitted
// final state. A report generated earlier is returned as-is unless the
// request forces regeneration.
func generateGameAnalysisHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "game_id")
		var body struct {
			State           json.RawMessage `json:"state"`
			DurationSeconds int             `json:"durationSeconds"`
			Force           bool            `json:"force"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if !body.Force {
			if saved, err := st.GetGameAnalysis(r.Context(), gameID); err == nil {
				writeOK(w, map[string]any{"data": json.RawMessage(saved.ReportJSON)})
				return
			}
		}
		var state game.GameState
		if err := json.Unmarshal(body.State, &state); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_game_state")
			return
		}
		if state.Winner == "" {
			writeHTTPError(w, http.StatusBadRequest, "game_not_finished")
			return
		}

		cfg, err := st.GetLLMConfig(r.Context())
		if err != nil {
			writeHTTPError(w, http.StatusBadRequest, "llm_not_configured")
			return
		}
		client := llm.NewClient(llm.Config{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Models:  cfg.Models,
		}, nil)

		report, err := analysis.NewDeriver(client).Generate(r.Context(), &state, cfg.Model, body.DurationSeconds)
		if errors.Is(err, analysis.ErrNoHumanPlayer) {
			writeHTTPError(w, http.StatusBadRequest, "no_human_player")
			return
		}
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "analysis_failed")
			return
		}
		raw, err := json.Marshal(report)
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if err := st.UpsertGameAnalysis(r.Context(), gameID, raw); err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeOK(w, map[string]any{"data": json.RawMessage(raw)})
	}
}
