package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"ai-werewolf/internal/director"
	"ai-werewolf/internal/game"
	"ai-werewolf/internal/llm"
	"ai-werewolf/internal/prompt"
	"ai-werewolf/internal/store"
)

// gameSession is the single in-process writer over the live game. The
// browser saves and loads raw state through /api/game-state; turns run here,
// and every applied turn is persisted with the version the session holds.
type gameSession struct {
	mu      sync.Mutex
	guard   *game.RestoreGuard
	machine *game.Machine
	dir     *director.Director
	version int64
}

func newGameSession() *gameSession {
	return &gameSession{guard: &game.RestoreGuard{}}
}

// restoreGameHandler loads the persisted state, confirms it through the
// restore guard and builds the director over it. Turn endpoints stay closed
// until this succeeds.
func restoreGameHandler(st *store.Store, gs *gameSession) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saved, err := st.GetGameState(r.Context())
		if errors.Is(err, store.ErrNotFound) {
			writeHTTPError(w, http.StatusNotFound, "no_saved_game")
			return
		}
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		var state game.GameState
		if err := json.Unmarshal(saved.State, &state); err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "corrupt_game_state")
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

		gs.mu.Lock()
		defer gs.mu.Unlock()
		if !gs.guard.Confirm(&state) {
			writeHTTPError(w, http.StatusConflict, "game_not_restorable")
			return
		}
		gs.machine = game.NewMachine(&state)
		gs.dir = director.New(gs.machine, prompt.NewBuilder(nil), client)
		gs.version = saved.Version
		writeOK(w, map[string]any{"version": gs.version, "state": &state})
	}
}

// gameActionHandler applies the human player's decision and lets the
// director run the AI seats that follow.
func gameActionHandler(st *store.Store, gs *gameSession) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Type       string   `json:"type"`
			PlayerID   string   `json:"playerId"`
			TargetSeat *int     `json:"targetSeat"`
			Speech     []string `json:"speech"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}

		gs.mu.Lock()
		defer gs.mu.Unlock()
		if err := gs.guard.Require(); err != nil {
			writeHTTPError(w, http.StatusConflict, "not_restored")
			return
		}
		err := gs.dir.SubmitHuman(r.Context(), game.Action{
			Type:       game.ActionType(body.Type),
			PlayerID:   body.PlayerID,
			TargetSeat: body.TargetSeat,
			Speech:     body.Speech,
		})
		if errors.Is(err, game.ErrInvalidAction) {
			writeHTTPError(w, http.StatusBadRequest, "invalid_action")
			return
		}
		if errors.Is(err, game.ErrGameFinished) {
			writeHTTPError(w, http.StatusConflict, "game_finished")
			return
		}
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "turn_failed")
			return
		}
		gs.persistAndRespond(w, r, st)
	}
}

// gameStepHandler runs pending AI turns without a human action, for phases
// where the human has nothing to submit.
func gameStepHandler(st *store.Store, gs *gameSession) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gs.mu.Lock()
		defer gs.mu.Unlock()
		if err := gs.guard.Require(); err != nil {
			writeHTTPError(w, http.StatusConflict, "not_restored")
			return
		}
		if err := gs.dir.RunPhase(r.Context()); err != nil && !errors.Is(err, game.ErrGameFinished) {
			writeHTTPError(w, http.StatusInternalServerError, "turn_failed")
			return
		}
		gs.persistAndRespond(w, r, st)
	}
}

// persistAndRespond saves the post-turn state under the session's version.
// Caller holds gs.mu.
func (gs *gameSession) persistAndRespond(w http.ResponseWriter, r *http.Request, st *store.Store) {
	state := gs.machine.State()
	raw, err := json.Marshal(state)
	if err != nil {
		writeHTTPError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	newVersion, err := st.SaveGameState(r.Context(), raw, gs.version)
	if errors.Is(err, store.ErrVersionConflict) {
		writeHTTPError(w, http.StatusConflict, "version_conflict")
		return
	}
	if err != nil {
		writeHTTPError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	gs.version = newVersion
	writeOK(w, map[string]any{"version": newVersion, "state": state})
}
