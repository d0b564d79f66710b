package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-werewolf/internal/config"
	"ai-werewolf/internal/game"
	"ai-werewolf/internal/store"
	"ai-werewolf/internal/testutil"
)

func serverTestState() *game.GameState {
	roles := []game.Role{
		game.RoleWerewolf, game.RoleWerewolf, game.RoleWerewolf,
		game.RoleSeer, game.RoleWitch, game.RoleHunter, game.RoleGuard,
		game.RoleVillager, game.RoleVillager,
	}
	var players []game.Player
	for i, r := range roles {
		players = append(players, game.Player{
			PlayerID:    string(rune('a' + i)),
			Seat:        i,
			DisplayName: "玩家" + string(rune('0'+i)),
			Role:        r,
			Alive:       true,
			IsHuman:     i == 6,
		})
	}
	return game.NewGameState("g1", players)
}

// The fake provider always answers with a pass decision, so every AI seat
// resolves deterministically.
func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"seat\": null}"}}]}`))
	}))
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestGameTurnEndpoints(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	provider := fakeProvider(t)
	defer provider.Close()
	err := st.SaveLLMConfig(ctx, &store.LLMConfig{
		BaseURL: provider.URL, APIKey: "k", Model: "m", Models: []string{"m"},
	})
	if err != nil {
		t.Fatalf("save llm config: %v", err)
	}

	raw, err := json.Marshal(serverTestState())
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	if _, err := st.SaveGameState(ctx, raw, 0); err != nil {
		t.Fatalf("save state: %v", err)
	}

	srv := httptest.NewServer(newRouter(st, config.AppConfig{}))
	defer srv.Close()

	// Turn endpoints are closed until the restore is confirmed.
	resp := postJSON(t, srv.URL+"/api/game/action",
		`{"type":"guard_protect","playerId":"g","targetSeat":3}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("pre-restore action status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/game/restore", `{}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("restore status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The human guard acts; the AI wolves, witch and seer follow, the night
	// resolves and the day-1 election runs up to the human's turn.
	resp = postJSON(t, srv.URL+"/api/game/action",
		`{"type":"guard_protect","playerId":"g","targetSeat":3}`)
	var out struct {
		OK      bool  `json:"ok"`
		Version int64 `json:"version"`
		State   struct {
			Phase string `json:"phase"`
			Day   int    `json:"day"`
		} `json:"state"`
	}
	decodeBody(t, resp, &out)
	if !out.OK {
		t.Fatalf("action response = %+v", out)
	}
	if out.State.Phase != string(game.PhaseDayBadgeElection) || out.State.Day != 1 {
		t.Fatalf("phase = %s day = %d", out.State.Phase, out.State.Day)
	}
	if out.Version != 2 {
		t.Fatalf("version = %d, want the turn persisted over version 1", out.Version)
	}

	// The persisted row matches what the turn returned.
	saved, err := st.GetGameState(ctx)
	if err != nil {
		t.Fatalf("get saved state: %v", err)
	}
	var savedState game.GameState
	if err := json.Unmarshal(saved.State, &savedState); err != nil {
		t.Fatalf("unmarshal saved state: %v", err)
	}
	if savedState.Phase != game.PhaseDayBadgeElection {
		t.Fatalf("persisted phase = %s", savedState.Phase)
	}
	if rec := savedState.NightHistory[0]; rec == nil || !rec.Resolved {
		t.Fatalf("first night not resolved in persisted state: %+v", rec)
	}
}

func TestRestoreRejectsFinishedGame(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	provider := fakeProvider(t)
	defer provider.Close()
	if err := st.SaveLLMConfig(ctx, &store.LLMConfig{BaseURL: provider.URL, APIKey: "k", Model: "m"}); err != nil {
		t.Fatalf("save llm config: %v", err)
	}

	s := serverTestState()
	s.Winner = game.AlignmentWolf
	s.Phase = game.PhaseGameEnd
	raw, _ := json.Marshal(s)
	if _, err := st.SaveGameState(ctx, raw, 0); err != nil {
		t.Fatalf("save state: %v", err)
	}

	srv := httptest.NewServer(newRouter(st, config.AppConfig{}))
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/game/restore", `{}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("restore of finished game status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}
