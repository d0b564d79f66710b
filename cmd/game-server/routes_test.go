package main

import (
	"net/http"
	"sort"
	"testing"

	"ai-werewolf/internal/config"

	"github.com/go-chi/chi/v5"
)

func TestRegisteredRoutes(t *testing.T) {
	r := newRouter(nil, config.AppConfig{})
	got := map[string]bool{}
	err := chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		got[method+" "+route] = true
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	want := []string{
		"GET /healthz",
		"POST /api/auth/totp",
		"POST /api/chat",
		"POST /api/llm-models",
		"GET /api/llm-config",
		"PUT /api/llm-config",
		"POST /api/game/restore",
		"POST /api/game/action",
		"POST /api/game/step",
		"GET /api/game-state",
		"PUT /api/game-state",
		"DELETE /api/game-state",
		"GET /api/game-history",
		"GET /api/game-history/{game_id}",
		"PUT /api/game-history/{game_id}",
		"DELETE /api/game-history/{game_id}",
		"GET /api/game-analysis/{game_id}",
		"POST /api/game-analysis/{game_id}",
	}
	sort.Strings(want)
	for _, route := range want {
		if !got[route] {
			t.Errorf("missing route %s", route)
		}
	}
}
