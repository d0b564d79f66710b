package main

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"ai-werewolf/internal/auth"
	"ai-werewolf/internal/config"
	"ai-werewolf/internal/proxy"
	"ai-werewolf/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func newRouter(st *store.Store, cfg config.AppConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(apiLogMiddleware()).Get("/healthz", healthHandler(st))

	r.Route("/api", func(r chi.Router) {
		r.Use(apiLogMiddleware())
		r.Use(bodyCaptureMiddleware())

		r.Post("/auth/totp", auth.LoginHandler(cfg.Server.TOTPSecret))

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.Server.TOTPSecret))

			r.Post("/chat", proxy.NewHandler(st).ServeHTTP)
			r.Post("/llm-models", llmModelsHandler())

			r.Get("/llm-config", getLLMConfigHandler(st))
			r.Put("/llm-config", putLLMConfigHandler(st))

			gs := newGameSession()
			r.Post("/game/restore", restoreGameHandler(st, gs))
			r.Post("/game/action", gameActionHandler(st, gs))
			r.Post("/game/step", gameStepHandler(st, gs))

			r.Get("/game-state", getGameStateHandler(st))
			r.Put("/game-state", putGameStateHandler(st))
			r.Delete("/game-state", deleteGameStateHandler(st))

			r.Get("/game-history", listGameHistoryHandler(st))
			r.Get("/game-history/{game_id}", getGameHistoryHandler(st))
			r.Put("/game-history/{game_id}", putGameHistoryHandler(st))
			r.Delete("/game-history/{game_id}", deleteGameHistoryHandler(st))

			r.Get("/game-analysis/{game_id}", getGameAnalysisHandler(st))
			r.Post("/game-analysis/{game_id}", generateGameAnalysisHandler(st))
		})
	})

	return r
}

func logRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
