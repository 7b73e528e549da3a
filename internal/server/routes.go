package server

import (
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, deps Deps) {
	broker := NewBroker()

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("TrackClash API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(deps.Logger, deps.DB, deps.Redis))

	r.Route("/api", func(r chi.Router) {
		// Lobby entry points — no session yet.
		r.Post("/games", handleCreateGame(deps.Service))
		r.Get("/games/{gameID}", handleGameLookup(deps.Store))
		r.Post("/games/{gameID}/join", handleJoin(deps.Service, broker))

		// SSE stream authenticates via token query parameter because
		// EventSource cannot set headers.
		r.Get("/game/events", handleEvents(deps.Store, broker))

		// Everything below requires a Bearer session token.
		r.Group(func(r chi.Router) {
			r.Use(sessionMiddleware(deps.Store))

			r.Get("/game/state", handleGameState(deps.Store))
			r.Put("/game/settings", handleUpdateSettings(deps.Service, broker))
			r.Post("/game/start", handleStartGame(deps.Service, broker))

			r.Post("/game/challenge", handleSetChallenge(deps.Service, broker))
			r.Post("/game/selection/start", handleStartSelection(deps.Service, broker))
			r.Post("/game/songs", handleSubmitSong(deps.Service, broker))
			r.Post("/game/playback/start", handleStartPlayback(deps.Service, broker))
			r.Post("/game/playback", handleControlPlayback(deps.Service, broker))
			r.Post("/game/ranking/start", handleStartRanking(deps.Service, broker))
			r.Post("/game/rankings", handleSubmitRanking(deps.Service, broker))
			r.Post("/game/ranking/finalize", handleFinalizeRanking(deps.Service, broker))
			r.Post("/game/rounds/next", handleNextRound(deps.Service, broker))

			r.Get("/tracks/search", handleTrackSearch(deps.Store, deps.Music))
		})
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			deps.Logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
