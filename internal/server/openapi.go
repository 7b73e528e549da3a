package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playmix/trackclash/internal/service"
	"github.com/playmix/trackclash/internal/trackclash"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "TrackClash API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the TrackClash music-guessing game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/games
	postGames, _ := r.NewOperationContext(http.MethodPost, "/api/games")
	postGames.SetSummary("Create game")
	postGames.SetDescription("Creates a game with the given settings. The caller becomes creator and first player.")
	postGames.AddReqStructure(CreateGameRequest{})
	postGames.AddRespStructure(JoinResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postGames.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postGames)

	// GET /api/games/{gameID}
	getGame, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}")
	getGame.SetSummary("Look up game")
	getGame.SetDescription("Public lobby view of a game before joining.")
	getGame.AddRespStructure(GameLookupResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getGame)

	// POST /api/games/{gameID}/join
	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/join")
	postJoin.SetSummary("Join a game")
	postJoin.SetDescription("Joins a waiting game. Returns a session token scoped to (game, player).")
	postJoin.AddReqStructure(JoinRequest{})
	postJoin.AddRespStructure(JoinResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postJoin)

	// GET /api/game/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/game/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream for real-time game updates. Pass token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/game/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/game/state")
	getState.SetSummary("Get game state")
	getState.SetDescription("Returns the caller's view of the game, players, and current round. Requires Bearer token.")
	getState.AddRespStructure(GameStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getState)

	// PUT /api/game/settings
	putSettings, _ := r.NewOperationContext(http.MethodPut, "/api/game/settings")
	putSettings.SetSummary("Update settings")
	putSettings.SetDescription("Replaces the game settings. Creator only, while the game is waiting. Requires Bearer token.")
	putSettings.AddReqStructure(trackclash.SettingsInput{})
	putSettings.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	putSettings.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	putSettings.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	putSettings.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(putSettings)

	// POST /api/game/start
	postStart, _ := r.NewOperationContext(http.MethodPost, "/api/game/start")
	postStart.SetSummary("Start game")
	postStart.SetDescription("Starts the game and opens round 1 in the announcing phase. Requires Bearer token.")
	postStart.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postStart)

	// POST /api/game/challenge
	postChallenge, _ := r.NewOperationContext(http.MethodPost, "/api/game/challenge")
	postChallenge.SetSummary("Set challenge")
	postChallenge.SetDescription("Round host sets the challenge text for the announcing phase. Requires Bearer token.")
	postChallenge.AddReqStructure(ChallengeRequest{})
	postChallenge.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	postChallenge.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postChallenge.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postChallenge.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postChallenge)

	// POST /api/game/selection/start
	postSelection, _ := r.NewOperationContext(http.MethodPost, "/api/game/selection/start")
	postSelection.SetSummary("Start song selection")
	postSelection.SetDescription("Moves the current round from announcing to song selection. Requires Bearer token.")
	postSelection.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	postSelection.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postSelection)

	// POST /api/game/songs
	postSongs, _ := r.NewOperationContext(http.MethodPost, "/api/game/songs")
	postSongs.SetSummary("Submit song")
	postSongs.SetDescription("Submits or replaces the caller's song pick for the current round. Requires Bearer token.")
	postSongs.AddReqStructure(service.SongInput{})
	postSongs.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	postSongs.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postSongs.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postSongs)

	// POST /api/game/playback/start
	postPlayback, _ := r.NewOperationContext(http.MethodPost, "/api/game/playback/start")
	postPlayback.SetSummary("Start playback")
	postPlayback.SetDescription("Round host snapshots the submitted songs and starts playback. With one or zero songs the round finishes immediately. Requires Bearer token.")
	postPlayback.AddRespStructure(PlaybackStartResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postPlayback.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postPlayback.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postPlayback)

	// POST /api/game/playback
	controlPlayback, _ := r.NewOperationContext(http.MethodPost, "/api/game/playback")
	controlPlayback.SetSummary("Control playback")
	controlPlayback.SetDescription("Round host updates the playback cursor (track index, position, paused). Requires Bearer token.")
	controlPlayback.AddReqStructure(service.PlaybackUpdate{})
	controlPlayback.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	controlPlayback.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	controlPlayback.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	controlPlayback.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(controlPlayback)

	// POST /api/game/ranking/start
	postRankingStart, _ := r.NewOperationContext(http.MethodPost, "/api/game/ranking/start")
	postRankingStart.SetSummary("Start ranking")
	postRankingStart.SetDescription("Round host moves the round from playback to ranking. Requires Bearer token.")
	postRankingStart.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	postRankingStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postRankingStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postRankingStart)

	// POST /api/game/rankings
	postRankings, _ := r.NewOperationContext(http.MethodPost, "/api/game/rankings")
	postRankings.SetSummary("Submit ranking")
	postRankings.SetDescription("Submits the caller's ballot for the current round, optionally playing the joker. Requires Bearer token.")
	postRankings.AddReqStructure(RankingRequest{})
	postRankings.AddRespStructure(RankingResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postRankings.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postRankings.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postRankings)

	// POST /api/game/ranking/finalize
	postFinalize, _ := r.NewOperationContext(http.MethodPost, "/api/game/ranking/finalize")
	postFinalize.SetSummary("Finalize ranking")
	postFinalize.SetDescription("Scores the round with the ballots submitted so far. Requires Bearer token.")
	postFinalize.AddRespStructure(RankingResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postFinalize.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postFinalize)

	// POST /api/game/rounds/next
	postNext, _ := r.NewOperationContext(http.MethodPost, "/api/game/rounds/next")
	postNext.SetSummary("Start next round")
	postNext.SetDescription("Advances from a finished round to the next one, or finishes the game after the final round. Requires Bearer token.")
	postNext.AddRespStructure(NextRoundResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postNext.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postNext)

	// GET /api/tracks/search
	getSearch, _ := r.NewOperationContext(http.MethodGet, "/api/tracks/search")
	getSearch.SetSummary("Search tracks")
	getSearch.SetDescription("Searches the music catalog, honoring the game's explicit-content setting. Requires Bearer token.")
	getSearch.AddRespStructure(TrackSearchResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getSearch.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	getSearch.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(getSearch)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
