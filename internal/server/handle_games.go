package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playmix/trackclash/internal/service"
	"github.com/playmix/trackclash/internal/store"
	"github.com/playmix/trackclash/internal/trackclash"
)

type CreateGameRequest struct {
	PlayerName string                   `json:"playerName"`
	Settings   trackclash.SettingsInput `json:"settings"`
}

type JoinRequest struct {
	PlayerName string `json:"playerName"`
}

// JoinResponse is returned from both create and join: the caller gets
// a session token scoped to (game, player).
type JoinResponse struct {
	Token    string `json:"token"`
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

func handleCreateGame(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateGameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		info, err := svc.CreateGame(r.Context(), req.PlayerName, req.Settings)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, JoinResponse{
			Token:    info.Token,
			GameID:   info.GameID,
			PlayerID: info.PlayerID,
		})
	}
}

// GameLookupResponse is the public lobby view shown before joining.
type GameLookupResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
}

func handleGameLookup(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")

		game, err := st.GetGame(r.Context(), gameID)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		players, err := st.ListPlayers(r.Context(), gameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, GameLookupResponse{
			ID:          game.ID,
			Status:      string(game.Status),
			PlayerCount: len(players),
			MaxPlayers:  game.Settings.MaxPlayers,
		})
	}
}

func handleJoin(svc *service.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")

		var req JoinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		info, err := svc.JoinGame(r.Context(), gameID, req.PlayerName)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		broker.Publish(gameID, Event{
			Type:       "player_joined",
			PlayerID:   info.PlayerID,
			PlayerName: req.PlayerName,
		})

		writeJSON(w, http.StatusOK, JoinResponse{
			Token:    info.Token,
			GameID:   info.GameID,
			PlayerID: info.PlayerID,
		})
	}
}
