package server

import (
	"net/http"

	"github.com/playmix/trackclash/internal/service"
	"github.com/playmix/trackclash/internal/trackclash"
)

func handleUpdateSettings(svc *service.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req trackclash.SettingsInput
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.UpdateSettings(r.Context(), sess.GameID, req, sess.PlayerID); err != nil {
			writeServiceError(w, err)
			return
		}

		broker.Publish(sess.GameID, Event{Type: "settings_updated"})
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func handleStartGame(svc *service.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		if err := svc.StartGame(r.Context(), sess.GameID, sess.PlayerID); err != nil {
			writeServiceError(w, err)
			return
		}

		broker.Publish(sess.GameID, Event{Type: "game_started", Round: 1})
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

type NextRoundResponse struct {
	GameFinished bool   `json:"gameFinished"`
	RoundNumber  int    `json:"roundNumber,omitempty"`
	HostPlayerID string `json:"hostPlayerId,omitempty"`
}

func handleNextRound(svc *service.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		outcome, err := svc.StartNextRound(r.Context(), sess.GameID, sess.PlayerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if outcome.GameFinished {
			broker.Publish(sess.GameID, Event{Type: "game_finished"})
		} else {
			broker.Publish(sess.GameID, Event{Type: "round_started", Round: outcome.RoundNumber, PlayerID: outcome.HostPlayerID})
		}

		writeJSON(w, http.StatusOK, NextRoundResponse{
			GameFinished: outcome.GameFinished,
			RoundNumber:  outcome.RoundNumber,
			HostPlayerID: outcome.HostPlayerID,
		})
	}
}
