package server

import (
	"net/http"

	"github.com/playmix/trackclash/internal/service"
)

type ChallengeRequest struct {
	RoundNumber int    `json:"roundNumber"`
	Challenge   string `json:"challenge"`
}

func handleSetChallenge(svc *service.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req ChallengeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.SetChallenge(r.Context(), sess.GameID, req.RoundNumber, req.Challenge, sess.PlayerID); err != nil {
			writeServiceError(w, err)
			return
		}

		broker.Publish(sess.GameID, Event{Type: "challenge_set", Round: req.RoundNumber})
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func handleStartSelection(svc *service.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		if err := svc.StartSelection(r.Context(), sess.GameID, sess.PlayerID); err != nil {
			writeServiceError(w, err)
			return
		}

		broker.Publish(sess.GameID, Event{Type: "selection_started"})
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func handleSubmitSong(svc *service.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req service.SongInput
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.SubmitSong(r.Context(), sess.GameID, req, sess.PlayerID); err != nil {
			writeServiceError(w, err)
			return
		}

		// The event names the submitter but not the track; picks stay
		// anonymous until the results reveal them.
		broker.Publish(sess.GameID, Event{Type: "song_submitted", PlayerID: sess.PlayerID})
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

type PlaybackStartResponse struct {
	RankingSkipped bool `json:"rankingSkipped"`
}

func handleStartPlayback(svc *service.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		outcome, err := svc.StartPlayback(r.Context(), sess.GameID, sess.PlayerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if outcome.RankingSkipped {
			broker.Publish(sess.GameID, Event{Type: "round_finished"})
		} else {
			broker.Publish(sess.GameID, Event{Type: "playback_started"})
		}
		writeJSON(w, http.StatusOK, PlaybackStartResponse{RankingSkipped: outcome.RankingSkipped})
	}
}

func handleControlPlayback(svc *service.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req service.PlaybackUpdate
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.ControlPlayback(r.Context(), sess.GameID, req, sess.PlayerID); err != nil {
			writeServiceError(w, err)
			return
		}

		broker.Publish(sess.GameID, Event{Type: "playback_updated"})
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func handleStartRanking(svc *service.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		if err := svc.StartRanking(r.Context(), sess.GameID, sess.PlayerID); err != nil {
			writeServiceError(w, err)
			return
		}

		broker.Publish(sess.GameID, Event{Type: "ranking_started"})
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

type RankingRequest struct {
	Rankings map[string]int `json:"rankings"` // trackID -> rank
	UseJoker bool           `json:"useJoker"`
}

type RankingResponse struct {
	RoundFinished bool `json:"roundFinished"`
}

func handleSubmitRanking(svc *service.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req RankingRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		outcome, err := svc.SubmitRanking(r.Context(), sess.GameID, req.Rankings, req.UseJoker, sess.PlayerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		broker.Publish(sess.GameID, Event{Type: "ranking_submitted", PlayerID: sess.PlayerID})
		if outcome.RoundFinished {
			broker.Publish(sess.GameID, Event{Type: "round_finished"})
		}
		writeJSON(w, http.StatusOK, RankingResponse{RoundFinished: outcome.RoundFinished})
	}
}

func handleFinalizeRanking(svc *service.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		outcome, err := svc.FinalizeRanking(r.Context(), sess.GameID, sess.PlayerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		broker.Publish(sess.GameID, Event{Type: "round_finished"})
		writeJSON(w, http.StatusOK, RankingResponse{RoundFinished: outcome.RoundFinished})
	}
}
