package server

import (
	"net/http"
	"strings"

	"github.com/playmix/trackclash/internal/music"
	"github.com/playmix/trackclash/internal/store"
)

type TrackSearchResponse struct {
	Tracks []music.Track `json:"tracks"`
}

// handleTrackSearch proxies the provider search for the session's
// game, applying its explicit-content setting. The lookup happens
// entirely outside any store transaction.
func handleTrackSearch(st store.Store, client music.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeError(w, http.StatusBadRequest, "q query parameter required")
			return
		}

		game, err := st.GetGame(r.Context(), sess.GameID)
		if err != nil {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}

		tracks, err := client.Search(r.Context(), query, game.Settings.AllowExplicit)
		if err != nil {
			writeError(w, http.StatusBadGateway, "track search unavailable")
			return
		}
		if tracks == nil {
			tracks = []music.Track{}
		}

		writeJSON(w, http.StatusOK, TrackSearchResponse{Tracks: tracks})
	}
}
