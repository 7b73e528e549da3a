package server

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/playmix/trackclash/internal/store"
	"github.com/playmix/trackclash/internal/trackclash"
)

type GameInfo struct {
	ID                string              `json:"id"`
	Status            string              `json:"status"`
	CurrentRound      int                 `json:"currentRound"`
	TotalRounds       int                 `json:"totalRounds"`
	CreatorPlayerID   string              `json:"creatorPlayerId"`
	RoundHostPlayerID string              `json:"roundHostPlayerId"`
	Challenge         string              `json:"challenge"`
	Settings          trackclash.Settings `json:"settings"`
	CreatedAt         time.Time           `json:"createdAt"`
}

type PlayerInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Score          int    `json:"score"`
	JokerAvailable bool   `json:"jokerAvailable"`
}

// SongInfo is a snapshot track without its owner: nominations stay
// anonymous until the round results reveal them.
type SongInfo struct {
	TrackID       string `json:"trackId"`
	Name          string `json:"name"`
	Artist        string `json:"artist"`
	PreviewURL    string `json:"previewUrl"`
	AlbumImageURL string `json:"albumImageUrl"`
}

type RoundInfo struct {
	RoundNumber              int                      `json:"roundNumber"`
	Status                   string                   `json:"status"`
	Challenge                string                   `json:"challenge"`
	HostPlayerID             string                   `json:"hostPlayerId"`
	SubmittedPlayerIDs       []string                 `json:"submittedPlayerIds"`
	YourSong                 *SongInfo                `json:"yourSong"`
	SongsForRanking          []SongInfo               `json:"songsForRanking"`
	RankingStartTime         *time.Time               `json:"rankingStartTime"`
	CurrentPlayingTrackIndex int                      `json:"currentPlayingTrackIndex"`
	IsPlaying                bool                     `json:"isPlaying"`
	PlaybackEndTime          *time.Time               `json:"playbackEndTime"`
	RankedPlayerIDs          []string                 `json:"rankedPlayerIds"`
	Results                  *trackclash.RoundResults `json:"results"`
}

type GameStateResponse struct {
	Game    GameInfo     `json:"game"`
	Players []PlayerInfo `json:"players"`
	Round   *RoundInfo   `json:"round"`
}

// handleGameState assembles the full view for the session player: the
// game document, the join-ordered player list, and the current round
// if one exists. Reads are non-transactional; the store's own change
// ordering means the response is at worst one commit behind.
func handleGameState(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		game, err := st.GetGame(r.Context(), sess.GameID)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		players, err := st.ListPlayers(r.Context(), sess.GameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := GameStateResponse{
			Game: GameInfo{
				ID:                game.ID,
				Status:            string(game.Status),
				CurrentRound:      game.CurrentRound,
				TotalRounds:       game.TotalRounds,
				CreatorPlayerID:   game.CreatorPlayerID,
				RoundHostPlayerID: game.RoundHostPlayerID,
				Challenge:         game.Challenge,
				Settings:          game.Settings,
				CreatedAt:         game.CreatedAt,
			},
			Players: make([]PlayerInfo, len(players)),
		}
		for i, p := range players {
			resp.Players[i] = PlayerInfo{
				ID:             p.ID,
				Name:           p.Name,
				Score:          p.Score,
				JokerAvailable: p.JokerAvailable,
			}
		}

		if game.CurrentRound > 0 {
			round, err := st.GetRound(r.Context(), sess.GameID, game.CurrentRound)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if round != nil {
				resp.Round = roundInfoFor(round, sess.PlayerID)
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func roundInfoFor(round *trackclash.Round, playerID string) *RoundInfo {
	info := &RoundInfo{
		RoundNumber:              round.RoundNumber,
		Status:                   string(round.Status),
		Challenge:                round.Challenge,
		HostPlayerID:             round.HostPlayerID,
		SubmittedPlayerIDs:       []string{},
		SongsForRanking:          []SongInfo{},
		RankingStartTime:         round.RankingStartTime,
		CurrentPlayingTrackIndex: round.CurrentPlayingTrackIndex,
		IsPlaying:                round.IsPlaying,
		PlaybackEndTime:          round.PlaybackEndTime,
		RankedPlayerIDs:          []string{},
	}

	for owner := range round.PlayerSongs {
		info.SubmittedPlayerIDs = append(info.SubmittedPlayerIDs, owner)
	}
	sort.Strings(info.SubmittedPlayerIDs)

	if song, ok := round.SongByOwner(playerID); ok {
		info.YourSong = &SongInfo{
			TrackID:       song.TrackID,
			Name:          song.Name,
			Artist:        song.Artist,
			PreviewURL:    song.PreviewURL,
			AlbumImageURL: song.AlbumImageURL,
		}
	}

	for _, song := range round.SongsForRanking {
		info.SongsForRanking = append(info.SongsForRanking, SongInfo{
			TrackID:       song.TrackID,
			Name:          song.Name,
			Artist:        song.Artist,
			PreviewURL:    song.PreviewURL,
			AlbumImageURL: song.AlbumImageURL,
		})
	}

	for ranker := range round.Rankings {
		info.RankedPlayerIDs = append(info.RankedPlayerIDs, ranker)
	}
	sort.Strings(info.RankedPlayerIDs)

	info.Results = round.Results
	return info
}
