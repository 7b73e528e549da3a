// Package trackclash defines the core domain types, the game status
// machine, settings validation, and the scoring engine. It has zero
// external dependencies — everything here is pure Go.
package trackclash

import "time"

// Settings are the per-game options chosen by the creator while the
// game is still in the waiting state. TotalRounds is derived from
// Rounds at game start and immutable afterward.
type Settings struct {
	Rounds             int  `json:"rounds"`
	MaxPlayers         int  `json:"maxPlayers"`
	AllowExplicit      bool `json:"allowExplicit"`
	SelectionTimeLimit *int `json:"selectionTimeLimit"` // seconds, nil = no limit
	RankingTimeLimit   *int `json:"rankingTimeLimit"`   // seconds, nil = no limit
}

// Game is the session-level document. Status and CurrentRound must
// stay mutually consistent: a round{N}_* status implies CurrentRound == N.
type Game struct {
	ID                string    `json:"id"`
	Status            Status    `json:"status"`
	CreatorPlayerID   string    `json:"creatorPlayerId"`
	RoundHostPlayerID string    `json:"roundHostPlayerId"`
	CurrentRound      int       `json:"currentRound"`
	TotalRounds       int       `json:"totalRounds"`
	Settings          Settings  `json:"settings"`
	Challenge         string    `json:"challenge"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Player holds cross-round identity and the cumulative score. Players
// are created on join and never deleted while a game is active; Score
// only ever grows, and only through the scoring step.
type Player struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Score          int       `json:"score"`
	HasJoined      bool      `json:"hasJoined"`
	JoinedAt       time.Time `json:"joinedAt"`
	JokerAvailable bool      `json:"jokerAvailable"`
}

// Song is a player's nomination for a round's challenge.
type Song struct {
	TrackID       string    `json:"trackId"`
	Name          string    `json:"name"`
	Artist        string    `json:"artist"`
	PreviewURL    string    `json:"previewUrl"`
	AlbumImageURL string    `json:"albumImageUrl"`
	Explicit      bool      `json:"explicit"`
	SubmittedBy   string    `json:"submittedBy"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// Round owns the per-round ephemeral state. A round document is
// created in the same transaction that moves the game into that
// round's announcing status, and after finishing it is only touched
// once more, to attach the computed results.
type Round struct {
	RoundNumber  int    `json:"roundNumber"`
	Status       Phase  `json:"status"`
	Challenge    string `json:"challenge"`
	HostPlayerID string `json:"hostPlayerId"`

	// PlayerSongs maps playerID -> nomination while selection is open.
	PlayerSongs map[string]Song `json:"playerSongs,omitempty"`

	// SongsForRanking is the immutable snapshot taken when selection
	// closes; playback and ranking index into it.
	SongsForRanking []Song `json:"songsForRanking,omitempty"`

	RankingStartTime *time.Time `json:"rankingStartTime,omitempty"`

	// Host-controlled shared playback cursor.
	CurrentPlayingTrackIndex int        `json:"currentPlayingTrackIndex"`
	IsPlaying                bool       `json:"isPlaying"`
	PlaybackEndTime          *time.Time `json:"playbackEndTime,omitempty"`

	// Rankings maps playerID -> (trackID -> rank). One ballot per
	// player; a ballot covers every snapshot track except the
	// ranker's own.
	Rankings map[string]map[string]int `json:"rankings,omitempty"`

	// JokersUsed lists players who spent their once-per-game joker
	// on this round.
	JokersUsed []string `json:"jokersUsed,omitempty"`

	Results *RoundResults `json:"results,omitempty"`
}

// RoundResults is attached to a round when scoring completes.
type RoundResults struct {
	PointsByPlayer  map[string]int `json:"pointsByPlayer"`
	WinnerPlayerIDs []string       `json:"winnerPlayerIds"`
	WinningTrackIDs []string       `json:"winningTrackIds"`
}

// HasRanked reports whether playerID already submitted a ballot.
func (r *Round) HasRanked(playerID string) bool {
	_, ok := r.Rankings[playerID]
	return ok
}

// SongByOwner returns the track nominated by playerID, if any.
func (r *Round) SongByOwner(playerID string) (Song, bool) {
	s, ok := r.PlayerSongs[playerID]
	return s, ok
}
