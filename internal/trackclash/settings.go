package trackclash

import (
	"strconv"
	"strings"
)

// Enumerated domains for game settings. Every value outside these sets
// (including an absent field) is rejected before any storage access.
var (
	AllowedRounds     = []int{3, 4, 5}
	AllowedMaxPlayers = []int{4, 5, 6}
	AllowedTimeLimits = []int{30, 60, 90, 120} // seconds
)

// MinPlayersToStart is the minimum number of joined players required
// before a game can leave the waiting state.
const MinPlayersToStart = 2

// SettingsInput is the wire shape for settings. Pointers distinguish
// absent fields from zero values so that a missing rounds count or a
// missing allowExplicit flag fails validation rather than defaulting.
type SettingsInput struct {
	Rounds             *int  `json:"rounds"`
	MaxPlayers         *int  `json:"maxPlayers"`
	AllowExplicit      *bool `json:"allowExplicit"`
	SelectionTimeLimit *int  `json:"selectionTimeLimit"`
	RankingTimeLimit   *int  `json:"rankingTimeLimit"`
}

// Validate checks every field against its enumerated domain and
// returns the concrete settings, or an invalid-argument error naming
// the first offending field.
func (in SettingsInput) Validate() (Settings, error) {
	if in.Rounds == nil || !contains(AllowedRounds, *in.Rounds) {
		return Settings{}, InvalidArgumentf("Invalid number of rounds. Must be one of: %s.", joinInts(AllowedRounds))
	}
	if in.MaxPlayers == nil || !contains(AllowedMaxPlayers, *in.MaxPlayers) {
		return Settings{}, InvalidArgumentf("Invalid value for maxPlayers. Must be one of: %s.", joinInts(AllowedMaxPlayers))
	}
	if in.AllowExplicit == nil {
		return Settings{}, InvalidArgumentf("Invalid value for allowExplicit. Must be true or false.")
	}
	if in.SelectionTimeLimit != nil && !contains(AllowedTimeLimits, *in.SelectionTimeLimit) {
		return Settings{}, InvalidArgumentf("Invalid value for selectionTimeLimit. Must be null or one of: %s.", joinInts(AllowedTimeLimits))
	}
	if in.RankingTimeLimit != nil && !contains(AllowedTimeLimits, *in.RankingTimeLimit) {
		return Settings{}, InvalidArgumentf("Invalid value for rankingTimeLimit. Must be null or one of: %s.", joinInts(AllowedTimeLimits))
	}

	return Settings{
		Rounds:             *in.Rounds,
		MaxPlayers:         *in.MaxPlayers,
		AllowExplicit:      *in.AllowExplicit,
		SelectionTimeLimit: in.SelectionTimeLimit,
		RankingTimeLimit:   in.RankingTimeLimit,
	}, nil
}

func contains(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func joinInts(set []int) string {
	parts := make([]string, len(set))
	for i, v := range set {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
