package trackclash

import "sort"

// ScoreRound computes per-owner points and the round winner set from
// the submitted ballots.
//
// Point curve: within a ballot of k ranked tracks, the track ranked r
// earns its owner k-r+1 points (rank 1 earns k, the last rank earns 1).
// Points aggregate across all ballots. A joker played this round
// doubles the total its owner's own song earned. The song(s) with the
// highest positive aggregate win; ties produce multiple winners, and a
// round where no ballot awarded any points has none.
func ScoreRound(r *Round) *RoundResults {
	byTrack := make(map[string]int)
	for _, ballot := range r.Rankings {
		k := len(ballot)
		for trackID, rank := range ballot {
			byTrack[trackID] += k - rank + 1
		}
	}

	joker := make(map[string]bool, len(r.JokersUsed))
	for _, playerID := range r.JokersUsed {
		joker[playerID] = true
	}

	results := &RoundResults{PointsByPlayer: make(map[string]int)}

	maxPoints := 0
	for owner, song := range r.PlayerSongs {
		points := byTrack[song.TrackID]
		if joker[owner] {
			points *= 2
		}
		results.PointsByPlayer[owner] = points
		if points > maxPoints {
			maxPoints = points
		}
	}

	if maxPoints > 0 {
		for owner, song := range r.PlayerSongs {
			if results.PointsByPlayer[owner] == maxPoints {
				results.WinnerPlayerIDs = append(results.WinnerPlayerIDs, owner)
				results.WinningTrackIDs = append(results.WinningTrackIDs, song.TrackID)
			}
		}
		sort.Strings(results.WinnerPlayerIDs)
		sort.Strings(results.WinningTrackIDs)
	}

	return results
}

// ValidateBallot checks a submitted ranking against the snapshot: it
// must cover every snapshot track except the ranker's own, with ranks
// forming a permutation of 1..k.
func ValidateBallot(r *Round, playerID string, ballot map[string]int) error {
	own := ""
	if song, ok := r.SongByOwner(playerID); ok {
		own = song.TrackID
	}

	expected := make(map[string]bool)
	for _, song := range r.SongsForRanking {
		if song.TrackID != own {
			expected[song.TrackID] = true
		}
	}

	if len(ballot) != len(expected) {
		return InvalidArgumentf("Ranking must cover all %d tracks (got %d).", len(expected), len(ballot))
	}

	seen := make(map[int]bool, len(ballot))
	for trackID, rank := range ballot {
		if trackID == own {
			return InvalidArgumentf("You cannot rank your own song.")
		}
		if !expected[trackID] {
			return InvalidArgumentf("Unknown track %q in ranking.", trackID)
		}
		if rank < 1 || rank > len(ballot) {
			return InvalidArgumentf("Rank %d for track %q is out of range 1..%d.", rank, trackID, len(ballot))
		}
		if seen[rank] {
			return InvalidArgumentf("Rank %d is used more than once.", rank)
		}
		seen[rank] = true
	}
	return nil
}
