package trackclash

import (
	"reflect"
	"testing"
)

// roundWithSongs builds a ranking-phase round where each player in
// owners nominated the track "t-<owner>".
func roundWithSongs(owners ...string) *Round {
	r := &Round{
		RoundNumber: 1,
		Status:      PhaseRanking,
		PlayerSongs: make(map[string]Song),
	}
	for _, owner := range owners {
		song := Song{TrackID: "t-" + owner, SubmittedBy: owner}
		r.PlayerSongs[owner] = song
		r.SongsForRanking = append(r.SongsForRanking, song)
	}
	return r
}

func TestScoreRoundSingleWinner(t *testing.T) {
	r := roundWithSongs("alice", "bob", "carol")
	// Each ballot ranks the two foreign tracks: rank 1 earns 2, rank 2 earns 1.
	r.Rankings = map[string]map[string]int{
		"alice": {"t-bob": 1, "t-carol": 2},
		"bob":   {"t-alice": 1, "t-carol": 2},
		"carol": {"t-bob": 1, "t-alice": 2},
	}

	results := ScoreRound(r)

	want := map[string]int{"alice": 3, "bob": 4, "carol": 2}
	if !reflect.DeepEqual(results.PointsByPlayer, want) {
		t.Fatalf("PointsByPlayer = %v, want %v", results.PointsByPlayer, want)
	}
	if !reflect.DeepEqual(results.WinnerPlayerIDs, []string{"bob"}) {
		t.Errorf("WinnerPlayerIDs = %v, want [bob]", results.WinnerPlayerIDs)
	}
	if !reflect.DeepEqual(results.WinningTrackIDs, []string{"t-bob"}) {
		t.Errorf("WinningTrackIDs = %v, want [t-bob]", results.WinningTrackIDs)
	}
}

func TestScoreRoundTie(t *testing.T) {
	r := roundWithSongs("alice", "bob")
	// With two players each ballot has a single entry worth 1 point.
	r.Rankings = map[string]map[string]int{
		"alice": {"t-bob": 1},
		"bob":   {"t-alice": 1},
	}

	results := ScoreRound(r)

	if results.PointsByPlayer["alice"] != 1 || results.PointsByPlayer["bob"] != 1 {
		t.Fatalf("PointsByPlayer = %v, want 1 each", results.PointsByPlayer)
	}
	if !reflect.DeepEqual(results.WinnerPlayerIDs, []string{"alice", "bob"}) {
		t.Errorf("WinnerPlayerIDs = %v, want [alice bob]", results.WinnerPlayerIDs)
	}
}

func TestScoreRoundNoBallots(t *testing.T) {
	r := roundWithSongs("alice", "bob")

	results := ScoreRound(r)

	if results.PointsByPlayer["alice"] != 0 || results.PointsByPlayer["bob"] != 0 {
		t.Fatalf("PointsByPlayer = %v, want zeros", results.PointsByPlayer)
	}
	if len(results.WinnerPlayerIDs) != 0 {
		t.Errorf("WinnerPlayerIDs = %v, want none when no points were awarded", results.WinnerPlayerIDs)
	}
}

func TestScoreRoundJokerDoubles(t *testing.T) {
	r := roundWithSongs("alice", "bob", "carol")
	r.Rankings = map[string]map[string]int{
		"alice": {"t-bob": 1, "t-carol": 2},
		"bob":   {"t-alice": 1, "t-carol": 2},
		"carol": {"t-bob": 1, "t-alice": 2},
	}
	r.JokersUsed = []string{"carol"}

	results := ScoreRound(r)

	// carol's raw 2 points double to 4, overtaking bob's 4 for a tie.
	if results.PointsByPlayer["carol"] != 4 {
		t.Fatalf("carol = %d, want 4 (joker doubles)", results.PointsByPlayer["carol"])
	}
	if !reflect.DeepEqual(results.WinnerPlayerIDs, []string{"bob", "carol"}) {
		t.Errorf("WinnerPlayerIDs = %v, want [bob carol]", results.WinnerPlayerIDs)
	}
}

func TestScoreRoundJokerOnZeroStaysZero(t *testing.T) {
	r := roundWithSongs("alice", "bob")
	r.JokersUsed = []string{"alice"}

	results := ScoreRound(r)

	if results.PointsByPlayer["alice"] != 0 {
		t.Fatalf("alice = %d, want 0 (doubling zero)", results.PointsByPlayer["alice"])
	}
	if len(results.WinnerPlayerIDs) != 0 {
		t.Errorf("WinnerPlayerIDs = %v, want none", results.WinnerPlayerIDs)
	}
}

func TestValidateBallot(t *testing.T) {
	r := roundWithSongs("alice", "bob", "carol", "dave")

	if err := ValidateBallot(r, "alice", map[string]int{"t-bob": 1, "t-carol": 2, "t-dave": 3}); err != nil {
		t.Fatalf("valid ballot rejected: %v", err)
	}
}

func TestValidateBallotRejects(t *testing.T) {
	r := roundWithSongs("alice", "bob", "carol", "dave")

	tests := []struct {
		name   string
		ballot map[string]int
	}{
		{"too few entries", map[string]int{"t-bob": 1, "t-carol": 2}},
		{"own song ranked", map[string]int{"t-alice": 1, "t-bob": 2, "t-carol": 3}},
		{"unknown track", map[string]int{"t-bob": 1, "t-carol": 2, "t-nope": 3}},
		{"rank zero", map[string]int{"t-bob": 0, "t-carol": 1, "t-dave": 2}},
		{"rank too high", map[string]int{"t-bob": 1, "t-carol": 2, "t-dave": 4}},
		{"duplicate rank", map[string]int{"t-bob": 1, "t-carol": 1, "t-dave": 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBallot(r, "alice", tt.ballot)
			if err == nil {
				t.Fatalf("ValidateBallot accepted %v", tt.ballot)
			}
			if !IsCode(err, CodeInvalidArgument) {
				t.Errorf("code = %v, want %v", CodeOf(err), CodeInvalidArgument)
			}
		})
	}
}

func TestValidateBallotPlayerWithoutOwnSong(t *testing.T) {
	// A player who never nominated must still rank every snapshot track.
	r := roundWithSongs("alice", "bob", "carol")

	if err := ValidateBallot(r, "dave", map[string]int{"t-alice": 1, "t-bob": 2, "t-carol": 3}); err != nil {
		t.Fatalf("full ballot from non-nominating player rejected: %v", err)
	}
	if err := ValidateBallot(r, "dave", map[string]int{"t-alice": 1, "t-bob": 2}); err == nil {
		t.Fatal("partial ballot accepted")
	}
}
