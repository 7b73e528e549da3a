package trackclash

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the game-level state machine value. Besides the two
// terminal-ish values below it takes the form "round{N}_{phase}",
// e.g. "round2_selecting".
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusFinished Status = "finished"
)

// Phase is the round-local segment of a round's lifecycle, stored on
// the round document and mirrored into the game status suffix.
type Phase string

const (
	PhaseAnnouncing Phase = "announcing"
	PhaseSelecting  Phase = "selecting_songs"
	PhasePlayback   Phase = "playback"
	PhaseRanking    Phase = "ranking"
	PhaseScoring    Phase = "scoring"
	PhaseFinished   Phase = "finished"
)

// statusSuffix maps a phase to the game-status suffix. The selection
// phase is the only one where the two spellings differ.
func statusSuffix(p Phase) string {
	if p == PhaseSelecting {
		return "selecting"
	}
	return string(p)
}

func phaseFromSuffix(s string) (Phase, bool) {
	switch s {
	case "announcing":
		return PhaseAnnouncing, true
	case "selecting":
		return PhaseSelecting, true
	case "playback":
		return PhasePlayback, true
	case "ranking":
		return PhaseRanking, true
	case "scoring":
		return PhaseScoring, true
	case "finished":
		return PhaseFinished, true
	}
	return "", false
}

// RoundStatus builds the game status for round number n in phase p.
func RoundStatus(n int, p Phase) Status {
	return Status(fmt.Sprintf("round%d_%s", n, statusSuffix(p)))
}

// RoundPhase splits a round-scoped status into its round number and
// phase. ok is false for "waiting", "finished", and anything malformed.
func (s Status) RoundPhase() (round int, phase Phase, ok bool) {
	rest, found := strings.CutPrefix(string(s), "round")
	if !found {
		return 0, "", false
	}
	numStr, suffix, found := strings.Cut(rest, "_")
	if !found {
		return 0, "", false
	}
	n, err := strconv.Atoi(numStr)
	if err != nil || n < 1 {
		return 0, "", false
	}
	p, ok := phaseFromSuffix(suffix)
	if !ok {
		return 0, "", false
	}
	return n, p, true
}

// Is reports whether s is exactly round n in phase p.
func (s Status) Is(n int, p Phase) bool {
	return s == RoundStatus(n, p)
}
