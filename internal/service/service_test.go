package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/playmix/trackclash/internal/store"
	"github.com/playmix/trackclash/internal/trackclash"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func validSettings() trackclash.SettingsInput {
	return trackclash.SettingsInput{
		Rounds:        intp(3),
		MaxPlayers:    intp(4),
		AllowExplicit: boolp(false),
	}
}

// newTestService wires the service to an in-memory store with a
// deterministic clock and id sequence.
func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	svc := New(st, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var seq int
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, st
}

func wantCode(t *testing.T, err error, code trackclash.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want code %s", code)
	}
	if !trackclash.IsCode(err, code) {
		t.Fatalf("error = %v (code %s), want code %s", err, trackclash.CodeOf(err), code)
	}
}

// fixture is a created game with three joined players. players[0] is
// the creator.
type fixture struct {
	svc     *Service
	st      *store.MemoryStore
	gameID  string
	players []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc, st := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateGame(ctx, "Alice", validSettings())
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	f := &fixture{svc: svc, st: st, gameID: info.GameID, players: []string{info.PlayerID}}

	for _, name := range []string{"Bob", "Carol"} {
		join, err := svc.JoinGame(ctx, f.gameID, name)
		if err != nil {
			t.Fatalf("JoinGame(%s): %v", name, err)
		}
		f.players = append(f.players, join.PlayerID)
	}
	return f
}

func (f *fixture) game(t *testing.T) *trackclash.Game {
	t.Helper()
	g, err := f.st.GetGame(context.Background(), f.gameID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	return g
}

func (f *fixture) round(t *testing.T, n int) *trackclash.Round {
	t.Helper()
	r, err := f.st.GetRound(context.Background(), f.gameID, n)
	if err != nil {
		t.Fatalf("GetRound(%d): %v", n, err)
	}
	return r
}

func (f *fixture) player(t *testing.T, id string) *trackclash.Player {
	t.Helper()
	p, err := f.st.GetPlayer(context.Background(), f.gameID, id)
	if err != nil {
		t.Fatalf("GetPlayer(%s): %v", id, err)
	}
	return p
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	if err := f.svc.StartGame(context.Background(), f.gameID, f.players[0]); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
}

// toRanking drives the current round from announcing into the ranking
// phase with every player having nominated the track "t-<playerID>".
func (f *fixture) toRanking(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	host := f.game(t).RoundHostPlayerID
	n := f.game(t).CurrentRound

	if err := f.svc.SetChallenge(ctx, f.gameID, n, "best road trip song", host); err != nil {
		t.Fatalf("SetChallenge: %v", err)
	}
	if err := f.svc.StartSelection(ctx, f.gameID, host); err != nil {
		t.Fatalf("StartSelection: %v", err)
	}
	for _, p := range f.players {
		song := SongInput{TrackID: "t-" + p, Name: "Song " + p, Artist: "Artist"}
		if err := f.svc.SubmitSong(ctx, f.gameID, song, p); err != nil {
			t.Fatalf("SubmitSong(%s): %v", p, err)
		}
	}
	if _, err := f.svc.StartPlayback(ctx, f.gameID, host); err != nil {
		t.Fatalf("StartPlayback: %v", err)
	}
	if err := f.svc.StartRanking(ctx, f.gameID, host); err != nil {
		t.Fatalf("StartRanking: %v", err)
	}
}

// ballotFor ranks every other player's track, best rank first in
// f.players order.
func (f *fixture) ballotFor(playerID string) map[string]int {
	ballot := make(map[string]int)
	rank := 1
	for _, p := range f.players {
		if p == playerID {
			continue
		}
		ballot["t-"+p] = rank
		rank++
	}
	return ballot
}

func TestCreateGame(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateGame(ctx, "  Alice  ", validSettings())
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if info.Token == "" || info.GameID == "" || info.PlayerID == "" {
		t.Fatalf("info = %+v, want all fields set", info)
	}

	game, err := st.GetGame(ctx, info.GameID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if game.Status != trackclash.StatusWaiting || game.CurrentRound != 0 {
		t.Errorf("game = status %q round %d, want waiting/0", game.Status, game.CurrentRound)
	}
	if game.CreatorPlayerID != info.PlayerID {
		t.Errorf("creator = %q, want %q", game.CreatorPlayerID, info.PlayerID)
	}

	creator, err := st.GetPlayer(ctx, info.GameID, info.PlayerID)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if creator.Name != "Alice" {
		t.Errorf("name = %q, want trimmed %q", creator.Name, "Alice")
	}
	if !creator.JokerAvailable {
		t.Error("creator joker not available at game start")
	}

	sess, err := st.SessionByToken(ctx, info.Token)
	if err != nil {
		t.Fatalf("SessionByToken: %v", err)
	}
	if sess.GameID != info.GameID || sess.PlayerID != info.PlayerID {
		t.Errorf("session = %+v, want bound to created game and player", sess)
	}
}

func TestCreateGameRejects(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateGame(ctx, "   ", validSettings())
	wantCode(t, err, trackclash.CodeInvalidArgument)

	bad := validSettings()
	bad.Rounds = intp(7)
	_, err = svc.CreateGame(ctx, "Alice", bad)
	wantCode(t, err, trackclash.CodeInvalidArgument)
}

func TestJoinGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	players, err := f.st.ListPlayers(ctx, f.gameID)
	if err != nil {
		t.Fatalf("ListPlayers: %v", err)
	}
	if len(players) != 3 {
		t.Fatalf("players = %d, want 3", len(players))
	}
	for i, want := range f.players {
		if players[i].ID != want {
			t.Errorf("players[%d] = %q, want %q (join order)", i, players[i].ID, want)
		}
	}
}

func TestJoinGameFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Fixture settings cap at 4 players; the fifth join must fail.
	if _, err := f.svc.JoinGame(ctx, f.gameID, "Dave"); err != nil {
		t.Fatalf("fourth join: %v", err)
	}
	_, err := f.svc.JoinGame(ctx, f.gameID, "Eve")
	wantCode(t, err, trackclash.CodeFailedPrecondition)
}

func TestJoinGameAfterStart(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	_, err := f.svc.JoinGame(context.Background(), f.gameID, "Dave")
	wantCode(t, err, trackclash.CodeFailedPrecondition)
}

func TestJoinGameUnknown(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.JoinGame(context.Background(), "nope", "Dave")
	wantCode(t, err, trackclash.CodeNotFound)
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validSettings()
	in.Rounds = intp(5)
	in.MaxPlayers = intp(6)
	if err := f.svc.UpdateSettings(ctx, f.gameID, in, f.players[0]); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	game := f.game(t)
	if game.Settings.Rounds != 5 || game.Settings.MaxPlayers != 6 {
		t.Errorf("settings = %+v, want rounds=5 maxPlayers=6", game.Settings)
	}
}

func TestUpdateSettingsAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.UpdateSettings(ctx, f.gameID, validSettings(), f.players[1])
	wantCode(t, err, trackclash.CodePermissionDenied)

	// Validation runs before the transaction: a non-creator sending
	// invalid settings sees the validation error.
	bad := validSettings()
	bad.MaxPlayers = nil
	err = f.svc.UpdateSettings(ctx, f.gameID, bad, f.players[1])
	wantCode(t, err, trackclash.CodeInvalidArgument)
}

func TestUpdateSettingsAfterStart(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	err := f.svc.UpdateSettings(context.Background(), f.gameID, validSettings(), f.players[0])
	wantCode(t, err, trackclash.CodeFailedPrecondition)
}

func TestStartGame(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	game := f.game(t)
	if !game.Status.Is(1, trackclash.PhaseAnnouncing) {
		t.Errorf("status = %q, want round1_announcing", game.Status)
	}
	if game.CurrentRound != 1 || game.TotalRounds != 3 {
		t.Errorf("currentRound/totalRounds = %d/%d, want 1/3", game.CurrentRound, game.TotalRounds)
	}
	if game.RoundHostPlayerID != f.players[0] {
		t.Errorf("host = %q, want the creator %q", game.RoundHostPlayerID, f.players[0])
	}

	round := f.round(t, 1)
	if round.Status != trackclash.PhaseAnnouncing || round.HostPlayerID != f.players[0] {
		t.Errorf("round = %+v, want announcing hosted by creator", round)
	}
}

func TestStartGameNeedsPlayers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateGame(ctx, "Alice", validSettings())
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	err = svc.StartGame(ctx, info.GameID, info.PlayerID)
	wantCode(t, err, trackclash.CodeFailedPrecondition)
}

func TestStartGameNonParticipant(t *testing.T) {
	f := newFixture(t)

	err := f.svc.StartGame(context.Background(), f.gameID, "stranger")
	wantCode(t, err, trackclash.CodePermissionDenied)
}

func TestStartGameTwice(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	err := f.svc.StartGame(context.Background(), f.gameID, f.players[0])
	wantCode(t, err, trackclash.CodeFailedPrecondition)
}

func TestSetChallenge(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	if err := f.svc.SetChallenge(ctx, f.gameID, 1, "  songs about rain  ", f.players[0]); err != nil {
		t.Fatalf("SetChallenge: %v", err)
	}

	if got := f.game(t).Challenge; got != "songs about rain" {
		t.Errorf("game challenge = %q, want trimmed text", got)
	}
	if got := f.round(t, 1).Challenge; got != "songs about rain" {
		t.Errorf("round challenge = %q, want trimmed text", got)
	}
	// Setting the challenge alone does not advance the phase.
	if got := f.game(t).Status; !got.Is(1, trackclash.PhaseAnnouncing) {
		t.Errorf("status = %q, want still announcing", got)
	}
}

func TestSetChallengeRejects(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	err := f.svc.SetChallenge(ctx, f.gameID, 1, "   ", f.players[0])
	wantCode(t, err, trackclash.CodeInvalidArgument)

	err = f.svc.SetChallenge(ctx, f.gameID, 1, "anything", f.players[1])
	wantCode(t, err, trackclash.CodePermissionDenied)

	err = f.svc.SetChallenge(ctx, f.gameID, 2, "anything", f.players[0])
	wantCode(t, err, trackclash.CodeFailedPrecondition)
}

func TestStartSelectionRequiresChallenge(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	err := f.svc.StartSelection(ctx, f.gameID, f.players[1])
	wantCode(t, err, trackclash.CodeFailedPrecondition)

	if err := f.svc.SetChallenge(ctx, f.gameID, 1, "one-hit wonders", f.players[0]); err != nil {
		t.Fatalf("SetChallenge: %v", err)
	}
	if err := f.svc.StartSelection(ctx, f.gameID, f.players[1]); err != nil {
		t.Fatalf("StartSelection: %v", err)
	}

	if got := f.game(t).Status; !got.Is(1, trackclash.PhaseSelecting) {
		t.Errorf("status = %q, want round1_selecting", got)
	}
	if got := f.round(t, 1).Status; got != trackclash.PhaseSelecting {
		t.Errorf("round status = %q, want selecting_songs", got)
	}
}

func TestSubmitSongReplacesPick(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	if err := f.svc.SetChallenge(ctx, f.gameID, 1, "covers", f.players[0]); err != nil {
		t.Fatalf("SetChallenge: %v", err)
	}
	if err := f.svc.StartSelection(ctx, f.gameID, f.players[0]); err != nil {
		t.Fatalf("StartSelection: %v", err)
	}

	first := SongInput{TrackID: "t1", Name: "First", Artist: "A"}
	if err := f.svc.SubmitSong(ctx, f.gameID, first, f.players[1]); err != nil {
		t.Fatalf("SubmitSong: %v", err)
	}
	second := SongInput{TrackID: "t2", Name: "Second", Artist: "B"}
	if err := f.svc.SubmitSong(ctx, f.gameID, second, f.players[1]); err != nil {
		t.Fatalf("SubmitSong (replace): %v", err)
	}

	round := f.round(t, 1)
	if len(round.PlayerSongs) != 1 {
		t.Fatalf("playerSongs = %d entries, want 1", len(round.PlayerSongs))
	}
	if got := round.PlayerSongs[f.players[1]]; got.TrackID != "t2" {
		t.Errorf("pick = %q, want replacement t2", got.TrackID)
	}
}

func TestSubmitSongRejectsDuplicateTrack(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	if err := f.svc.SetChallenge(ctx, f.gameID, 1, "guilty pleasures", f.players[0]); err != nil {
		t.Fatalf("SetChallenge: %v", err)
	}
	if err := f.svc.StartSelection(ctx, f.gameID, f.players[0]); err != nil {
		t.Fatalf("StartSelection: %v", err)
	}

	shared := SongInput{TrackID: "t-shared", Name: "Same Song", Artist: "A"}
	if err := f.svc.SubmitSong(ctx, f.gameID, shared, f.players[0]); err != nil {
		t.Fatalf("SubmitSong: %v", err)
	}

	// A second player picking the same track must be rejected: scoring
	// pays points per track, so shared ownership would inflate payouts.
	err := f.svc.SubmitSong(ctx, f.gameID, shared, f.players[1])
	wantCode(t, err, trackclash.CodeInvalidArgument)

	round := f.round(t, 1)
	if len(round.PlayerSongs) != 1 {
		t.Fatalf("playerSongs = %d entries, want only the first nomination", len(round.PlayerSongs))
	}
	if _, ok := round.SongByOwner(f.players[1]); ok {
		t.Error("rejected nomination was recorded")
	}

	// The original owner may still swap to the same track (replacing
	// their own pick is not a duplicate).
	if err := f.svc.SubmitSong(ctx, f.gameID, shared, f.players[0]); err != nil {
		t.Fatalf("SubmitSong (own resubmission): %v", err)
	}

	// A different track from the second player goes through.
	other := SongInput{TrackID: "t-other", Name: "Other Song", Artist: "B"}
	if err := f.svc.SubmitSong(ctx, f.gameID, other, f.players[1]); err != nil {
		t.Fatalf("SubmitSong (distinct track): %v", err)
	}
}

func TestSubmitSongRejects(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	// Wrong phase: selection has not started.
	err := f.svc.SubmitSong(ctx, f.gameID, SongInput{TrackID: "t1", Name: "N", Artist: "A"}, f.players[1])
	wantCode(t, err, trackclash.CodeFailedPrecondition)

	if err := f.svc.SetChallenge(ctx, f.gameID, 1, "covers", f.players[0]); err != nil {
		t.Fatalf("SetChallenge: %v", err)
	}
	if err := f.svc.StartSelection(ctx, f.gameID, f.players[0]); err != nil {
		t.Fatalf("StartSelection: %v", err)
	}

	err = f.svc.SubmitSong(ctx, f.gameID, SongInput{TrackID: "", Name: "N", Artist: "A"}, f.players[1])
	wantCode(t, err, trackclash.CodeInvalidArgument)

	// Fixture game disallows explicit tracks.
	err = f.svc.SubmitSong(ctx, f.gameID, SongInput{TrackID: "t1", Name: "N", Artist: "A", Explicit: true}, f.players[1])
	wantCode(t, err, trackclash.CodeInvalidArgument)

	err = f.svc.SubmitSong(ctx, f.gameID, SongInput{TrackID: "t1", Name: "N", Artist: "A"}, "stranger")
	wantCode(t, err, trackclash.CodePermissionDenied)
}

func TestStartPlaybackSnapshotOrder(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	if err := f.svc.SetChallenge(ctx, f.gameID, 1, "duets", f.players[0]); err != nil {
		t.Fatalf("SetChallenge: %v", err)
	}
	if err := f.svc.StartSelection(ctx, f.gameID, f.players[0]); err != nil {
		t.Fatalf("StartSelection: %v", err)
	}
	// Submission order: players[2], players[0], players[1]. The
	// deterministic clock advances per call, so the snapshot must come
	// back in that submission order.
	order := []string{f.players[2], f.players[0], f.players[1]}
	for _, p := range order {
		if err := f.svc.SubmitSong(ctx, f.gameID, SongInput{TrackID: "t-" + p, Name: "S", Artist: "A"}, p); err != nil {
			t.Fatalf("SubmitSong(%s): %v", p, err)
		}
	}

	outcome, err := f.svc.StartPlayback(ctx, f.gameID, f.players[0])
	if err != nil {
		t.Fatalf("StartPlayback: %v", err)
	}
	if outcome.RankingSkipped {
		t.Fatal("RankingSkipped = true, want full round with 3 songs")
	}

	round := f.round(t, 1)
	if round.Status != trackclash.PhasePlayback {
		t.Errorf("round status = %q, want playback", round.Status)
	}
	for i, p := range order {
		if round.SongsForRanking[i].TrackID != "t-"+p {
			t.Errorf("snapshot[%d] = %q, want %q", i, round.SongsForRanking[i].TrackID, "t-"+p)
		}
	}
}

func TestStartPlaybackHostOnly(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	if err := f.svc.SetChallenge(ctx, f.gameID, 1, "duets", f.players[0]); err != nil {
		t.Fatalf("SetChallenge: %v", err)
	}
	if err := f.svc.StartSelection(ctx, f.gameID, f.players[0]); err != nil {
		t.Fatalf("StartSelection: %v", err)
	}

	_, err := f.svc.StartPlayback(ctx, f.gameID, f.players[1])
	wantCode(t, err, trackclash.CodePermissionDenied)
}

func TestStartPlaybackSkipsRankingWithOneSong(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	if err := f.svc.SetChallenge(ctx, f.gameID, 1, "b-sides", f.players[0]); err != nil {
		t.Fatalf("SetChallenge: %v", err)
	}
	if err := f.svc.StartSelection(ctx, f.gameID, f.players[0]); err != nil {
		t.Fatalf("StartSelection: %v", err)
	}
	if err := f.svc.SubmitSong(ctx, f.gameID, SongInput{TrackID: "t1", Name: "S", Artist: "A"}, f.players[0]); err != nil {
		t.Fatalf("SubmitSong: %v", err)
	}

	outcome, err := f.svc.StartPlayback(ctx, f.gameID, f.players[0])
	if err != nil {
		t.Fatalf("StartPlayback: %v", err)
	}
	if !outcome.RankingSkipped {
		t.Fatal("RankingSkipped = false, want skip with a single song")
	}

	game := f.game(t)
	if !game.Status.Is(1, trackclash.PhaseFinished) {
		t.Errorf("status = %q, want round1_finished", game.Status)
	}
	round := f.round(t, 1)
	if round.Status != trackclash.PhaseFinished || round.Results == nil {
		t.Fatalf("round = %+v, want finished with results", round)
	}
	if len(round.Results.WinnerPlayerIDs) != 0 {
		t.Errorf("winners = %v, want none without ballots", round.Results.WinnerPlayerIDs)
	}
	// No points were awarded.
	for _, p := range f.players {
		if score := f.player(t, p).Score; score != 0 {
			t.Errorf("score of %s = %d, want 0", p, score)
		}
	}
}

func TestControlPlayback(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.toRanking(t)
	ctx := context.Background()

	// Ranking phase still accepts playback control.
	idx := 2
	playing := true
	err := f.svc.ControlPlayback(ctx, f.gameID, PlaybackUpdate{TrackIndex: &idx, IsPlaying: &playing}, f.players[0])
	if err != nil {
		t.Fatalf("ControlPlayback: %v", err)
	}

	round := f.round(t, 1)
	if round.CurrentPlayingTrackIndex != 2 || !round.IsPlaying {
		t.Errorf("cursor = (%d, %v), want (2, true)", round.CurrentPlayingTrackIndex, round.IsPlaying)
	}

	// Partial update leaves other fields alone.
	paused := false
	if err := f.svc.ControlPlayback(ctx, f.gameID, PlaybackUpdate{IsPlaying: &paused}, f.players[0]); err != nil {
		t.Fatalf("ControlPlayback (partial): %v", err)
	}
	round = f.round(t, 1)
	if round.CurrentPlayingTrackIndex != 2 || round.IsPlaying {
		t.Errorf("cursor = (%d, %v), want (2, false)", round.CurrentPlayingTrackIndex, round.IsPlaying)
	}

	out := 5
	err = f.svc.ControlPlayback(ctx, f.gameID, PlaybackUpdate{TrackIndex: &out}, f.players[0])
	wantCode(t, err, trackclash.CodeInvalidArgument)

	err = f.svc.ControlPlayback(ctx, f.gameID, PlaybackUpdate{IsPlaying: &playing}, f.players[1])
	wantCode(t, err, trackclash.CodePermissionDenied)
}

func TestStartRanking(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.toRanking(t)

	game := f.game(t)
	if !game.Status.Is(1, trackclash.PhaseRanking) {
		t.Errorf("status = %q, want round1_ranking", game.Status)
	}
	round := f.round(t, 1)
	if round.Status != trackclash.PhaseRanking {
		t.Errorf("round status = %q, want ranking", round.Status)
	}
	if round.RankingStartTime == nil {
		t.Error("rankingStartTime not set")
	}
}

func TestSubmitRankingAutoFinalizes(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.toRanking(t)
	ctx := context.Background()

	for i, p := range f.players[:2] {
		outcome, err := f.svc.SubmitRanking(ctx, f.gameID, f.ballotFor(p), false, p)
		if err != nil {
			t.Fatalf("SubmitRanking(%s): %v", p, err)
		}
		if outcome.RoundFinished {
			t.Fatalf("ballot %d finished the round early", i+1)
		}
	}

	last := f.players[2]
	outcome, err := f.svc.SubmitRanking(ctx, f.gameID, f.ballotFor(last), false, last)
	if err != nil {
		t.Fatalf("SubmitRanking(last): %v", err)
	}
	if !outcome.RoundFinished || outcome.Results == nil {
		t.Fatalf("outcome = %+v, want finished with results", outcome)
	}

	game := f.game(t)
	if !game.Status.Is(1, trackclash.PhaseFinished) {
		t.Errorf("status = %q, want round1_finished", game.Status)
	}

	// Every ballot ranks the first non-self player's track highest, so
	// cumulative scores must match the scoring engine's output.
	round := f.round(t, 1)
	for _, p := range f.players {
		want := round.Results.PointsByPlayer[p]
		if got := f.player(t, p).Score; got != want {
			t.Errorf("score of %s = %d, want %d", p, got, want)
		}
	}
}

func TestSubmitRankingDuplicate(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.toRanking(t)
	ctx := context.Background()

	p := f.players[1]
	if _, err := f.svc.SubmitRanking(ctx, f.gameID, f.ballotFor(p), false, p); err != nil {
		t.Fatalf("SubmitRanking: %v", err)
	}
	_, err := f.svc.SubmitRanking(ctx, f.gameID, f.ballotFor(p), false, p)
	wantCode(t, err, trackclash.CodeFailedPrecondition)
}

func TestSubmitRankingInvalidBallotLeavesNoWrites(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.toRanking(t)
	ctx := context.Background()

	p := f.players[1]
	bad := f.ballotFor(p)
	bad["t-"+p] = 3 // own song

	_, err := f.svc.SubmitRanking(ctx, f.gameID, bad, true, p)
	wantCode(t, err, trackclash.CodeInvalidArgument)

	// The failed transaction must not have consumed the joker or
	// recorded a ballot.
	if !f.player(t, p).JokerAvailable {
		t.Error("joker consumed by a rejected ballot")
	}
	if f.round(t, 1).HasRanked(p) {
		t.Error("ballot recorded despite rejection")
	}
}

func TestSubmitRankingJoker(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.toRanking(t)
	ctx := context.Background()

	p := f.players[1]
	if _, err := f.svc.SubmitRanking(ctx, f.gameID, f.ballotFor(p), true, p); err != nil {
		t.Fatalf("SubmitRanking with joker: %v", err)
	}

	if f.player(t, p).JokerAvailable {
		t.Error("joker still available after use")
	}
	round := f.round(t, 1)
	if len(round.JokersUsed) != 1 || round.JokersUsed[0] != p {
		t.Errorf("jokersUsed = %v, want [%s]", round.JokersUsed, p)
	}
}

func TestJokerOnlyOncePerGame(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.toRanking(t)
	ctx := context.Background()

	p := f.players[1]
	if _, err := f.svc.SubmitRanking(ctx, f.gameID, f.ballotFor(p), true, p); err != nil {
		t.Fatalf("round 1 joker: %v", err)
	}
	for _, other := range []string{f.players[0], f.players[2]} {
		if _, err := f.svc.SubmitRanking(ctx, f.gameID, f.ballotFor(other), false, other); err != nil {
			t.Fatalf("SubmitRanking(%s): %v", other, err)
		}
	}

	if _, err := f.svc.StartNextRound(ctx, f.gameID, p); err != nil {
		t.Fatalf("StartNextRound: %v", err)
	}
	f.toRanking(t)

	_, err := f.svc.SubmitRanking(ctx, f.gameID, f.ballotFor(p), true, p)
	wantCode(t, err, trackclash.CodeFailedPrecondition)
}

func TestFinalizeRankingWithPartialBallots(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.toRanking(t)
	ctx := context.Background()

	p := f.players[0]
	if _, err := f.svc.SubmitRanking(ctx, f.gameID, f.ballotFor(p), false, p); err != nil {
		t.Fatalf("SubmitRanking: %v", err)
	}

	outcome, err := f.svc.FinalizeRanking(ctx, f.gameID, f.players[1])
	if err != nil {
		t.Fatalf("FinalizeRanking: %v", err)
	}
	if !outcome.RoundFinished {
		t.Fatal("RoundFinished = false")
	}

	// One ballot of two entries: rank 1 earns 2 points, rank 2 earns 1.
	round := f.round(t, 1)
	if round.Results.PointsByPlayer[f.players[1]] != 2 || round.Results.PointsByPlayer[f.players[2]] != 1 {
		t.Errorf("points = %v, want 2/1 for the ranked players", round.Results.PointsByPlayer)
	}
}

func TestStartNextRoundRotatesHost(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	finishRound := func() {
		f.toRanking(t)
		if _, err := f.svc.FinalizeRanking(ctx, f.gameID, f.players[0]); err != nil {
			t.Fatalf("FinalizeRanking: %v", err)
		}
	}

	finishRound()
	outcome, err := f.svc.StartNextRound(ctx, f.gameID, f.players[2])
	if err != nil {
		t.Fatalf("StartNextRound: %v", err)
	}
	if outcome.GameFinished || outcome.RoundNumber != 2 {
		t.Fatalf("outcome = %+v, want round 2", outcome)
	}
	if outcome.HostPlayerID != f.players[1] {
		t.Errorf("round 2 host = %q, want next in join order %q", outcome.HostPlayerID, f.players[1])
	}

	finishRound()
	outcome, err = f.svc.StartNextRound(ctx, f.gameID, f.players[0])
	if err != nil {
		t.Fatalf("StartNextRound: %v", err)
	}
	if outcome.HostPlayerID != f.players[2] {
		t.Errorf("round 3 host = %q, want %q", outcome.HostPlayerID, f.players[2])
	}

	game := f.game(t)
	if !game.Status.Is(3, trackclash.PhaseAnnouncing) || game.CurrentRound != 3 {
		t.Errorf("game = %q/%d, want round3_announcing", game.Status, game.CurrentRound)
	}
	if game.Challenge != "" {
		t.Errorf("challenge = %q, want cleared for the new round", game.Challenge)
	}
}

func TestStartNextRoundFinishesGame(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	for round := 1; round <= 3; round++ {
		f.toRanking(t)
		if _, err := f.svc.FinalizeRanking(ctx, f.gameID, f.players[0]); err != nil {
			t.Fatalf("FinalizeRanking round %d: %v", round, err)
		}
		outcome, err := f.svc.StartNextRound(ctx, f.gameID, f.players[0])
		if err != nil {
			t.Fatalf("StartNextRound after round %d: %v", round, err)
		}
		if round < 3 && outcome.GameFinished {
			t.Fatalf("game finished after round %d, want 3 rounds", round)
		}
		if round == 3 && !outcome.GameFinished {
			t.Fatal("game not finished after the final round")
		}
	}

	game := f.game(t)
	if game.Status != trackclash.StatusFinished {
		t.Errorf("status = %q, want finished", game.Status)
	}
	if game.CurrentRound != 3 {
		t.Errorf("currentRound = %d, want 3 (no round 4 created)", game.CurrentRound)
	}
	if _, err := f.st.GetRound(ctx, f.gameID, 4); err == nil {
		t.Error("round 4 exists, want none after the game finished")
	}
}

func TestStartNextRoundWrongPhase(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	_, err := f.svc.StartNextRound(context.Background(), f.gameID, f.players[0])
	wantCode(t, err, trackclash.CodeFailedPrecondition)
}

func TestScoresAccumulateAcrossRounds(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	playRound := func() {
		f.toRanking(t)
		for _, p := range f.players {
			if _, err := f.svc.SubmitRanking(ctx, f.gameID, f.ballotFor(p), false, p); err != nil {
				t.Fatalf("SubmitRanking(%s): %v", p, err)
			}
		}
	}

	playRound()
	round1 := f.round(t, 1)
	if _, err := f.svc.StartNextRound(ctx, f.gameID, f.players[0]); err != nil {
		t.Fatalf("StartNextRound: %v", err)
	}
	playRound()
	round2 := f.round(t, 2)

	for _, p := range f.players {
		want := round1.Results.PointsByPlayer[p] + round2.Results.PointsByPlayer[p]
		if got := f.player(t, p).Score; got != want {
			t.Errorf("score of %s = %d, want %d (sum of both rounds)", p, got, want)
		}
	}
}
