package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/playmix/trackclash/internal/store"
	"github.com/playmix/trackclash/internal/trackclash"
)

// SongInput carries provider track metadata for a nomination.
type SongInput struct {
	TrackID       string `json:"trackId"`
	Name          string `json:"name"`
	Artist        string `json:"artist"`
	PreviewURL    string `json:"previewUrl"`
	AlbumImageURL string `json:"albumImageUrl"`
	Explicit      bool   `json:"explicit"`
}

// PlaybackUpdate is a partial update of the shared playback cursor.
// Nil fields are left untouched.
type PlaybackUpdate struct {
	TrackIndex      *int       `json:"trackIndex"`
	IsPlaying       *bool      `json:"isPlaying"`
	PlaybackEndTime *time.Time `json:"playbackEndTime"`
}

// PlaybackOutcome reports whether closing selection skipped straight to
// a finished round because there was nothing meaningful to rank.
type PlaybackOutcome struct {
	RankingSkipped bool
	Results        *trackclash.RoundResults
}

// RankingOutcome reports whether a ballot submission completed the
// round (last eligible ballot triggers scoring in the same transaction).
type RankingOutcome struct {
	RoundFinished bool
	Results       *trackclash.RoundResults
}

// NextRoundOutcome describes what StartNextRound did.
type NextRoundOutcome struct {
	GameFinished bool
	RoundNumber  int
	HostPlayerID string
}

// requireGameRound checks that the game is in the given phase of its
// current round AND that the round document agrees. Both are updated
// together but read independently here for race safety.
func requireGameRound(ctx context.Context, tx store.Tx, game *trackclash.Game, phase trackclash.Phase) (*trackclash.Round, error) {
	if !game.Status.Is(game.CurrentRound, phase) {
		return nil, trackclash.FailedPreconditionf("Game is not in the %s phase (current status: %s).", phase, game.Status)
	}
	round, err := loadCurrentRound(ctx, tx, game)
	if err != nil {
		return nil, err
	}
	if round.Status != phase {
		return nil, trackclash.FailedPreconditionf("Round %d is not in the %s phase (current: %s).", round.RoundNumber, phase, round.Status)
	}
	return round, nil
}

// SetChallenge writes the round host's challenge text onto both the
// game and round documents. The status does not change; starting the
// selection phase is a separate explicit action.
func (s *Service) SetChallenge(ctx context.Context, gameID string, roundNumber int, challenge, requestingPlayerID string) error {
	challenge = strings.TrimSpace(challenge)
	if challenge == "" {
		return trackclash.InvalidArgumentf("Challenge text must not be empty.")
	}

	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		game, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if err := requireHost(game, requestingPlayerID, "set the challenge"); err != nil {
			return err
		}
		if roundNumber != game.CurrentRound {
			return trackclash.FailedPreconditionf("Round %d is not the current round (current: %d).", roundNumber, game.CurrentRound)
		}
		round, err := requireGameRound(ctx, tx, game, trackclash.PhaseAnnouncing)
		if err != nil {
			return err
		}

		game.Challenge = challenge
		round.Challenge = challenge
		if err := tx.UpdateGame(ctx, game); err != nil {
			return err
		}
		return tx.UpdateRound(ctx, gameID, round)
	})
}

// StartSelection moves an announced round into song selection. Any
// participant may trigger it once a challenge exists.
func (s *Service) StartSelection(ctx context.Context, gameID, requestingPlayerID string) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		game, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if _, err := requireParticipant(ctx, tx, gameID, requestingPlayerID); err != nil {
			return err
		}
		round, err := requireGameRound(ctx, tx, game, trackclash.PhaseAnnouncing)
		if err != nil {
			return err
		}
		if round.Challenge == "" {
			return trackclash.FailedPreconditionf("No challenge has been announced for round %d yet.", round.RoundNumber)
		}

		game.Status = trackclash.RoundStatus(game.CurrentRound, trackclash.PhaseSelecting)
		round.Status = trackclash.PhaseSelecting
		if err := tx.UpdateGame(ctx, game); err != nil {
			return err
		}
		return tx.UpdateRound(ctx, gameID, round)
	})
}

// SubmitSong records a player's nomination for the current round.
// Resubmitting while selection is open replaces the player's previous
// pick.
func (s *Service) SubmitSong(ctx context.Context, gameID string, in SongInput, requestingPlayerID string) error {
	if strings.TrimSpace(in.TrackID) == "" || strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Artist) == "" {
		return trackclash.InvalidArgumentf("A nomination needs a track id, name, and artist.")
	}

	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		game, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if _, err := requireParticipant(ctx, tx, gameID, requestingPlayerID); err != nil {
			return err
		}
		if in.Explicit && !game.Settings.AllowExplicit {
			return trackclash.InvalidArgumentf("Explicit tracks are not allowed in this game.")
		}
		round, err := requireGameRound(ctx, tx, game, trackclash.PhaseSelecting)
		if err != nil {
			return err
		}

		// One owner per track: scoring aggregates ballot points by track
		// id, so a shared nomination would pay the same points to every
		// owner.
		for owner, song := range round.PlayerSongs {
			if owner != requestingPlayerID && song.TrackID == in.TrackID {
				return trackclash.InvalidArgumentf("Another player has already nominated this track.")
			}
		}

		if round.PlayerSongs == nil {
			round.PlayerSongs = make(map[string]trackclash.Song)
		}
		round.PlayerSongs[requestingPlayerID] = trackclash.Song{
			TrackID:       in.TrackID,
			Name:          in.Name,
			Artist:        in.Artist,
			PreviewURL:    in.PreviewURL,
			AlbumImageURL: in.AlbumImageURL,
			Explicit:      in.Explicit,
			SubmittedBy:   requestingPlayerID,
			SubmittedAt:   s.now(),
		}
		return tx.UpdateRound(ctx, gameID, round)
	})
}

// StartPlayback closes selection: it freezes the nominations into the
// songsForRanking snapshot and opens shared playback. Host only. A
// round with one nomination or none has no meaningful order to rank,
// so it finishes immediately with no points instead of waiting for
// rankings that cannot happen.
func (s *Service) StartPlayback(ctx context.Context, gameID, requestingPlayerID string) (*PlaybackOutcome, error) {
	outcome := &PlaybackOutcome{}
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		game, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if err := requireHost(game, requestingPlayerID, "start playback"); err != nil {
			return err
		}
		round, err := requireGameRound(ctx, tx, game, trackclash.PhaseSelecting)
		if err != nil {
			return err
		}

		round.SongsForRanking = snapshotSongs(round.PlayerSongs)

		if len(round.SongsForRanking) <= 1 {
			players, err := tx.ListPlayers(ctx, gameID)
			if err != nil {
				return err
			}
			results, err := s.finalizeRound(ctx, tx, game, round, players)
			if err != nil {
				return err
			}
			outcome.RankingSkipped = true
			outcome.Results = results
			return nil
		}

		game.Status = trackclash.RoundStatus(game.CurrentRound, trackclash.PhasePlayback)
		round.Status = trackclash.PhasePlayback
		round.CurrentPlayingTrackIndex = 0
		round.IsPlaying = false
		round.PlaybackEndTime = nil
		if err := tx.UpdateGame(ctx, game); err != nil {
			return err
		}
		return tx.UpdateRound(ctx, gameID, round)
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// snapshotSongs orders nominations by submission time, then by owner
// id, giving every client the same playback order.
func snapshotSongs(playerSongs map[string]trackclash.Song) []trackclash.Song {
	songs := make([]trackclash.Song, 0, len(playerSongs))
	for _, song := range playerSongs {
		songs = append(songs, song)
	}
	sort.Slice(songs, func(i, j int) bool {
		if !songs[i].SubmittedAt.Equal(songs[j].SubmittedAt) {
			return songs[i].SubmittedAt.Before(songs[j].SubmittedAt)
		}
		return songs[i].SubmittedBy < songs[j].SubmittedBy
	})
	return songs
}

// ControlPlayback records the host's playback cursor changes on the
// round document. It never changes the round status, and updates are
// idempotent: replaying the same cursor state is harmless. Listening
// may continue while players rank, so both phases accept it.
func (s *Service) ControlPlayback(ctx context.Context, gameID string, in PlaybackUpdate, requestingPlayerID string) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		game, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if err := requireHost(game, requestingPlayerID, "control playback"); err != nil {
			return err
		}

		phase := trackclash.PhasePlayback
		if game.Status.Is(game.CurrentRound, trackclash.PhaseRanking) {
			phase = trackclash.PhaseRanking
		}
		round, err := requireGameRound(ctx, tx, game, phase)
		if err != nil {
			return err
		}

		if in.TrackIndex != nil {
			if *in.TrackIndex < 0 || *in.TrackIndex >= len(round.SongsForRanking) {
				return trackclash.InvalidArgumentf("Track index %d is out of range (0..%d).", *in.TrackIndex, len(round.SongsForRanking)-1)
			}
			round.CurrentPlayingTrackIndex = *in.TrackIndex
		}
		if in.IsPlaying != nil {
			round.IsPlaying = *in.IsPlaying
		}
		if in.PlaybackEndTime != nil {
			round.PlaybackEndTime = in.PlaybackEndTime
		}
		return tx.UpdateRound(ctx, gameID, round)
	})
}

// StartRanking opens the ranking phase and starts its timer. Host only.
func (s *Service) StartRanking(ctx context.Context, gameID, requestingPlayerID string) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		game, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if err := requireHost(game, requestingPlayerID, "start ranking"); err != nil {
			return err
		}
		round, err := requireGameRound(ctx, tx, game, trackclash.PhasePlayback)
		if err != nil {
			return err
		}

		now := s.now()
		round.RankingStartTime = &now
		round.Status = trackclash.PhaseRanking
		game.Status = trackclash.RoundStatus(game.CurrentRound, trackclash.PhaseRanking)
		if err := tx.UpdateGame(ctx, game); err != nil {
			return err
		}
		return tx.UpdateRound(ctx, gameID, round)
	})
}

// SubmitRanking records a player's ballot, optionally spending their
// once-per-game joker to double the points their own song earns this
// round. When the last eligible ballot arrives, scoring runs and the
// round finishes inside the same transaction.
func (s *Service) SubmitRanking(ctx context.Context, gameID string, ballot map[string]int, useJoker bool, requestingPlayerID string) (*RankingOutcome, error) {
	outcome := &RankingOutcome{}
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		game, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		player, err := requireParticipant(ctx, tx, gameID, requestingPlayerID)
		if err != nil {
			return err
		}
		round, err := requireGameRound(ctx, tx, game, trackclash.PhaseRanking)
		if err != nil {
			return err
		}
		if round.HasRanked(requestingPlayerID) {
			return trackclash.FailedPreconditionf("You have already submitted a ranking for round %d.", round.RoundNumber)
		}
		if err := trackclash.ValidateBallot(round, requestingPlayerID, ballot); err != nil {
			return err
		}

		if useJoker {
			if !player.JokerAvailable {
				return trackclash.FailedPreconditionf("You have already used your joker.")
			}
			player.JokerAvailable = false
			if err := tx.UpdatePlayer(ctx, gameID, player); err != nil {
				return err
			}
			round.JokersUsed = append(round.JokersUsed, requestingPlayerID)
		}

		if round.Rankings == nil {
			round.Rankings = make(map[string]map[string]int)
		}
		round.Rankings[requestingPlayerID] = ballot

		players, err := tx.ListPlayers(ctx, gameID)
		if err != nil {
			return err
		}
		if len(round.Rankings) >= len(players) {
			results, err := s.finalizeRound(ctx, tx, game, round, players)
			if err != nil {
				return err
			}
			outcome.RoundFinished = true
			outcome.Results = results
			return nil
		}
		return tx.UpdateRound(ctx, gameID, round)
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// FinalizeRanking closes the ranking phase with whatever ballots exist.
// Timers are advisory and client-observed: when the ranking time limit
// runs out, a participant calls this instead of the server forcing the
// transition on its own clock.
func (s *Service) FinalizeRanking(ctx context.Context, gameID, requestingPlayerID string) (*RankingOutcome, error) {
	outcome := &RankingOutcome{}
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		game, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if _, err := requireParticipant(ctx, tx, gameID, requestingPlayerID); err != nil {
			return err
		}
		round, err := requireGameRound(ctx, tx, game, trackclash.PhaseRanking)
		if err != nil {
			return err
		}
		players, err := tx.ListPlayers(ctx, gameID)
		if err != nil {
			return err
		}
		results, err := s.finalizeRound(ctx, tx, game, round, players)
		if err != nil {
			return err
		}
		outcome.RoundFinished = true
		outcome.Results = results
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// finalizeRound runs the scoring engine, adds the earned points to each
// song owner's cumulative score, attaches the results to the round, and
// lands both documents on finished. The scoring state is transient: it
// exists only inside this transaction, so observers go from ranking
// straight to finished.
func (s *Service) finalizeRound(ctx context.Context, tx store.Tx, game *trackclash.Game, round *trackclash.Round, players []*trackclash.Player) (*trackclash.RoundResults, error) {
	results := trackclash.ScoreRound(round)

	for _, p := range players {
		points := results.PointsByPlayer[p.ID]
		if points == 0 {
			continue
		}
		p.Score += points
		if err := tx.UpdatePlayer(ctx, game.ID, p); err != nil {
			return nil, err
		}
	}

	round.Status = trackclash.PhaseFinished
	round.IsPlaying = false
	round.Results = results
	if err := tx.UpdateRound(ctx, game.ID, round); err != nil {
		return nil, err
	}

	game.Status = trackclash.RoundStatus(game.CurrentRound, trackclash.PhaseFinished)
	if err := tx.UpdateGame(ctx, game); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "round finished",
		"game_id", game.ID, "round", round.RoundNumber, "winners", results.WinnerPlayerIDs)
	return results, nil
}

// StartNextRound advances a finished round to the next one, rotating
// the host to the next player in join order, or finishes the game when
// the final round is done.
func (s *Service) StartNextRound(ctx context.Context, gameID, requestingPlayerID string) (*NextRoundOutcome, error) {
	outcome := &NextRoundOutcome{}
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		game, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if _, err := requireParticipant(ctx, tx, gameID, requestingPlayerID); err != nil {
			return err
		}
		if !game.Status.Is(game.CurrentRound, trackclash.PhaseFinished) {
			return trackclash.FailedPreconditionf("Cannot start the next round (current status: %s).", game.Status)
		}

		if game.CurrentRound == game.TotalRounds {
			game.Status = trackclash.StatusFinished
			if err := tx.UpdateGame(ctx, game); err != nil {
				return err
			}
			outcome.GameFinished = true
			s.logger.InfoContext(ctx, "game finished", "game_id", gameID, "rounds", game.TotalRounds)
			return nil
		}
		if game.TotalRounds == 0 || game.Settings.Rounds == 0 {
			return trackclash.Internalf("Game configuration error (missing rounds).")
		}

		players, err := tx.ListPlayers(ctx, gameID)
		if err != nil {
			return err
		}
		nextHost := nextHostAfter(players, game.RoundHostPlayerID)

		game.CurrentRound++
		game.Status = trackclash.RoundStatus(game.CurrentRound, trackclash.PhaseAnnouncing)
		game.RoundHostPlayerID = nextHost
		game.Challenge = ""
		if err := tx.UpdateGame(ctx, game); err != nil {
			return err
		}

		round := &trackclash.Round{
			RoundNumber:  game.CurrentRound,
			Status:       trackclash.PhaseAnnouncing,
			HostPlayerID: nextHost,
		}
		if err := tx.CreateRound(ctx, gameID, round); err != nil {
			return err
		}

		outcome.RoundNumber = game.CurrentRound
		outcome.HostPlayerID = nextHost
		s.logger.InfoContext(ctx, "round started",
			"game_id", gameID, "round", game.CurrentRound, "host_player_id", nextHost)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// nextHostAfter walks the join-ordered player list to the entry after
// the current host, wrapping at the end. An unknown current host (never
// expected) falls back to the first joined player.
func nextHostAfter(players []*trackclash.Player, currentHostID string) string {
	for i, p := range players {
		if p.ID == currentHostID {
			return players[(i+1)%len(players)].ID
		}
	}
	return players[0].ID
}
