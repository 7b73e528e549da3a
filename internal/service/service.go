// Package service implements the server-authoritative game and round
// lifecycle. Every mutating operation runs inside a single store
// transaction and re-validates status and role from documents read
// inside that transaction, so two racing calls for the same transition
// can never both apply: the loser re-reads post-commit state and fails
// its precondition check.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/playmix/trackclash/internal/store"
	"github.com/playmix/trackclash/internal/trackclash"
)

type Service struct {
	store  store.Store
	logger *slog.Logger

	// Overridable for deterministic tests.
	now   func() time.Time
	newID func() string
}

func New(st store.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// loadGame reads the game inside the transaction and converts the
// store sentinel into the domain not-found error.
func loadGame(ctx context.Context, r store.Reader, gameID string) (*trackclash.Game, error) {
	g, err := r.GetGame(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, trackclash.NotFoundf("Game %q not found.", gameID)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// loadCurrentRound reads the round document matching game.CurrentRound.
// Its absence while the game status names that round is an invariant
// violation in stored data, not a caller mistake.
func loadCurrentRound(ctx context.Context, r store.Reader, game *trackclash.Game) (*trackclash.Round, error) {
	round, err := r.GetRound(ctx, game.ID, game.CurrentRound)
	if errors.Is(err, store.ErrNotFound) {
		return nil, trackclash.Internalf("Round %d is missing for game %q.", game.CurrentRound, game.ID)
	}
	if err != nil {
		return nil, err
	}
	return round, nil
}

// requireParticipant re-checks membership against freshly read data
// rather than trusting the session that produced playerID.
func requireParticipant(ctx context.Context, r store.Reader, gameID, playerID string) (*trackclash.Player, error) {
	p, err := r.GetPlayer(ctx, gameID, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, trackclash.PermissionDeniedf("You are not a player in this game.")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func requireHost(game *trackclash.Game, playerID, action string) error {
	if game.RoundHostPlayerID != playerID {
		return trackclash.PermissionDeniedf("Only the round host can %s.", action)
	}
	return nil
}
