// Package store defines the document-store contract the game engine
// runs on: per-entity get/create/update primitives plus an atomic
// read-modify-write transaction runner. Any store providing atomic
// multi-key transactions can back it; the SQLite implementation is the
// production one and the in-memory implementation serves tests.
package store

import (
	"context"
	"errors"

	"github.com/playmix/trackclash/internal/trackclash"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Session binds an opaque bearer token to a player in a game.
type Session struct {
	Token    string `json:"token"`
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

// Reader is the read side of the document access layer. It is
// available both inside transactions and directly on a Store for the
// read-only state endpoint.
type Reader interface {
	GetGame(ctx context.Context, gameID string) (*trackclash.Game, error)
	GetRound(ctx context.Context, gameID string, roundNumber int) (*trackclash.Round, error)
	GetPlayer(ctx context.Context, gameID, playerID string) (*trackclash.Player, error)
	// ListPlayers returns a game's players in join order. The order is
	// load-bearing: round host rotation walks it.
	ListPlayers(ctx context.Context, gameID string) ([]*trackclash.Player, error)
}

// Tx is the handle passed to a transaction function. All reads and
// writes through it commit atomically or not at all.
type Tx interface {
	Reader

	CreateGame(ctx context.Context, g *trackclash.Game) error
	UpdateGame(ctx context.Context, g *trackclash.Game) error

	CreateRound(ctx context.Context, gameID string, r *trackclash.Round) error
	UpdateRound(ctx context.Context, gameID string, r *trackclash.Round) error

	CreatePlayer(ctx context.Context, gameID string, p *trackclash.Player) error
	UpdatePlayer(ctx context.Context, gameID string, p *trackclash.Player) error
}

// Store is the full contract handed to the services.
type Store interface {
	Reader

	// RunTransaction executes fn atomically. If fn returns an error
	// nothing fn wrote is visible afterward.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	CreateSession(ctx context.Context, s Session) error
	SessionByToken(ctx context.Context, token string) (Session, error)
}
