package service

import (
	"context"
	"strings"

	"github.com/playmix/trackclash/internal/store"
	"github.com/playmix/trackclash/internal/trackclash"
)

// JoinInfo is returned when a player enters a game, either by creating
// it or by joining the lobby.
type JoinInfo struct {
	GameID   string
	PlayerID string
	Token    string
}

// CreateGame validates the initial settings, creates the game in the
// waiting state together with the creator's player document, and opens
// a session for the creator.
func (s *Service) CreateGame(ctx context.Context, creatorName string, in trackclash.SettingsInput) (*JoinInfo, error) {
	creatorName = strings.TrimSpace(creatorName)
	if creatorName == "" {
		return nil, trackclash.InvalidArgumentf("Player name must not be empty.")
	}
	settings, err := in.Validate()
	if err != nil {
		return nil, err
	}

	game := &trackclash.Game{
		ID:              s.newID(),
		Status:          trackclash.StatusWaiting,
		CreatorPlayerID: s.newID(),
		CurrentRound:    0,
		Settings:        settings,
		CreatedAt:       s.now(),
	}
	creator := &trackclash.Player{
		ID:             game.CreatorPlayerID,
		Name:           creatorName,
		HasJoined:      true,
		JoinedAt:       game.CreatedAt,
		JokerAvailable: true,
	}

	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateGame(ctx, game); err != nil {
			return err
		}
		return tx.CreatePlayer(ctx, game.ID, creator)
	})
	if err != nil {
		return nil, err
	}

	token := s.newID()
	if err := s.store.CreateSession(ctx, store.Session{Token: token, GameID: game.ID, PlayerID: creator.ID}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "game created",
		"game_id", game.ID, "creator_player_id", creator.ID, "rounds", settings.Rounds)

	return &JoinInfo{GameID: game.ID, PlayerID: creator.ID, Token: token}, nil
}

// JoinGame adds a player to a waiting game with a free seat.
func (s *Service) JoinGame(ctx context.Context, gameID, playerName string) (*JoinInfo, error) {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return nil, trackclash.InvalidArgumentf("Player name must not be empty.")
	}

	player := &trackclash.Player{
		ID:             s.newID(),
		Name:           playerName,
		HasJoined:      true,
		JoinedAt:       s.now(),
		JokerAvailable: true,
	}

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		game, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if game.Status != trackclash.StatusWaiting {
			return trackclash.FailedPreconditionf("Cannot join: the game has already started (current status: %s).", game.Status)
		}
		players, err := tx.ListPlayers(ctx, gameID)
		if err != nil {
			return err
		}
		if len(players) >= game.Settings.MaxPlayers {
			return trackclash.FailedPreconditionf("Game is full (%d/%d players).", len(players), game.Settings.MaxPlayers)
		}
		return tx.CreatePlayer(ctx, gameID, player)
	})
	if err != nil {
		return nil, err
	}

	token := s.newID()
	if err := s.store.CreateSession(ctx, store.Session{Token: token, GameID: gameID, PlayerID: player.ID}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "player joined", "game_id", gameID, "player_id", player.ID)

	return &JoinInfo{GameID: gameID, PlayerID: player.ID, Token: token}, nil
}

// UpdateSettings replaces the settings of a waiting game. Settings are
// validated before the transaction opens; only the creator may change
// them, and only while the game is waiting.
func (s *Service) UpdateSettings(ctx context.Context, gameID string, in trackclash.SettingsInput, requestingPlayerID string) error {
	settings, err := in.Validate()
	if err != nil {
		return err
	}

	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		game, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if game.CreatorPlayerID != requestingPlayerID {
			return trackclash.PermissionDeniedf("Only the game creator can update settings.")
		}
		if game.Status != trackclash.StatusWaiting {
			return trackclash.FailedPreconditionf("Game settings can only be changed while the game is in the 'waiting' state (current: %s).", game.Status)
		}
		game.Settings = settings
		return tx.UpdateGame(ctx, game)
	})
}

// StartGame moves a waiting game into round 1. The creator hosts the
// first round; any participant may trigger the start once enough
// players joined.
func (s *Service) StartGame(ctx context.Context, gameID, requestingPlayerID string) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		game, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if _, err := requireParticipant(ctx, tx, gameID, requestingPlayerID); err != nil {
			return err
		}
		if game.Status != trackclash.StatusWaiting {
			return trackclash.FailedPreconditionf("Cannot start game: the game is not in the 'waiting' state (current: %s).", game.Status)
		}
		players, err := tx.ListPlayers(ctx, gameID)
		if err != nil {
			return err
		}
		if len(players) < trackclash.MinPlayersToStart {
			return trackclash.FailedPreconditionf("Cannot start game: need at least %d players (currently %d).", trackclash.MinPlayersToStart, len(players))
		}

		game.Status = trackclash.RoundStatus(1, trackclash.PhaseAnnouncing)
		game.CurrentRound = 1
		game.TotalRounds = game.Settings.Rounds
		game.RoundHostPlayerID = game.CreatorPlayerID
		game.Challenge = ""
		if err := tx.UpdateGame(ctx, game); err != nil {
			return err
		}

		round := &trackclash.Round{
			RoundNumber:  1,
			Status:       trackclash.PhaseAnnouncing,
			HostPlayerID: game.RoundHostPlayerID,
		}
		if err := tx.CreateRound(ctx, gameID, round); err != nil {
			return err
		}

		s.logger.InfoContext(ctx, "game started",
			"game_id", gameID, "players", len(players), "total_rounds", game.TotalRounds)
		return nil
	})
}
