package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playmix/trackclash/internal/trackclash"
)

// SQLiteStore keeps each entity as a JSONB document in a per-model
// table, with the few columns needed for lookups and ordering pulled
// out alongside. Conflict handling comes from SQLite itself: the
// busy-timeout PRAGMA retries lock contention, and a transaction that
// fails mid-way rolls back without partial writes.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx so the document
// helpers serve direct reads and transactional access alike.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getGame(ctx context.Context, q querier, gameID string) (*trackclash.Game, error) {
	var data string
	err := q.QueryRowContext(ctx,
		`SELECT json(data) FROM games WHERE id = ?`, gameID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var g trackclash.Game
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func putGame(ctx context.Context, q querier, g *trackclash.Game, create bool) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	if create {
		_, err = q.ExecContext(ctx,
			`INSERT INTO games (id, status, data) VALUES (?, ?, jsonb(?))`,
			g.ID, string(g.Status), string(data),
		)
		return err
	}
	result, err := q.ExecContext(ctx,
		`UPDATE games SET status = ?, data = jsonb(?) WHERE id = ?`,
		string(g.Status), string(data), g.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func getRound(ctx context.Context, q querier, gameID string, roundNumber int) (*trackclash.Round, error) {
	var data string
	err := q.QueryRowContext(ctx,
		`SELECT json(data) FROM rounds WHERE game_id = ? AND round_number = ?`,
		gameID, roundNumber,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var r trackclash.Round
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func putRound(ctx context.Context, q querier, gameID string, r *trackclash.Round, create bool) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if create {
		_, err = q.ExecContext(ctx,
			`INSERT INTO rounds (game_id, round_number, data) VALUES (?, ?, jsonb(?))`,
			gameID, r.RoundNumber, string(data),
		)
		return err
	}
	result, err := q.ExecContext(ctx,
		`UPDATE rounds SET data = jsonb(?) WHERE game_id = ? AND round_number = ?`,
		string(data), gameID, r.RoundNumber,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func getPlayer(ctx context.Context, q querier, gameID, playerID string) (*trackclash.Player, error) {
	var data string
	err := q.QueryRowContext(ctx,
		`SELECT json(data) FROM players WHERE game_id = ? AND player_id = ?`,
		gameID, playerID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var p trackclash.Player
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func listPlayers(ctx context.Context, q querier, gameID string) ([]*trackclash.Player, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT json(data) FROM players WHERE game_id = ? ORDER BY joined_at, player_id`,
		gameID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []*trackclash.Player
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var p trackclash.Player
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, err
		}
		players = append(players, &p)
	}
	return players, rows.Err()
}

func putPlayer(ctx context.Context, q querier, gameID string, p *trackclash.Player, create bool) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if create {
		_, err = q.ExecContext(ctx,
			`INSERT INTO players (game_id, player_id, joined_at, data) VALUES (?, ?, ?, jsonb(?))`,
			gameID, p.ID, p.JoinedAt.UTC().Format(time.RFC3339Nano), string(data),
		)
		return err
	}
	result, err := q.ExecContext(ctx,
		`UPDATE players SET data = jsonb(?) WHERE game_id = ? AND player_id = ?`,
		string(data), gameID, p.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Direct (non-transactional) reads for the read-side endpoints.

func (s *SQLiteStore) GetGame(ctx context.Context, gameID string) (*trackclash.Game, error) {
	return getGame(ctx, s.db, gameID)
}

func (s *SQLiteStore) GetRound(ctx context.Context, gameID string, roundNumber int) (*trackclash.Round, error) {
	return getRound(ctx, s.db, gameID, roundNumber)
}

func (s *SQLiteStore) GetPlayer(ctx context.Context, gameID, playerID string) (*trackclash.Player, error) {
	return getPlayer(ctx, s.db, gameID, playerID)
}

func (s *SQLiteStore) ListPlayers(ctx context.Context, gameID string) ([]*trackclash.Player, error) {
	return listPlayers(ctx, s.db, gameID)
}

// RunTransaction wraps fn in a single SQL transaction. A fn error
// rolls everything back, so precondition failures raised after reads
// leave no partial mutation behind.
func (s *SQLiteStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &sqliteTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) GetGame(ctx context.Context, gameID string) (*trackclash.Game, error) {
	return getGame(ctx, t.tx, gameID)
}

func (t *sqliteTx) CreateGame(ctx context.Context, g *trackclash.Game) error {
	return putGame(ctx, t.tx, g, true)
}

func (t *sqliteTx) UpdateGame(ctx context.Context, g *trackclash.Game) error {
	return putGame(ctx, t.tx, g, false)
}

func (t *sqliteTx) GetRound(ctx context.Context, gameID string, roundNumber int) (*trackclash.Round, error) {
	return getRound(ctx, t.tx, gameID, roundNumber)
}

func (t *sqliteTx) CreateRound(ctx context.Context, gameID string, r *trackclash.Round) error {
	return putRound(ctx, t.tx, gameID, r, true)
}

func (t *sqliteTx) UpdateRound(ctx context.Context, gameID string, r *trackclash.Round) error {
	return putRound(ctx, t.tx, gameID, r, false)
}

func (t *sqliteTx) GetPlayer(ctx context.Context, gameID, playerID string) (*trackclash.Player, error) {
	return getPlayer(ctx, t.tx, gameID, playerID)
}

func (t *sqliteTx) ListPlayers(ctx context.Context, gameID string) ([]*trackclash.Player, error) {
	return listPlayers(ctx, t.tx, gameID)
}

func (t *sqliteTx) CreatePlayer(ctx context.Context, gameID string, p *trackclash.Player) error {
	return putPlayer(ctx, t.tx, gameID, p, true)
}

func (t *sqliteTx) UpdatePlayer(ctx context.Context, gameID string, p *trackclash.Player) error {
	return putPlayer(ctx, t.tx, gameID, p, false)
}

// Sessions live outside transactions: they are written once at join
// time and read on every authenticated request.

func (s *SQLiteStore) CreateSession(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO player_sessions (id, data) VALUES (?, jsonb(?))`,
		sess.Token, string(data),
	)
	return err
}

func (s *SQLiteStore) SessionByToken(ctx context.Context, token string) (Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM player_sessions WHERE id = ?`, token,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Ensure SQLiteStore implements Store at compile time.
var _ Store = (*SQLiteStore)(nil)
