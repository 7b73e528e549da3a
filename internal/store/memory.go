package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/playmix/trackclash/internal/trackclash"
)

// MemoryStore is an in-memory Store used by tests and local demos.
// RunTransaction works on a deep copy of the whole state and swaps it
// in on success, so a failing transaction function leaves no writes
// behind — the same guarantee the SQLite store gets from rollback.
type MemoryStore struct {
	mu       sync.Mutex
	state    memState
	sessions map[string]Session
}

type memState struct {
	games   map[string]*trackclash.Game
	rounds  map[string]map[int]*trackclash.Round
	players map[string][]*trackclash.Player // join order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memState{
			games:   make(map[string]*trackclash.Game),
			rounds:  make(map[string]map[int]*trackclash.Round),
			players: make(map[string][]*trackclash.Player),
		},
		sessions: make(map[string]Session),
	}
}

// clone deep-copies a document through its JSON form. State is tiny;
// simplicity wins over speed here.
func clone[T any](v *T) *T {
	data, _ := json.Marshal(v)
	out := new(T)
	_ = json.Unmarshal(data, out)
	return out
}

func (st memState) deepCopy() memState {
	out := memState{
		games:   make(map[string]*trackclash.Game, len(st.games)),
		rounds:  make(map[string]map[int]*trackclash.Round, len(st.rounds)),
		players: make(map[string][]*trackclash.Player, len(st.players)),
	}
	for id, g := range st.games {
		out.games[id] = clone(g)
	}
	for gameID, rounds := range st.rounds {
		m := make(map[int]*trackclash.Round, len(rounds))
		for n, r := range rounds {
			m[n] = clone(r)
		}
		out.rounds[gameID] = m
	}
	for gameID, players := range st.players {
		ps := make([]*trackclash.Player, len(players))
		for i, p := range players {
			ps[i] = clone(p)
		}
		out.players[gameID] = ps
	}
	return out
}

func (st memState) getGame(gameID string) (*trackclash.Game, error) {
	g, ok := st.games[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(g), nil
}

func (st memState) getRound(gameID string, roundNumber int) (*trackclash.Round, error) {
	r, ok := st.rounds[gameID][roundNumber]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(r), nil
}

func (st memState) getPlayer(gameID, playerID string) (*trackclash.Player, error) {
	for _, p := range st.players[gameID] {
		if p.ID == playerID {
			return clone(p), nil
		}
	}
	return nil, ErrNotFound
}

func (st memState) listPlayers(gameID string) ([]*trackclash.Player, error) {
	players := st.players[gameID]
	out := make([]*trackclash.Player, len(players))
	for i, p := range players {
		out[i] = clone(p)
	}
	return out, nil
}

func (s *MemoryStore) GetGame(ctx context.Context, gameID string) (*trackclash.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.getGame(gameID)
}

func (s *MemoryStore) GetRound(ctx context.Context, gameID string, roundNumber int) (*trackclash.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.getRound(gameID, roundNumber)
}

func (s *MemoryStore) GetPlayer(ctx context.Context, gameID, playerID string) (*trackclash.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.getPlayer(gameID, playerID)
}

func (s *MemoryStore) ListPlayers(ctx context.Context, gameID string) ([]*trackclash.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.listPlayers(gameID)
}

func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.deepCopy()
	if err := fn(ctx, &memTx{state: &staged}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

func (s *MemoryStore) CreateSession(ctx context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.Token]; ok {
		return ErrAlreadyExists
	}
	s.sessions[sess.Token] = sess
	return nil
}

func (s *MemoryStore) SessionByToken(ctx context.Context, token string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

type memTx struct {
	state *memState
}

func (t *memTx) GetGame(ctx context.Context, gameID string) (*trackclash.Game, error) {
	return t.state.getGame(gameID)
}

func (t *memTx) CreateGame(ctx context.Context, g *trackclash.Game) error {
	if _, ok := t.state.games[g.ID]; ok {
		return ErrAlreadyExists
	}
	t.state.games[g.ID] = clone(g)
	return nil
}

func (t *memTx) UpdateGame(ctx context.Context, g *trackclash.Game) error {
	if _, ok := t.state.games[g.ID]; !ok {
		return ErrNotFound
	}
	t.state.games[g.ID] = clone(g)
	return nil
}

func (t *memTx) GetRound(ctx context.Context, gameID string, roundNumber int) (*trackclash.Round, error) {
	return t.state.getRound(gameID, roundNumber)
}

func (t *memTx) CreateRound(ctx context.Context, gameID string, r *trackclash.Round) error {
	if _, ok := t.state.rounds[gameID][r.RoundNumber]; ok {
		return ErrAlreadyExists
	}
	if t.state.rounds[gameID] == nil {
		t.state.rounds[gameID] = make(map[int]*trackclash.Round)
	}
	t.state.rounds[gameID][r.RoundNumber] = clone(r)
	return nil
}

func (t *memTx) UpdateRound(ctx context.Context, gameID string, r *trackclash.Round) error {
	if _, ok := t.state.rounds[gameID][r.RoundNumber]; !ok {
		return ErrNotFound
	}
	t.state.rounds[gameID][r.RoundNumber] = clone(r)
	return nil
}

func (t *memTx) GetPlayer(ctx context.Context, gameID, playerID string) (*trackclash.Player, error) {
	return t.state.getPlayer(gameID, playerID)
}

func (t *memTx) ListPlayers(ctx context.Context, gameID string) ([]*trackclash.Player, error) {
	return t.state.listPlayers(gameID)
}

func (t *memTx) CreatePlayer(ctx context.Context, gameID string, p *trackclash.Player) error {
	for _, existing := range t.state.players[gameID] {
		if existing.ID == p.ID {
			return ErrAlreadyExists
		}
	}
	t.state.players[gameID] = append(t.state.players[gameID], clone(p))
	return nil
}

func (t *memTx) UpdatePlayer(ctx context.Context, gameID string, p *trackclash.Player) error {
	for i, existing := range t.state.players[gameID] {
		if existing.ID == p.ID {
			t.state.players[gameID][i] = clone(p)
			return nil
		}
	}
	return ErrNotFound
}

// Ensure MemoryStore implements Store at compile time.
var _ Store = (*MemoryStore)(nil)
