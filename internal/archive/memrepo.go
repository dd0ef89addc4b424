package archive

import (
	"context"
	"sync"

	"pairchess/internal/domain"
)

// memrepo is the in-memory Repository used for tests and for running without
// a DATABASE_URL.
type memrepo struct {
	mu sync.RWMutex

	nextMoveID int64
	games      map[string]*domain.Game
	moves      map[string][]domain.Move // gameID -> rows in append order
}

func NewMemoryRepository() Repository {
	return &memrepo{
		games: make(map[string]*domain.Game),
		moves: make(map[string][]domain.Move),
	}
}

func (m *memrepo) Close() error { return nil }

func (m *memrepo) InsertGame(ctx context.Context, g *domain.Game) error {
	if g == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.games[g.ID]; exists {
		return nil
	}
	cp := *g
	m.games[g.ID] = &cp
	return nil
}

func (m *memrepo) ClaimSlot(ctx context.Context, gameID string, color domain.Color, participantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return domain.ErrGameNotFound
	}
	switch color {
	case domain.White:
		if g.PlayerWhite == "" {
			g.PlayerWhite = participantID
		}
	case domain.Black:
		if g.PlayerBlack == "" {
			g.PlayerBlack = participantID
			g.Status = domain.StatusActive
		}
	}
	return nil
}

func (m *memrepo) UpdateGame(ctx context.Context, gameID, fen string, turn domain.Color, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return domain.ErrGameNotFound
	}
	g.FEN = fen
	g.Turn = turn
	g.Status = status
	return nil
}

func (m *memrepo) AppendMove(ctx context.Context, mv *domain.Move) (int64, error) {
	if mv == nil {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMoveID++
	cp := *mv
	cp.ID = m.nextMoveID
	m.moves[mv.GameID] = append(m.moves[mv.GameID], cp)
	return cp.ID, nil
}

func (m *memrepo) GetGame(ctx context.Context, gameID string) (*domain.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[gameID]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memrepo) ListMoves(ctx context.Context, gameID string) ([]domain.Move, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Move(nil), m.moves[gameID]...), nil
}
