package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mdsim/ratedrps-go/internal/model"
	"github.com/mdsim/ratedrps-go/internal/storage"
)

// Storage is an in-memory implementation of the store interface
type Storage struct {
	mu sync.RWMutex

	players map[model.PlayerID]*model.PlayerRecord
	matches map[model.MatchID]*model.MatchRecord
	applied map[appliedKey]bool
}

type appliedKey struct {
	matchID  model.MatchID
	playerID model.PlayerID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players: make(map[model.PlayerID]*model.PlayerRecord),
		matches: make(map[model.MatchID]*model.MatchRecord),
		applied: make(map[appliedKey]bool),
	}
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *Storage) SavePlayer(ctx context.Context, record *model.PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.players[record.ID] = &copied
	return nil
}

func (s *Storage) ApplyResult(ctx context.Context, matchID model.MatchID, playerID model.PlayerID, delta int, kind model.OutcomeKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := appliedKey{matchID: matchID, playerID: playerID}
	if s.applied[key] {
		return nil
	}

	record, ok := s.players[playerID]
	if !ok {
		return model.ErrPlayerNotFound
	}

	record.Rating += delta
	switch kind {
	case model.OutcomeWin:
		record.Wins++
	case model.OutcomeLoss:
		record.Losses++
	case model.OutcomeDraw:
		record.Draws++
	}
	record.UpdatedAt = time.Now()

	s.applied[key] = true
	return nil
}

func (s *Storage) SaveMatch(ctx context.Context, record *model.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.matches[record.ID] = &copied
	return nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	copied := *record
	return &copied, nil
}
