package registry

import (
	"log/slog"
	"sync"

	"github.com/mdsim/ratedrps-go/internal/model"
	"github.com/mdsim/ratedrps-go/internal/services/match"
)

// Status is a player's current activity context
type Status int

const (
	StatusNone Status = iota
	StatusQueued
	StatusInMatch
)

type playerContext struct {
	status  Status
	matchID model.MatchID // set when status is StatusInMatch
}

// Registry is the process-wide table of active matches and per-player
// activity. It enforces the invariant that a player is a member of at most
// one queue entry or match at any time.
type Registry struct {
	mu      sync.Mutex
	players map[model.PlayerID]playerContext
	matches map[model.MatchID]*match.Session
	logger  *slog.Logger
}

// New creates an empty registry
func New(logger *slog.Logger) *Registry {
	return &Registry{
		players: make(map[model.PlayerID]playerContext),
		matches: make(map[model.MatchID]*match.Session),
		logger:  logger.With(slog.String("component", "registry")),
	}
}

// MarkQueued atomically claims the player's activity slot for queue
// membership. Fails with ErrAlreadyActive if the player is already queued or
// in a match.
func (r *Registry) MarkQueued(id model.PlayerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctx, ok := r.players[id]; ok && ctx.status != StatusNone {
		return model.ErrAlreadyActive
	}
	r.players[id] = playerContext{status: StatusQueued}
	return nil
}

// ClearQueued releases a queued player's slot. No-op when the player is not
// queued (it never demotes an in-match player).
func (r *Registry) ClearQueued(id model.PlayerID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctx, ok := r.players[id]; ok && ctx.status == StatusQueued {
		delete(r.players, id)
	}
}

// AddMatch registers a session and promotes both participants from queued to
// in-match.
func (r *Registry) AddMatch(s *match.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.matches[s.ID()] = s
	r.players[s.Player1().ID] = playerContext{status: StatusInMatch, matchID: s.ID()}
	r.players[s.Player2().ID] = playerContext{status: StatusInMatch, matchID: s.ID()}

	r.logger.Info("match registered",
		slog.String("match_id", string(s.ID())),
		slog.String("player1", string(s.Player1().ID)),
		slog.String("player2", string(s.Player2().ID)))
}

// GetMatch returns the session for a match id
func (r *Registry) GetMatch(id model.MatchID) (*match.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return s, nil
}

// MatchFor returns the active session a player is part of, if any
func (r *Registry) MatchFor(id model.PlayerID) (*match.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, ok := r.players[id]
	if !ok || ctx.status != StatusInMatch {
		return nil, false
	}
	s, ok := r.matches[ctx.matchID]
	return s, ok
}

// Remove evicts a closed session and releases both participants
func (r *Registry) Remove(id model.MatchID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.matches[id]
	if !ok {
		return
	}
	delete(r.matches, id)
	r.releaseLocked(s.Player1().ID, id)
	r.releaseLocked(s.Player2().ID, id)

	r.logger.Info("match evicted", slog.String("match_id", string(id)))
}

// releaseLocked clears a player's slot only if it still points at this match
func (r *Registry) releaseLocked(playerID model.PlayerID, matchID model.MatchID) {
	if ctx, ok := r.players[playerID]; ok && ctx.status == StatusInMatch && ctx.matchID == matchID {
		delete(r.players, playerID)
	}
}

// StatusFor returns a player's current activity context
func (r *Registry) StatusFor(id model.PlayerID) Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.players[id].status
}

// ActiveMatches returns the number of registered sessions
func (r *Registry) ActiveMatches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matches)
}
