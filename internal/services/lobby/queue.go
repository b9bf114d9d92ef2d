package lobby

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mdsim/ratedrps-go/internal/dependencies/clock"
	"github.com/mdsim/ratedrps-go/internal/model"
	"github.com/mdsim/ratedrps-go/internal/protocol"
	"github.com/mdsim/ratedrps-go/internal/services/registry"
)

// Entry is a player waiting to be paired
type Entry struct {
	Identity   model.PlayerIdentity
	Conn       protocol.Sender
	EnqueuedAt time.Time
}

// Starter creates a match session from two dequeued entries. It is invoked
// inside the queue's critical section so that dequeue-pair and
// create-session form one exclusive step: no two pairings can double-allocate
// the same player.
type Starter interface {
	StartMatch(p1, p2 Entry)
}

// Queue holds players who declared intent to play and pairs them FIFO.
// Pairing runs after every join and after every leave so a freed slot is
// immediately reused. No rating-based matching is attempted; pairing latency
// is bounded only by queue population.
type Queue struct {
	mu      sync.Mutex
	entries []Entry

	registry *registry.Registry
	clock    clock.Clock
	logger   *slog.Logger
	starter  Starter
}

// New creates an empty queue
func New(reg *registry.Registry, clk clock.Clock, logger *slog.Logger) *Queue {
	return &Queue{
		registry: reg,
		clock:    clk,
		logger:   logger.With(slog.String("component", "lobby")),
	}
}

// SetStarter wires the match starter. Must be called before the first Join.
func (q *Queue) SetStarter(s Starter) {
	q.starter = s
}

// Join enqueues a player in arrival order. Fails with ErrAlreadyActive if the
// player already has a queue entry or an active match.
func (q *Queue) Join(identity model.PlayerIdentity, conn protocol.Sender) error {
	if err := q.registry.MarkQueued(identity.ID); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = append(q.entries, Entry{
		Identity:   identity,
		Conn:       conn,
		EnqueuedAt: q.clock.Now(),
	})
	q.logger.Info("player joined lobby",
		slog.String("player_id", string(identity.ID)),
		slog.Int("queue_depth", len(q.entries)))

	q.pairLocked()
	return nil
}

// Leave removes a player's entry if present; no-op otherwise
func (q *Queue) Leave(id model.PlayerID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.Identity.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			q.registry.ClearQueued(id)
			q.logger.Info("player left lobby",
				slog.String("player_id", string(id)),
				slog.Int("queue_depth", len(q.entries)))
			q.pairLocked()
			return
		}
	}
}

// Len returns the number of waiting players
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot returns a copy of the current entries in arrival order
func (q *Queue) Snapshot() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// pairLocked dequeues the two longest-waiting entries while at least two
// players are waiting and hands them to the starter. Caller holds q.mu.
func (q *Queue) pairLocked() {
	for len(q.entries) >= 2 {
		p1, p2 := q.entries[0], q.entries[1]
		q.entries = q.entries[2:]
		q.starter.StartMatch(p1, p2)
	}
}
