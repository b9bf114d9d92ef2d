package storage

import (
	"context"

	"github.com/mdsim/ratedrps-go/internal/model"
)

// Store defines the interface for the player record and match history store.
// The core treats it as opaque; implementations must make ApplyResult safe to
// retry (idempotency key = match id + player id).
type Store interface {
	// Player record operations
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.PlayerRecord, error)
	SavePlayer(ctx context.Context, record *model.PlayerRecord) error

	// ApplyResult applies a rating delta and increments exactly one of the
	// win/loss/draw counters. Applying the same (matchID, playerID) pair more
	// than once is a no-op.
	ApplyResult(ctx context.Context, matchID model.MatchID, playerID model.PlayerID, delta int, kind model.OutcomeKind) error

	// Match history operations
	SaveMatch(ctx context.Context, record *model.MatchRecord) error
	GetMatch(ctx context.Context, id model.MatchID) (*model.MatchRecord, error)
}
