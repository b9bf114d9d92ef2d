package redis

import (
	"fmt"

	"github.com/mdsim/ratedrps-go/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "ratedrps"

// playerKey returns the Redis key for a PlayerRecord
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// matchKey returns the Redis key for a MatchRecord
func matchKey(id model.MatchID) string {
	return fmt.Sprintf("%s:match:%s", keyPrefix, id)
}

// appliedKey returns the Redis key marking a result as applied for a player.
// This is the idempotency key for ApplyResult retries.
func appliedKey(matchID model.MatchID, playerID model.PlayerID) string {
	return fmt.Sprintf("%s:applied:%s:%s", keyPrefix, matchID, playerID)
}
