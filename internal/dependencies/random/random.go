package random

import (
	"github.com/google/uuid"
)

// Random provides id generation that can be mocked for testing
type Random interface {
	// MatchID generates a unique identifier for a new match
	MatchID() string
}

// CryptoRandom implements Random using UUIDv4 match ids
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// MatchID returns a random UUID string
func (r *CryptoRandom) MatchID() string {
	return uuid.NewString()
}
