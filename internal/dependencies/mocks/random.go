package mocks

import (
	"fmt"

	"github.com/mdsim/ratedrps-go/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing
type MockRandom struct {
	// MatchIDs is a queue of results to return from MatchID
	MatchIDs     []string
	matchIDIndex int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// MatchID returns the next queued id, or a sequential fallback
func (r *MockRandom) MatchID() string {
	if r.matchIDIndex >= len(r.MatchIDs) {
		r.matchIDIndex++
		return fmt.Sprintf("match-%d", r.matchIDIndex)
	}
	result := r.MatchIDs[r.matchIDIndex]
	r.matchIDIndex++
	return result
}

// QueueMatchID adds values to the MatchID result queue
func (r *MockRandom) QueueMatchID(values ...string) {
	r.MatchIDs = append(r.MatchIDs, values...)
}
