package rating

import (
	"math"

	"github.com/mdsim/ratedrps-go/internal/model"
)

// DefaultKFactor is the rating-update sensitivity constant
const DefaultKFactor = 32

// Update holds the result of a rating computation. Deltas are signed and may
// be negative.
type Update struct {
	NewRating1 int
	NewRating2 int
	Delta1     int
	Delta2     int
}

// Engine computes Elo-style rating updates. It is a pure function of its
// inputs: identical inputs always produce identical outputs, which makes
// persistence retries idempotent.
type Engine struct {
	k float64
}

// New creates an Engine with the default K-factor
func New() *Engine {
	return NewWithK(DefaultKFactor)
}

// NewWithK creates an Engine with a custom K-factor
func NewWithK(k int) *Engine {
	return &Engine{k: float64(k)}
}

// Compute returns new ratings and deltas for both players given the match
// result. The expected score for player 1 is 1/(1+10^((r2-r1)/400)); the
// actual score is 1 for a win, 0 for a loss, 0.5 for a draw.
func (e *Engine) Compute(rating1, rating2 int, result model.Result) Update {
	score1 := scoreFor(result)

	expected1 := 1.0 / (1.0 + math.Pow(10, float64(rating2-rating1)/400.0))
	expected2 := 1.0 - expected1
	score2 := 1.0 - score1

	new1 := int(math.Round(float64(rating1) + e.k*(score1-expected1)))
	new2 := int(math.Round(float64(rating2) + e.k*(score2-expected2)))

	return Update{
		NewRating1: new1,
		NewRating2: new2,
		Delta1:     new1 - rating1,
		Delta2:     new2 - rating2,
	}
}

// scoreFor maps a result to player 1's actual score
func scoreFor(result model.Result) float64 {
	switch result {
	case model.ResultPlayer1:
		return 1.0
	case model.ResultPlayer2:
		return 0.0
	default:
		return 0.5
	}
}
