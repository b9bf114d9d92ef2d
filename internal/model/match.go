package model

import "time"

// MatchID uniquely identifies a match session
type MatchID string

// MatchState represents the lifecycle state of a match session
type MatchState string

const (
	MatchStateAwaitingMoves MatchState = "awaiting_moves" // Created, at least one move slot empty
	MatchStateResolved      MatchState = "resolved"       // Outcome computed, delivery in progress
	MatchStateClosed        MatchState = "closed"         // Terminal; session may be evicted
)

// Result identifies the winning side of a resolved match
type Result string

const (
	ResultPlayer1 Result = "player1"
	ResultPlayer2 Result = "player2"
	ResultDraw    Result = "draw"
)

// OutcomeKind is the per-player view of a result, used for stat updates
type OutcomeKind string

const (
	OutcomeWin  OutcomeKind = "win"
	OutcomeLoss OutcomeKind = "loss"
	OutcomeDraw OutcomeKind = "draw"
)

// Outcome is the resolved result of a match plus the rating changes applied
// to each side. Computed exactly once per session, never recomputed.
type Outcome struct {
	Result        Result
	Player1Delta  int
	Player2Delta  int
	Player1Rating int // new rating
	Player2Rating int
}

// KindFor returns the outcome kind from the perspective of one side
func (o Outcome) KindFor(side Result) OutcomeKind {
	if o.Result == ResultDraw {
		return OutcomeDraw
	}
	if o.Result == side {
		return OutcomeWin
	}
	return OutcomeLoss
}

// MatchRecord is the persisted summary of a completed match
type MatchRecord struct {
	ID              MatchID  `json:"id"`
	Player1ID       PlayerID `json:"player1_id"`
	Player2ID       PlayerID `json:"player2_id"`
	Player1Username string   `json:"player1_username"`
	Player2Username string   `json:"player2_username"`
	Player1Move     Move     `json:"player1_move,omitempty"`
	Player2Move     Move     `json:"player2_move,omitempty"`
	// WinnerID is empty for a draw
	WinnerID     PlayerID  `json:"winner_id,omitempty"`
	Result       Result    `json:"result"`
	Player1Delta int       `json:"player1_elo_delta"`
	Player2Delta int       `json:"player2_elo_delta"`
	CreatedAt    time.Time `json:"created_at"`
}
