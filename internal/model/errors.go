package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Lobby errors
	ErrAlreadyActive = errors.New("player already queued or in a match")
	ErrNotQueued     = errors.New("player is not in the lobby queue")

	// Match errors
	ErrMatchNotFound = errors.New("match not found")
	ErrForbidden     = errors.New("player is not a participant of this match")
	ErrDuplicateMove = errors.New("move already submitted for this match")
	ErrMatchComplete = errors.New("match is already complete")
	ErrInvalidMove   = errors.New("invalid move")
)
