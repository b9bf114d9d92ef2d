package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// DefaultRating is the rating assigned to players with no recorded matches
const DefaultRating = 1000

// PlayerIdentity is the authenticated identity attached to a connection.
// Rating is a read-through snapshot taken when the connection is established;
// the authoritative value lives in the player record store.
type PlayerIdentity struct {
	ID       PlayerID
	Username string
	Rating   int
}

// PlayerRecord is the persisted state for a player, owned by the store
type PlayerRecord struct {
	ID        PlayerID  `json:"id"`
	Username  string    `json:"username"`
	Rating    int       `json:"rating"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	Draws     int       `json:"draws"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPlayerRecord creates a record for a player seen for the first time
func NewPlayerRecord(id PlayerID, username string, now time.Time) *PlayerRecord {
	return &PlayerRecord{
		ID:        id,
		Username:  username,
		Rating:    DefaultRating,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
