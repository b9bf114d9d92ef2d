package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/mdsim/ratedrps-go/internal/model"
)

// Type identifies the kind of message carried by an envelope
type Type string

const (
	// Client -> server
	TypeJoinLobby  Type = "JOIN_LOBBY"
	TypeLeaveLobby Type = "LEAVE_LOBBY"
	TypeMakeMove   Type = "MAKE_MOVE"

	// Server -> client
	TypeLobbyUpdate Type = "LOBBY_UPDATE"
	TypeMatchFound  Type = "MATCH_FOUND"
	TypeGameUpdate  Type = "GAME_UPDATE"
	TypeError       Type = "ERROR"
)

// Envelope is the tagged wire format for all messages in both directions
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope builds an envelope with an encoded payload
func NewEnvelope(t Type, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: t}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s payload: %w", t, err)
	}
	return Envelope{Type: t, Payload: data}, nil
}

// MustEnvelope is NewEnvelope for payload types known to marshal cleanly
func MustEnvelope(t Type, payload any) Envelope {
	env, err := NewEnvelope(t, payload)
	if err != nil {
		panic(err)
	}
	return env
}

// Decode unmarshals the payload into v
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s envelope has no payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Type, err)
	}
	return nil
}

// JoinLobbyPayload is sent by a client to enter the matchmaking queue
type JoinLobbyPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// LeaveLobbyPayload is sent by a client to leave the matchmaking queue
type LeaveLobbyPayload struct {
	UserID string `json:"userId"`
}

// MakeMovePayload is sent by a client to submit their move for a match
type MakeMovePayload struct {
	GameID string `json:"gameId"`
	UserID string `json:"userId"`
	Move   string `json:"move"`
}

// LobbyUpdatePayload reports queue status to everyone waiting
type LobbyUpdatePayload struct {
	PlayersWaiting int `json:"playersWaiting"`
}

// MatchFoundPayload notifies a queued player that they have been paired
type MatchFoundPayload struct {
	GameID           string `json:"gameId"`
	OpponentID       string `json:"opponentId"`
	OpponentUsername string `json:"opponentUsername"`
}

// GameUpdatePayload delivers the resolved outcome of a match.
// Result is the winner's player id, or "draw".
type GameUpdatePayload struct {
	Player1ID       string `json:"player1Id"`
	Player2ID       string `json:"player2Id"`
	Result          string `json:"result"`
	Player1EloDelta int    `json:"player1EloDelta"`
	Player2EloDelta int    `json:"player2EloDelta"`
}

// ErrorPayload reports a protocol-level error to the offending connection only
type ErrorPayload struct {
	Message string `json:"message"`
}

// GameUpdateFor builds the GAME_UPDATE envelope from a match record
func GameUpdateFor(rec *model.MatchRecord) Envelope {
	result := "draw"
	if rec.WinnerID != "" {
		result = string(rec.WinnerID)
	}
	return MustEnvelope(TypeGameUpdate, GameUpdatePayload{
		Player1ID:       string(rec.Player1ID),
		Player2ID:       string(rec.Player2ID),
		Result:          result,
		Player1EloDelta: rec.Player1Delta,
		Player2EloDelta: rec.Player2Delta,
	})
}

// ErrorEnvelope builds an ERROR envelope with the given message
func ErrorEnvelope(message string) Envelope {
	return MustEnvelope(TypeError, ErrorPayload{Message: message})
}
