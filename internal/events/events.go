package events

import (
	"ctchen222/tictactoe-match/internal/game"
	"encoding/json"
	"fmt"
)

// Event types pushed to session subscribers.
const (
	TypeStateUpdated  = "state_updated"
	TypeRoundDecided  = "round_decided"
	TypeMatchDecided  = "match_decided"
	TypeSessionClosed = "session_closed"
)

// Event represents a message pushed to everyone watching a session.
type Event struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// RoundDecidedPayload is the payload for the "round_decided" event.
type RoundDecidedPayload struct {
	SessionID string          `json:"session_id"`
	Round     int             `json:"round"`
	Winner    game.PlayerMark `json:"winner,omitempty"`
	Line      []int           `json:"line,omitempty"`
	Message   string          `json:"message"`
}

// MatchDecidedPayload is the payload for the "match_decided" event.
type MatchDecidedPayload struct {
	SessionID string          `json:"session_id"`
	Winner    game.PlayerMark `json:"winner,omitempty"`
	Tie       bool            `json:"tie"`
	ScoreX    int             `json:"score_x"`
	ScoreO    int             `json:"score_o"`
	Message   string          `json:"message"`
}

// SessionClosedPayload is the payload for the "session_closed" event.
type SessionClosedPayload struct {
	SessionID string `json:"session_id"`
}

// New marshals payload into an Event of the given type.
func New(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: raw}, nil
}
