package player

import (
	"ctchen222/tictactoe-match/internal/game"
	"strings"
)

// Player is one seat of a session.
type Player struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Mark  game.PlayerMark `json:"mark"`
	IsBot bool            `json:"is_bot"`
}

// NewPlayer creates a human player. Blank names fall back to "Player X"/"Player O".
func NewPlayer(id, name string, mark game.PlayerMark) *Player {
	return &Player{
		ID:   id,
		Name: DisplayName(name, mark),
		Mark: mark,
	}
}

// DisplayName trims name and substitutes the default for blank input.
func DisplayName(name string, mark game.PlayerMark) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return "Player " + string(mark)
}
