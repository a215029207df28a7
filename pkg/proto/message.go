package proto

import "ctchen222/tictactoe-match/internal/game"

// Client command types accepted over the WebSocket.
const (
	CommandMove      = "move"
	CommandBotMove   = "bot_move"
	CommandNextRound = "next_round"
	CommandRestart   = "restart"
)

// ClientCommand represents a message from the client to the server.
type ClientCommand struct {
	Type  string `json:"type" validate:"required,oneof=move bot_move next_round restart"`
	Index *int   `json:"index,omitempty"`
}

// PlayerView describes one seat.
type PlayerView struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Mark  game.PlayerMark `json:"mark"`
	IsBot bool            `json:"is_bot"`
}

// SessionView is everything a UI needs to render a session.
type SessionView struct {
	ID          string          `json:"id"`
	Mode        string          `json:"mode"`
	Difficulty  string          `json:"difficulty,omitempty"`
	Board       game.Board      `json:"board"`
	Next        game.PlayerMark `json:"next"`
	Status      string          `json:"status"`
	Phase       string          `json:"phase"`
	Winner      game.PlayerMark `json:"winner,omitempty"`
	WinningLine []int           `json:"winning_line,omitempty"`
	Round       int             `json:"round"`
	RoundLimit  int             `json:"round_limit"`
	ScoreX      int             `json:"score_x"`
	ScoreO      int             `json:"score_o"`
	PlayerX     PlayerView      `json:"player_x"`
	PlayerO     PlayerView      `json:"player_o"`
	MatchWinner game.PlayerMark `json:"match_winner,omitempty"`
	MatchTie    bool            `json:"match_tie"`
	BotPending  bool            `json:"bot_pending"`
	// TurnMessage, RoundMessage and MatchMessage are ready-to-render text.
	TurnMessage  string `json:"turn_message,omitempty"`
	RoundMessage string `json:"round_message,omitempty"`
	MatchMessage string `json:"match_message,omitempty"`
}

// ErrorMessage is sent back over the WebSocket when a command fails.
type ErrorMessage struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
