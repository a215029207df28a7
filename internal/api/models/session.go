package models

// CreateSessionRequest starts a new match. Zero values take the server defaults.
type CreateSessionRequest struct {
	Mode        string `json:"mode" binding:"omitempty,oneof=friend computer"`
	Difficulty  string `json:"difficulty" binding:"omitempty,oneof=easy medium hard random heuristic minimax exhaustive"`
	RoundLimit  int    `json:"round_limit" binding:"omitempty,min=1,max=99"`
	PlayerXName string `json:"player_x_name" binding:"max=32"`
	PlayerOName string `json:"player_o_name" binding:"max=32"`
	BotMark     string `json:"bot_mark" binding:"omitempty,oneof=X O"`
}

// MoveRequest places a mark for the current mover. Range checks are left to
// the game so every rejected index reports the same error.
type MoveRequest struct {
	Index *int `json:"index" binding:"required"`
}
