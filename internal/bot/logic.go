package bot

import (
	"ctchen222/tictactoe-match/internal/game"
)

// randomMove makes a completely random move.
func (e *Engine) randomMove(board game.Board) int {
	availableMoves := board.EmptyCells()
	return availableMoves[e.intN(len(availableMoves))]
}

// heuristicMove looks one ply ahead: win, block, center, a random corner, then
// anything.
func (e *Engine) heuristicMove(board game.Board, botMark, humanMark game.PlayerMark) int {
	// 1. Win: Check if the bot can win in the next move
	if index, canWin := findWinningMove(board, botMark); canWin {
		return index
	}

	// 2. Block: Check if the opponent is about to win and block them
	if index, canBlock := findWinningMove(board, humanMark); canBlock {
		return index
	}

	// 3. Center: Take the center if it's available
	if board[game.Center] == game.None {
		return game.Center
	}

	// 4. Corners: Take an available corner randomly
	availableCorners := make([]int, 0, len(game.Corners))
	for _, corner := range game.Corners {
		if board[corner] == game.None {
			availableCorners = append(availableCorners, corner)
		}
	}
	if len(availableCorners) > 0 {
		return availableCorners[e.intN(len(availableCorners))]
	}

	return e.randomMove(board)
}

// findWinningMove returns the lowest empty cell that completes a line for mark.
func findWinningMove(board game.Board, mark game.PlayerMark) (index int, found bool) {
	for _, cell := range board.EmptyCells() {
		if game.CheckWinner(board.With(cell, mark)) == mark {
			return cell, true
		}
	}
	return -1, false
}

// bestMove returns the first cell, in ascending order, with the highest
// minimax score for botMark.
func bestMove(board game.Board, botMark, humanMark game.PlayerMark) int {
	bestScore := minScore - 1
	move := -1
	for _, cell := range board.EmptyCells() {
		score := minimax(board.With(cell, botMark), false, botMark, humanMark)
		if score > bestScore {
			bestScore = score
			move = cell
		}
	}
	return move
}

const (
	maxScore = 1
	minScore = -1
)

// minimax scores a position: +1 if botMark wins, -1 if humanMark wins, 0 for a
// draw. Every win scores the same regardless of how many moves it takes.
func minimax(board game.Board, maximizing bool, botMark, humanMark game.PlayerMark) int {
	outcome := game.Evaluate(board)
	switch outcome.Kind {
	case game.Won:
		if outcome.Winner == botMark {
			return maxScore
		}
		return minScore
	case game.Draw:
		return 0
	}

	if maximizing {
		best := minScore - 1
		for _, cell := range board.EmptyCells() {
			best = max(best, minimax(board.With(cell, botMark), false, botMark, humanMark))
		}
		return best
	}

	best := maxScore + 1
	for _, cell := range board.EmptyCells() {
		best = min(best, minimax(board.With(cell, humanMark), true, botMark, humanMark))
	}
	return best
}
