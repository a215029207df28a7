package game

import (
	"errors"
	"fmt"
)

// PlayerMark represents the mark of a player (X, O) or an empty cell.
type PlayerMark string

const (
	// Player marks
	None    PlayerMark = ""
	PlayerX PlayerMark = "X"
	PlayerO PlayerMark = "O"

	// Board boundaries
	BorderMin = 0
	BorderMax = 8

	// FirstMover opens every round.
	FirstMover = PlayerX

	Center = 4
)

// Corners lists the corner cells in ascending order.
var Corners = [4]int{0, 2, 6, 8}

var (
	// ErrInvalidMove is the parent of every rejected placement.
	ErrInvalidMove = errors.New("invalid move")

	ErrOutOfRange    = fmt.Errorf("%w: cell index out of range", ErrInvalidMove)
	ErrCellOccupied  = fmt.Errorf("%w: cell already occupied", ErrInvalidMove)
	ErrGameNotActive = fmt.Errorf("%w: game is not active", ErrInvalidMove)
	ErrMoveLocked    = fmt.Errorf("%w: waiting for the computer to move", ErrInvalidMove)
	ErrInvalidMark   = fmt.Errorf("%w: mark must be X or O", ErrInvalidMove)

	// ErrNoLegalMove is returned when a move is requested on a full board.
	ErrNoLegalMove = errors.New("no legal move left")
)

// Opponent returns the other player's mark. None maps to None.
func (m PlayerMark) Opponent() PlayerMark {
	switch m {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return None
	}
}

// Valid reports whether m is one of the two player marks.
func (m PlayerMark) Valid() bool {
	return m == PlayerX || m == PlayerO
}

// Board is a 3x3 grid stored row-major: 0,1,2 / 3,4,5 / 6,7,8.
// Being an array, a Board value is already an independent copy.
type Board [9]PlayerMark

// Place writes mark into the cell at index. A cell, once marked, stays marked
// until Clear.
func (b *Board) Place(index int, mark PlayerMark) error {
	if index < BorderMin || index > BorderMax {
		return fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	if !mark.Valid() {
		return ErrInvalidMark
	}
	if b[index] != None {
		return fmt.Errorf("%w: %d", ErrCellOccupied, index)
	}
	b[index] = mark
	return nil
}

// Clear resets every cell to None.
func (b *Board) Clear() {
	*b = Board{}
}

// Snapshot returns a copy of the board that shares nothing with b.
func (b *Board) Snapshot() Board {
	return *b
}

// EmptyCells returns the indices of empty cells in ascending order.
func (b Board) EmptyCells() []int {
	cells := make([]int, 0, len(b))
	for i, cell := range b {
		if cell == None {
			cells = append(cells, i)
		}
	}
	return cells
}

// IsBoardFull checks if every cell is marked.
func (b Board) IsBoardFull() bool {
	for _, cell := range b {
		if cell == None {
			return false
		}
	}
	return true
}

// With returns a copy of the board with mark placed at index, without validation.
func (b Board) With(index int, mark PlayerMark) Board {
	b[index] = mark
	return b
}

// Count returns how many cells hold mark.
func (b Board) Count(mark PlayerMark) int {
	n := 0
	for _, cell := range b {
		if cell == mark {
			n++
		}
	}
	return n
}
