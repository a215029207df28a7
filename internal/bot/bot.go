package bot

import (
	"ctchen222/tictactoe-match/internal/game"
	"ctchen222/tictactoe-match/internal/player"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// Difficulty selects the decision strategy of the automated player.
type Difficulty string

const (
	// Easy picks a uniformly random empty cell.
	Easy Difficulty = "easy"
	// Medium wins if it can, blocks if it must, then prefers center and corners.
	Medium Difficulty = "medium"
	// Hard searches the full game tree.
	Hard Difficulty = "hard"
)

const botName = "Computer"

var (
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	ErrInvalidMarks      = errors.New("bot and human marks must be X and O")
)

// ParseDifficulty accepts the tier names and their strategy aliases.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy", "random":
		return Easy, nil
	case "medium", "heuristic":
		return Medium, nil
	case "hard", "minimax", "exhaustive":
		return Hard, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
	}
}

// Engine chooses moves for the automated player. The zero value is ready to
// use and draws randomness from the global source.
type Engine struct {
	rng *rand.Rand
}

// NewEngine creates an engine backed by the global random source.
func NewEngine() *Engine {
	return &Engine{}
}

// NewSeededEngine creates an engine with a deterministic random source.
func NewSeededEngine(seed uint64) *Engine {
	return &Engine{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (e *Engine) intN(n int) int {
	if e.rng == nil {
		return rand.IntN(n)
	}
	return e.rng.IntN(n)
}

// ChooseMove returns the cell index the automated player should mark.
// Unknown difficulties fall back to Hard.
func (e *Engine) ChooseMove(board game.Board, difficulty Difficulty, botMark, humanMark game.PlayerMark) (int, error) {
	if !botMark.Valid() || humanMark != botMark.Opponent() {
		return -1, fmt.Errorf("%w: bot %q, human %q", ErrInvalidMarks, botMark, humanMark)
	}
	if board.IsBoardFull() {
		return -1, game.ErrNoLegalMove
	}

	switch difficulty {
	case Easy:
		return e.randomMove(board), nil
	case Medium:
		return e.heuristicMove(board, botMark, humanMark), nil
	default:
		return bestMove(board, botMark, humanMark), nil
	}
}

// NewBotPlayer creates a new player instance that is a bot.
func NewBotPlayer(mark game.PlayerMark) *player.Player {
	botID := "bot-" + uuid.New().String()[:8]
	p := player.NewPlayer(botID, botName, mark)
	p.IsBot = true
	return p
}
