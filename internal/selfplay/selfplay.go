// Package selfplay pits two engine tiers against each other over whole
// matches and summarizes the results.
package selfplay

import (
	"context"
	"ctchen222/tictactoe-match/internal/bot"
	"ctchen222/tictactoe-match/internal/game"
	"ctchen222/tictactoe-match/internal/match"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Config describes a batch of matches.
type Config struct {
	X, O       bot.Difficulty
	Matches    int
	RoundLimit int
	Seed       uint64
}

// Summary aggregates a batch. Margin is ScoreX - ScoreO per match.
type Summary struct {
	Matches      int
	WinsX        int
	WinsO        int
	Ties         int
	RoundsX      int
	RoundsO      int
	RoundDraws   int
	MarginTotal  float64
	MarginMean   float64
	MarginStdDev float64
}

// Run plays cfg.Matches matches. Each side draws randomness from its own
// seeded engine so a seed reproduces the batch.
func Run(ctx context.Context, cfg Config) (Summary, error) {
	if cfg.Matches < 1 {
		return Summary{}, fmt.Errorf("matches must be at least 1, got %d", cfg.Matches)
	}

	engines := map[game.PlayerMark]*bot.Engine{
		game.PlayerX: bot.NewSeededEngine(cfg.Seed),
		game.PlayerO: bot.NewSeededEngine(cfg.Seed + 1),
	}
	tiers := map[game.PlayerMark]bot.Difficulty{game.PlayerX: cfg.X, game.PlayerO: cfg.O}

	var sum Summary
	margins := make([]float64, 0, cfg.Matches)
	for i := 0; i < cfg.Matches; i++ {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}

		m, err := match.New(cfg.RoundLimit)
		if err != nil {
			return Summary{}, err
		}
		if err := play(m, engines, tiers); err != nil {
			return Summary{}, fmt.Errorf("match %d: %w", i+1, err)
		}

		x, o := m.Score(game.PlayerX), m.Score(game.PlayerO)
		sum.RoundsX += x
		sum.RoundsO += o
		sum.RoundDraws += cfg.RoundLimit - x - o
		result, _ := m.Result()
		switch {
		case result.Tie:
			sum.Ties++
		case result.Winner == game.PlayerX:
			sum.WinsX++
		default:
			sum.WinsO++
		}
		margins = append(margins, float64(x-o))
	}

	sum.Matches = cfg.Matches
	sum.MarginTotal = floats.Sum(margins)
	sum.MarginMean, sum.MarginStdDev = stat.MeanStdDev(margins, nil)
	if len(margins) == 1 {
		sum.MarginStdDev = 0
	}
	slog.DebugContext(ctx, "Self-play finished",
		"x", cfg.X, "o", cfg.O,
		"matches", cfg.Matches,
		"margin.total", sum.MarginTotal,
	)
	return sum, nil
}

func play(m *match.Match, engines map[game.PlayerMark]*bot.Engine, tiers map[game.PlayerMark]bot.Difficulty) error {
	for {
		switch m.Phase() {
		case match.MatchDecided:
			return nil
		case match.RoundDecided:
			if err := m.AdvanceRound(); err != nil {
				return err
			}
		default:
			mover := m.Mover()
			index, err := engines[mover].ChooseMove(m.Board(), tiers[mover], mover, mover.Opponent())
			if err != nil {
				return err
			}
			if _, err := m.Place(index); err != nil {
				return err
			}
		}
	}
}
