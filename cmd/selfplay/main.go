package main

import (
	"context"
	"ctchen222/tictactoe-match/internal/bot"
	"ctchen222/tictactoe-match/internal/logger"
	"ctchen222/tictactoe-match/internal/match"
	"ctchen222/tictactoe-match/internal/selfplay"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
)

func main() {
	x := flag.String("x", "hard", "difficulty playing X")
	o := flag.String("o", "medium", "difficulty playing O")
	matches := flag.Int("matches", 100, "number of matches")
	rounds := flag.Int("rounds", match.DefaultRoundLimit, "rounds per match")
	seed := flag.Uint64("seed", 1, "random seed")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	if err := logger.Init(*level); err != nil {
		log.Fatal(err)
	}

	xDifficulty, err := bot.ParseDifficulty(*x)
	if err != nil {
		log.Fatal(err)
	}
	oDifficulty, err := bot.ParseDifficulty(*o)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sum, err := selfplay.Run(ctx, selfplay.Config{
		X:          xDifficulty,
		O:          oDifficulty,
		Matches:    *matches,
		RoundLimit: *rounds,
		Seed:       *seed,
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("X (%s) vs O (%s), %d matches of %d rounds\n", xDifficulty, oDifficulty, sum.Matches, *rounds)
	fmt.Printf("matches: X %d, O %d, tie %d\n", sum.WinsX, sum.WinsO, sum.Ties)
	fmt.Printf("rounds:  X %d, O %d, draw %d\n", sum.RoundsX, sum.RoundsO, sum.RoundDraws)
	fmt.Printf("margin:  total %+.0f, mean %.3f, stddev %.3f\n", sum.MarginTotal, sum.MarginMean, sum.MarginStdDev)
}
