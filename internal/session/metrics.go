package session

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var meter = otel.Meter("session")

type instruments struct {
	moves          metric.Int64Counter
	roundsDecided  metric.Int64Counter
	matchesDecided metric.Int64Counter
	botDecision    metric.Float64Histogram
}

var metrics = newInstruments()

func newInstruments() instruments {
	in := instruments{
		moves:          noop.Int64Counter{},
		roundsDecided:  noop.Int64Counter{},
		matchesDecided: noop.Int64Counter{},
		botDecision:    noop.Float64Histogram{},
	}

	if c, err := meter.Int64Counter("tictactoe.moves",
		metric.WithDescription("Moves applied to a board"),
	); err == nil {
		in.moves = c
	} else {
		otel.Handle(err)
	}

	if c, err := meter.Int64Counter("tictactoe.rounds.decided",
		metric.WithDescription("Rounds ending in a win or a draw"),
	); err == nil {
		in.roundsDecided = c
	} else {
		otel.Handle(err)
	}

	if c, err := meter.Int64Counter("tictactoe.matches.decided",
		metric.WithDescription("Matches played to the round limit"),
	); err == nil {
		in.matchesDecided = c
	} else {
		otel.Handle(err)
	}

	if h, err := meter.Float64Histogram("tictactoe.bot.decision.duration",
		metric.WithDescription("Time the engine spent choosing a move"),
		metric.WithUnit("s"),
	); err == nil {
		in.botDecision = h
	} else {
		otel.Handle(err)
	}

	return in
}
