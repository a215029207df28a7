package selfplay

import (
	"context"
	"ctchen222/tictactoe-match/internal/bot"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PerfectPlayDraws(t *testing.T) {
	sum, err := Run(context.Background(), Config{X: bot.Hard, O: bot.Hard, Matches: 3, RoundLimit: 4})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Ties)
	assert.Equal(t, 12, sum.RoundDraws)
	assert.Zero(t, sum.RoundsX+sum.RoundsO)
	assert.Zero(t, sum.MarginTotal)
	assert.Zero(t, sum.MarginMean)
	assert.Zero(t, sum.MarginStdDev)
}

func TestRun_HardNeverLoses(t *testing.T) {
	sum, err := Run(context.Background(), Config{X: bot.Easy, O: bot.Hard, Matches: 20, RoundLimit: 5, Seed: 7})
	require.NoError(t, err)

	assert.Zero(t, sum.RoundsX, "the exhaustive engine never loses a round")
	assert.Zero(t, sum.WinsX)
	assert.Equal(t, 20, sum.WinsO+sum.Ties)
	assert.Equal(t, 100, sum.RoundsO+sum.RoundDraws)
	assert.LessOrEqual(t, sum.MarginMean, 0.0)
	assert.Equal(t, float64(sum.RoundsX-sum.RoundsO), sum.MarginTotal)
	assert.InDelta(t, sum.MarginTotal/20, sum.MarginMean, 1e-9)
}

func TestRun_SeedReproduces(t *testing.T) {
	cfg := Config{X: bot.Easy, O: bot.Medium, Matches: 10, RoundLimit: 3, Seed: 42}

	a, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	b, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := Run(context.Background(), Config{X: bot.Hard, O: bot.Hard, Matches: 0, RoundLimit: 1})
	assert.Error(t, err)

	_, err = Run(context.Background(), Config{X: bot.Hard, O: bot.Hard, Matches: 1, RoundLimit: 0})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, Config{X: bot.Hard, O: bot.Hard, Matches: 1, RoundLimit: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
