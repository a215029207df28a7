package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandler(t *testing.T) {
	var debug, info bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	log := slog.New(h).With("session.id", "abc").WithGroup("move")

	log.Debug("considering", "index", 4)
	log.Info("placed", "index", 4)

	assert.Contains(t, debug.String(), "considering")
	assert.Contains(t, debug.String(), "placed")
	assert.NotContains(t, info.String(), "considering")
	assert.Contains(t, info.String(), "session.id=abc")
	assert.Contains(t, info.String(), "move.index=4")
}

func TestMultiHandler_KeepsWritingAfterFailure(t *testing.T) {
	var out bytes.Buffer
	text := slog.NewTextHandler(&out, nil)
	h := NewMultiHandler(failingHandler{text}, text)

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "round decided", 0))

	assert.ErrorContains(t, err, "sink down")
	assert.Contains(t, out.String(), "round decided")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}
