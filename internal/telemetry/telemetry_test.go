package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitOtel_Disabled(t *testing.T) {
	shutdown, err := InitOtel(context.Background(), Options{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitOtel_Endpoint(t *testing.T) {
	// The gRPC client connects lazily, so no collector needs to be running.
	shutdown, err := InitOtel(context.Background(), Options{Endpoint: "localhost:4317"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Flushing to an absent collector may fail; only the call path matters here.
	_ = shutdown(ctx)
}
