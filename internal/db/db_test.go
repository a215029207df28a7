package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "profiles.db")

	pool, err := Connect(ctx, path)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.ExecContext(ctx, `INSERT INTO users (username, password_hash) VALUES (?, ?)`, "ada", "hash")
	require.NoError(t, err)

	// Reconnecting keeps existing rows.
	again, err := Connect(ctx, path)
	require.NoError(t, err)
	defer again.Close()

	var count int
	require.NoError(t, again.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`))
	assert.Equal(t, 1, count)
}

func TestConnect_Memory(t *testing.T) {
	pool, err := Connect(context.Background(), ":memory:")
	require.NoError(t, err)
	defer pool.Close()

	var name string
	err = pool.Get(&name, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'users'`)
	require.NoError(t, err)
	assert.Equal(t, "users", name)
}
