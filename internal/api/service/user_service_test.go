package service

import (
	"context"
	"ctchen222/tictactoe-match/internal/api/models"
	"ctchen222/tictactoe-match/internal/api/repository"
	"ctchen222/tictactoe-match/internal/db"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *userService {
	t.Helper()
	pool, err := db.Connect(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return NewUserService(repository.NewUserRepository(pool), "test-secret", time.Hour).(*userService)
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	profile, err := s.Register(ctx, &models.RegisterRequest{Username: "ada", Password: "lovelace"})
	require.NoError(t, err)
	assert.Equal(t, &models.Profile{ID: 1, Username: "ada"}, profile)

	t.Run("Duplicate username", func(t *testing.T) {
		_, err := s.Register(ctx, &models.RegisterRequest{Username: "ada", Password: "another"})
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("Wrong password", func(t *testing.T) {
		_, err := s.Login(ctx, &models.LoginRequest{Username: "ada", Password: "babbage"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Unknown user", func(t *testing.T) {
		_, err := s.Login(ctx, &models.LoginRequest{Username: "nobody", Password: "lovelace"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Token round trip", func(t *testing.T) {
		login, err := s.Login(ctx, &models.LoginRequest{Username: "ada", Password: "lovelace"})
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), login.ExpiresAt, 2*time.Second)

		claims, err := s.ParseToken(login.Token)
		require.NoError(t, err)
		assert.Equal(t, "ada", claims.Username)
		assert.Equal(t, "1", claims.Subject)

		me, err := s.Profile(ctx, claims)
		require.NoError(t, err)
		assert.Equal(t, "ada", me.Username)
	})

	t.Run("Profile of unknown user", func(t *testing.T) {
		_, err := s.Profile(ctx, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "42"}})
		assert.ErrorIs(t, err, ErrInvalidToken)

		_, err = s.Profile(ctx, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "guest"}})
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestUserService_ParseToken(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	_, err := s.Register(ctx, &models.RegisterRequest{Username: "ada", Password: "lovelace"})
	require.NoError(t, err)
	login, err := s.Login(ctx, &models.LoginRequest{Username: "ada", Password: "lovelace"})
	require.NoError(t, err)
	token := login.Token

	t.Run("Expired", func(t *testing.T) {
		expired := *s
		expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		_, err := expired.ParseToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Other secret", func(t *testing.T) {
		other := *s
		other.jwtSecret = []byte("other-secret")

		_, err := other.ParseToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := s.ParseToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestUserService_GuestLogin(t *testing.T) {
	s := newTestService(t)

	id, err := s.GuestLogin(context.Background())

	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}
