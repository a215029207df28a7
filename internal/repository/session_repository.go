package repository

import (
	"context"
	"ctchen222/tictactoe-match/internal/session"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("repository.session")

// DefaultSessionTTL is how long an untouched snapshot is kept.
const DefaultSessionTTL = 24 * time.Hour

// Hash fields of a session key.
const (
	fieldConfig    = "config"
	fieldPlayerX   = "player_x"
	fieldPlayerO   = "player_o"
	fieldState     = "state"
	fieldUpdatedAt = "updated_at"
)

type redisSessionRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessionRepository creates a new Redis-based session.Store. Every save
// refreshes the key's TTL.
func NewSessionRepository(rdb *redis.Client, ttl time.Duration) session.Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &redisSessionRepository{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Save writes the snapshot into the session hash.
func (r *redisSessionRepository) Save(ctx context.Context, snap session.Snapshot) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Save", trace.WithAttributes(
		attribute.String("session.id", snap.ID),
	))
	defer span.End()

	fields := make(map[string]any, 5)
	for name, value := range map[string]any{
		fieldConfig:  snap.Config,
		fieldPlayerX: snap.PlayerX,
		fieldPlayerO: snap.PlayerO,
		fieldState:   snap.State,
	} {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", name, err)
		}
		fields[name] = raw
	}
	fields[fieldUpdatedAt] = snap.UpdatedAt.Format(time.RFC3339Nano)

	key := sessionKey(snap.ID)
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save session in redis: %w", err)
	}
	return nil
}

// Load retrieves a snapshot from Redis.
func (r *redisSessionRepository) Load(ctx context.Context, id string) (*session.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "SessionRepository.Load", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	data, err := r.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}

	snap := &session.Snapshot{ID: id}
	for name, target := range map[string]any{
		fieldConfig:  &snap.Config,
		fieldPlayerX: &snap.PlayerX,
		fieldPlayerO: &snap.PlayerO,
		fieldState:   &snap.State,
	} {
		if err := json.Unmarshal([]byte(data[name]), target); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", name, err)
		}
	}
	if raw := data[fieldUpdatedAt]; raw != "" {
		if snap.UpdatedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
	}
	return snap, nil
}

// Delete removes the session hash.
func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Delete", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	n, err := r.rdb.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	return nil
}
