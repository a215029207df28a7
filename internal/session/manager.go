package session

import (
	"context"
	"ctchen222/tictactoe-match/internal/match"
	"ctchen222/tictactoe-match/internal/player"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks . Store

// Snapshot is everything needed to rebuild a session: the current match only,
// no history.
type Snapshot struct {
	ID        string        `json:"id"`
	Config    Config        `json:"config"`
	PlayerX   player.Player `json:"player_x"`
	PlayerO   player.Player `json:"player_o"`
	State     match.State   `json:"state"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// DefaultSweepInterval is how often RunJanitor looks for idle sessions.
const DefaultSweepInterval = time.Minute

// Store persists session snapshots. Load returns ErrNotFound for unknown ids.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, id string) (*Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// expirer is implemented by stores that drop expired snapshots only when
// asked to.
type expirer interface {
	Sweep(now time.Time) int
}

// Manager keeps the live sessions of this process. Sessions missing from memory
// are restored from the store on first access.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	store    Store
	opts     []Option
}

// NewManager creates a Manager. store may be nil, in which case sessions live
// in memory only. opts are applied to every session it creates or restores.
func NewManager(store Store, opts ...Option) *Manager {
	if store != nil {
		opts = append([]Option{WithStore(store)}, opts...)
	}
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		opts:     opts,
	}
}

// Create starts a new match.
func (m *Manager) Create(ctx context.Context, cfg Config) (*Session, error) {
	ctx, span := tracer.Start(ctx, "Manager.Create", trace.WithAttributes(
		attribute.String("session.mode", string(cfg.Mode)),
		attribute.String("bot.difficulty", string(cfg.Difficulty)),
	))
	defer span.End()

	s, err := New(ctx, cfg, m.opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create session")
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	span.SetAttributes(attribute.String("session.id", s.ID))
	slog.InfoContext(ctx, "Session created", "session.id", s.ID, "session.mode", s.cfg.Mode, "bot.difficulty", s.cfg.Difficulty, "round.limit", s.cfg.RoundLimit)
	return s, nil
}

// Get returns the live session with id, restoring it from the store if needed.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	if ok {
		// Under the read lock so Sweep cannot evict it in between.
		s.touch()
	}
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	if m.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	ctx, span := tracer.Start(ctx, "Manager.Restore", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	snap, err := m.store.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to load session")
		}
		return nil, err
	}

	restored, err := Restore(ctx, *snap, m.opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to restore session")
		return nil, fmt.Errorf("failed to restore session %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have restored it first.
	if existing, ok := m.sessions[id]; ok {
		restored.Close()
		return existing, nil
	}
	m.sessions[id] = restored
	slog.InfoContext(ctx, "Session restored", "session.id", id)
	return restored, nil
}

// Delete closes the session and removes its snapshot.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
	}

	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) && ok {
				return nil
			}
			return err
		}
		return nil
	}

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close closes every live session. Snapshots stay in the store.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes and forgets live sessions unused for longer than maxIdle.
// Their snapshots stay in the store until it expires them. It returns the
// ids it removed.
func (m *Manager) Sweep(ctx context.Context, now time.Time, maxIdle time.Duration) []string {
	var removed []string
	var evicted []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		since, idle := s.idleSince()
		if !idle || now.Sub(since) <= maxIdle {
			continue
		}
		delete(m.sessions, id)
		removed = append(removed, id)
		evicted = append(evicted, s)
	}
	m.mu.Unlock()

	for _, s := range evicted {
		s.Close()
	}

	if len(removed) > 0 {
		slog.InfoContext(ctx, "Evicted idle sessions", "sessions.evicted", len(removed), "sessions.live", m.Len())
	}
	return removed
}

// RunJanitor sweeps idle sessions, and expired snapshots of stores that need
// it, every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(ctx, now, maxIdle)
			if e, ok := m.store.(expirer); ok {
				if n := e.Sweep(now); n > 0 {
					slog.DebugContext(ctx, "Expired session snapshots", "snapshots.expired", n)
				}
			}
		}
	}
}
