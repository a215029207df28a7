package repository

import (
	"context"
	"ctchen222/tictactoe-match/internal/session"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	snap      session.Snapshot
	expiresAt time.Time
}

type memorySessionRepository struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemorySessionRepository creates a process-local session.Store, used when
// no Redis address is configured.
func NewMemorySessionRepository(ttl time.Duration) session.Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &memorySessionRepository{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *memorySessionRepository) Save(_ context.Context, snap session.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[snap.ID] = memoryEntry{snap: snap, expiresAt: r.now().Add(r.ttl)}
	return nil
}

func (r *memorySessionRepository) Load(_ context.Context, id string) (*session.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.liveLocked(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	snap := entry.snap
	return &snap, nil
}

func (r *memorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.liveLocked(id); !ok {
		return fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	delete(r.entries, id)
	return nil
}

// liveLocked returns the entry for id, evicting it if it has expired.
func (r *memorySessionRepository) liveLocked(id string) (memoryEntry, bool) {
	entry, ok := r.entries[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !r.now().Before(entry.expiresAt) {
		delete(r.entries, id)
		return memoryEntry{}, false
	}
	return entry, true
}

// Sweep drops every entry expired at now and returns how many it dropped.
func (r *memorySessionRepository) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, entry := range r.entries {
		if !now.Before(entry.expiresAt) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}
