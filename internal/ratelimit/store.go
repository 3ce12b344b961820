package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store tracks request timestamps per bucket key over a rolling window.
type Store interface {
	// Take admits one request for key if fewer than ceiling requests
	// occurred within the trailing window, recording it on admission.
	// Rejected requests are not recorded against the window.
	Take(ctx context.Context, key string, window time.Duration, ceiling int) (bool, error)
}

// MemoryStore is a process-local sliding-window store. Buckets live for the
// process lifetime; stale entries are pruned on access.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string][]time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string][]time.Time)}
}

// Take implements Store with a mutex-guarded timestamp slice per key.
func (m *MemoryStore) Take(_ context.Context, key string, window time.Duration, ceiling int) (bool, error) {
	now := time.Now()
	cutoff := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.buckets[key]
	pruned := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}

	if len(pruned) >= ceiling {
		m.buckets[key] = pruned
		return false, nil
	}

	m.buckets[key] = append(pruned, now)
	return true, nil
}
