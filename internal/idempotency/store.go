// Package idempotency guards against re-processing of webhook deliveries.
//
// A marker keyed by "issueKey/commentID" is written before any reply is
// posted. Two concurrent deliveries of the same comment may both pass the
// existence check before either writes; this narrow race is accepted, the
// guard bounds duplicates rather than eliminating them.
package idempotency

import (
	"context"
	"sync"
	"time"
)

// Store is the durable marker store consulted once per delivery.
type Store interface {
	// Exists reports whether a marker for key has already been written.
	Exists(ctx context.Context, key string) (bool, error)
	// Put writes the marker for key. Overwriting an existing marker is harmless.
	Put(ctx context.Context, key string) error
}

// MemoryStore is an in-process Store with TTL-based eviction. It is suitable
// for single-instance deployments and tests; markers do not survive restarts.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
}

// NewMemoryStore creates a MemoryStore whose markers expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &MemoryStore{
		entries: make(map[string]time.Time),
		ttl:     ttl,
	}
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, expiry := range s.entries {
		if now.After(expiry) {
			delete(s.entries, k)
		}
	}

	expiry, ok := s.entries[key]
	return ok && now.Before(expiry), nil
}

func (s *MemoryStore) Put(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = time.Now().Add(s.ttl)
	return nil
}
