// Package throttle records which provider credentials are cooling down after a
// rate-limit or quota response.
package throttle

import (
	"context"
	"sync"
	"time"
)

// Store pauses credentials by key. Implementations are safe for concurrent use.
type Store interface {
	Pause(ctx context.Context, key string, d time.Duration) error
	Paused(ctx context.Context, key string) (bool, error)
}

// MemoryStore is a per-process Store.
type MemoryStore struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{until: make(map[string]time.Time), now: time.Now}
}

// Pause extends the cooldown of key to at least now+d.
func (s *MemoryStore) Pause(_ context.Context, key string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	until := s.now().Add(d)
	if cur, ok := s.until[key]; !ok || until.After(cur) {
		s.until[key] = until
	}
	return nil
}

func (s *MemoryStore) Paused(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.until[key]
	if !ok {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.until, key)
		return false, nil
	}
	return true, nil
}
