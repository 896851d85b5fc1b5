package stores

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	data    []byte
	expires time.Time
}

type memoryStore struct {
	mu       sync.RWMutex
	lifetime time.Duration
	items    map[string]memEntry
}

// NewMemoryStore returns a process-local store, lifetime <= 0 means no expiry
func NewMemoryStore(lifetime time.Duration) SessionStore {
	return &memoryStore{lifetime: lifetime, items: make(map[string]memEntry)}
}

func (s *memoryStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		_ = s.Delete(ctx, key)
		return nil, ErrSessionNotFound
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

func (s *memoryStore) Save(ctx context.Context, key string, data []byte) error {
	now := time.Now()
	e := memEntry{data: make([]byte, len(data))}
	copy(e.data, data)
	if s.lifetime > 0 {
		e.expires = now.Add(s.lifetime)
	}
	s.mu.Lock()
	s.sweepLocked(now)
	s.items[key] = e
	s.mu.Unlock()
	return nil
}

// sweepLocked drops expired entries, caller holds mu
func (s *memoryStore) sweepLocked(now time.Time) {
	if s.lifetime <= 0 {
		return
	}
	for k, e := range s.items {
		if now.After(e.expires) {
			delete(s.items, k)
		}
	}
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}
