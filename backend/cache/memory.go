package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type entry struct {
	value   string
	expires time.Time
}

// MemoryStore is used when no Redis address is configured. State is local
// to the process.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]entry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.items, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := entry{value: value}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.items[key] = e
	s.sweep()
	return nil
}

func (s *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.items[key]
	n, _ := strconv.ParseInt(e.value, 10, 64)
	n++
	e.value = itoa(n)
	s.items[key] = e
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }

// sweep drops expired entries once the map grows; caller holds mu.
func (s *MemoryStore) sweep() {
	if len(s.items) < 1024 {
		return
	}
	now := s.now()
	for k, e := range s.items {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(s.items, k)
		}
	}
}
