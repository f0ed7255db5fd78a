package lockout

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore backs deployments without Redis and the unit tests. Counters
// expire lazily on read.
type InMemoryStore struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]*entry
	now     func() time.Time
}

type entry struct {
	count     int64
	expiresAt time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		window:  DefaultWindow,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func (s *InMemoryStore) RecordFailure(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	e, ok := s.entries[key]
	if !ok || now.After(e.expiresAt) {
		e = &entry{expiresAt: now.Add(s.window)}
		s.entries[key] = e
	}
	e.count++
	return e.count, nil
}

func (s *InMemoryStore) Failures(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return 0, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return 0, nil
	}
	return e.count, nil
}

func (s *InMemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
