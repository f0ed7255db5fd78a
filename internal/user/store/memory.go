package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"clavis/internal/user"
	id "clavis/pkg/domain"
	"clavis/pkg/platform/sentinel"
)

// InMemoryStore keeps the test and development implementation lightweight.
// It mirrors the PostgresStore contract, including case-insensitive email
// uniqueness, and intentionally favors clarity over performance.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]user.User
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{users: make(map[id.UserID]user.User)}
}

func (s *InMemoryStore) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.findByEmailLocked(u.Email); ok {
		return fmt.Errorf("create user: %w", sentinel.ErrConflict)
	}
	now := time.Now().UTC()
	u.ID = id.NewUserID()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = *u
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		return &u, nil
	}
	return nil, fmt.Errorf("find user by id: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.findByEmailLocked(email); ok {
		return &u, nil
	}
	return nil, fmt.Errorf("find user by email: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) Update(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[u.ID]
	if !ok {
		return fmt.Errorf("update user: %w", sentinel.ErrNotFound)
	}
	if other, exists := s.findByEmailLocked(u.Email); exists && other.ID != u.ID {
		return fmt.Errorf("update user: %w", sentinel.ErrConflict)
	}
	u.CreatedAt = current.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = *u
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("delete user: %w", sentinel.ErrNotFound)
	}
	delete(s.users, userID)
	return nil
}

func (s *InMemoryStore) SetLastLogin(_ context.Context, userID id.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("set last login: %w", sentinel.ErrNotFound)
	}
	t := at.UTC()
	u.LastLogin = &t
	u.UpdatedAt = t
	s.users[userID] = u
	return nil
}

func (s *InMemoryStore) BumpTokenVersion(_ context.Context, userID id.UserID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, fmt.Errorf("bump token version: %w", sentinel.ErrNotFound)
	}
	u.TokenVersion++
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return u.TokenVersion, nil
}

func (s *InMemoryStore) findByEmailLocked(email string) (user.User, bool) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return user.User{}, false
}
