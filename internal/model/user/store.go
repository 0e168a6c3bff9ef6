package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store with an in-memory map, suitable for tests.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User // keyed by id
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

// Create rejects duplicate usernames regardless of password.
func (s *MemoryStore) Create(_ context.Context, username, password string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == username {
			return User{}, ErrUsernameTaken
		}
	}

	created := User{
		ID:        uuid.NewString(),
		Username:  username,
		Password:  password,
		CreatedAt: time.Now().UTC(),
	}
	s.users[created.ID] = created
	return created, nil
}

// FindByUsername looks a user up by login name.
func (s *MemoryStore) FindByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, existing := range s.users {
		if existing.Username == username {
			return existing, nil
		}
	}
	return User{}, ErrNotFound
}

// FindByID looks a user up by identifier.
func (s *MemoryStore) FindByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return existing, nil
}
