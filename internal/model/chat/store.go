package chat

import (
	"context"
	"sync"
)

// MemoryStore implements Store with an in-memory map, suitable for tests.
type MemoryStore struct {
	mu        sync.RWMutex
	histories map[string][]Turn
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{histories: make(map[string][]Turn)}
}

// Find returns a copy of the stored history.
func (s *MemoryStore) Find(_ context.Context, userID string) (History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.histories[userID]
	if !ok {
		return History{}, ErrNotFound
	}

	copied := make([]Turn, len(turns))
	copy(copied, turns)
	return History{UserID: userID, Turns: copied}, nil
}

// Replace swaps in the whole turn sequence, creating the document lazily.
func (s *MemoryStore) Replace(_ context.Context, userID string, turns []Turn) error {
	copied := make([]Turn, len(turns))
	copy(copied, turns)

	s.mu.Lock()
	s.histories[userID] = copied
	s.mu.Unlock()
	return nil
}
