package emotion

import (
	"context"
	"sync"
)

// MemoryStore implements Store with an in-memory log per user, suitable for
// tests and single-process runs without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]Record)}
}

// Append adds one immutable record to the user's log.
func (s *MemoryStore) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.UserID] = append(s.records[record.UserID], record)
	return nil
}

// Frequencies counts labels over the most recent FrequencyWindow records.
func (s *MemoryStore) Frequencies(_ context.Context, userID string) (map[Label]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.records[userID]
	if len(records) > FrequencyWindow {
		records = records[len(records)-FrequencyWindow:]
	}

	counts := make(map[Label]int, len(Labels))
	for _, record := range records {
		counts[record.Emotion.Label]++
	}
	return counts, nil
}
