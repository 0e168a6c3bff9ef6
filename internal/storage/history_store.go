package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	chatmodel "github.com/zhaojunwei/campus-companion/backend/internal/model/chat"
)

// HistoryStore implements chat.Store on GORM with one document per user.
type HistoryStore struct {
	db *gorm.DB
}

var _ chatmodel.Store = (*HistoryStore)(nil)

// NewHistoryStore wraps the shared database handle.
func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Find returns the user's full ordered turn sequence.
func (s *HistoryStore) Find(ctx context.Context, userID string) (chatmodel.History, error) {
	var row historyRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chatmodel.History{}, chatmodel.ErrNotFound
		}
		return chatmodel.History{}, fmt.Errorf("failed to load chat history: %w", err)
	}

	var turns []chatmodel.Turn
	if row.Turns != "" {
		if err := json.Unmarshal([]byte(row.Turns), &turns); err != nil {
			return chatmodel.History{}, fmt.Errorf("failed to decode chat history: %w", err)
		}
	}

	return chatmodel.History{UserID: userID, Turns: turns}, nil
}

// Replace upserts the whole turn sequence. Full replace-on-write: the last
// writer wins, concurrent appends for the same user are not serialized.
func (s *HistoryStore) Replace(ctx context.Context, userID string, turns []chatmodel.Turn) error {
	encoded, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to encode chat history: %w", err)
	}

	row := historyRow{UserID: userID, Turns: string(encoded)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"turns", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save chat history: %w", err)
	}
	return nil
}
