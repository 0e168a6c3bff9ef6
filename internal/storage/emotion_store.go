package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	emotionmodel "github.com/zhaojunwei/campus-companion/backend/internal/model/emotion"
)

// EmotionStore implements emotion.Store on GORM as an append-only log.
type EmotionStore struct {
	db *gorm.DB
}

var _ emotionmodel.Store = (*EmotionStore)(nil)

// NewEmotionStore wraps the shared database handle.
func NewEmotionStore(db *gorm.DB) *EmotionStore {
	return &EmotionStore{db: db}
}

// Append writes one immutable record.
func (s *EmotionStore) Append(ctx context.Context, record emotionmodel.Record) error {
	row := emotionRow{
		ID:         record.ID,
		UserID:     record.UserID,
		Timestamp:  record.Timestamp,
		Message:    record.Message,
		Label:      string(record.Emotion.Label),
		Confidence: record.Emotion.Confidence,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append emotion record: %w", err)
	}
	return nil
}

// Frequencies counts labels over the most recent FrequencyWindow records.
func (s *EmotionStore) Frequencies(ctx context.Context, userID string) (map[emotionmodel.Label]int, error) {
	var rows []emotionRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp desc").
		Limit(emotionmodel.FrequencyWindow).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load emotion records: %w", err)
	}

	counts := make(map[emotionmodel.Label]int, len(emotionmodel.Labels))
	for _, row := range rows {
		counts[emotionmodel.Label(row.Label)]++
	}
	return counts, nil
}
