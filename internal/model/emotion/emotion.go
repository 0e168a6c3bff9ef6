package emotion

import (
	"context"
	"time"
)

// Label 表示情绪识别可以输出的标签。
type Label string

const (
	Happy    Label = "happy"
	Sad      Label = "sad"
	Angry    Label = "angry"
	Neutral  Label = "neutral"
	Surprise Label = "surprise"
)

// Labels lists every label in scoring order. Ties in the score vector
// resolve to the earliest entry, so the order is part of the contract.
var Labels = [5]Label{Happy, Sad, Angry, Neutral, Surprise}

// Valid reports whether l belongs to the fixed label set.
func (l Label) Valid() bool {
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}

// Result is the outcome of analyzing a single image.
type Result struct {
	Label      Label   `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// Record persists one analyzed image for the analytics endpoint. Records are
// append-only and never mutated.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
	Emotion   Result    `json:"emotion"`
}

// FrequencyWindow caps how many recent records feed the analytics
// aggregation.
const FrequencyWindow = 100

// Store exposes the emotion log for services.
type Store interface {
	Append(ctx context.Context, record Record) error
	// Frequencies aggregates label occurrence counts over the most recent
	// FrequencyWindow records for the user. Empty map when nothing exists.
	Frequencies(ctx context.Context, userID string) (map[Label]int, error)
}
