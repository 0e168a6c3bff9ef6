package emotion

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	analysis "github.com/zhaojunwei/campus-companion/backend/internal/analysis/emotion"
	"github.com/zhaojunwei/campus-companion/backend/internal/analysis/face"
	emotionmodel "github.com/zhaojunwei/campus-companion/backend/internal/model/emotion"
)

// ErrEmptyUpload 表示上传的文件没有内容。
var ErrEmptyUpload = errors.New("empty image payload")

// Service 负责图像到情绪标签的推断流水线，并维护情绪日志。
type Service struct {
	records emotionmodel.Store
}

// NewService wires the emotion log store.
func NewService(records emotionmodel.Store) *Service {
	return &Service{records: records}
}

// AnalyzeImage runs decode → locate → score and never fails: undecodable
// input degrades to a random guess, a missing face to the neutral result.
// Both degradations are contract (see Fallback/NoFace), not error handling
// to be tightened later.
func (s *Service) AnalyzeImage(data []byte) emotionmodel.Result {
	img, err := face.Decode(data)
	if err != nil {
		log.Printf("[emotion] image decode failed, using random fallback: %v", err)
		return analysis.Fallback()
	}

	rect, ok := face.Locate(img)
	if !ok {
		log.Printf("[emotion] no face detected in the image")
		return analysis.NoFace()
	}

	result, _, err := analysis.Score(face.Crop(img, rect))
	if err != nil {
		log.Printf("[emotion] scoring failed, using random fallback: %v", err)
		return analysis.Fallback()
	}
	return result
}

// Record appends one immutable entry to the user's emotion log.
func (s *Service) Record(ctx context.Context, userID, message string, result emotionmodel.Result) error {
	return s.records.Append(ctx, emotionmodel.Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Message:   message,
		Emotion:   result,
	})
}

// AnalyzeUpload handles the standalone analysis endpoint: validates the
// payload, analyzes it and records the outcome. An empty payload is the one
// caller-visible validation error; nothing is recorded for it.
func (s *Service) AnalyzeUpload(ctx context.Context, userID string, payload []byte) (emotionmodel.Result, error) {
	if len(payload) == 0 {
		return emotionmodel.Result{}, ErrEmptyUpload
	}

	result := s.AnalyzeImage(payload)
	if err := s.Record(ctx, userID, "", result); err != nil {
		return emotionmodel.Result{}, err
	}
	return result, nil
}

// Analytics aggregates label counts over the user's recent emotion records.
func (s *Service) Analytics(ctx context.Context, userID string) (map[emotionmodel.Label]int, error) {
	return s.records.Frequencies(ctx, userID)
}
