package emotion

import (
	"errors"
	"image"
	"math"
	"math/rand"

	emotionmodel "github.com/zhaojunwei/campus-companion/backend/internal/model/emotion"
)

const (
	// meanThreshold splits the bright (happy/surprise) and dark (sad/angry)
	// scoring branches.
	meanThreshold = 100.0

	// fallbackConfidence is attached to the random guess when scoring is
	// impossible. The random fallback is contract, not error recovery.
	fallbackConfidence = 0.7
)

// ErrEmptyRegion 表示传入的人脸区域没有像素。
var ErrEmptyRegion = errors.New("emotion: empty face region")

// Distribution is the normalized score vector over the fixed label set.
// Entries sum to 1 but individual values may be negative: the neutral score
// formula is unclamped and kept that way for compatibility with the data
// already collected.
type Distribution map[emotionmodel.Label]float64

// Score maps the grayscale face region's intensity statistics to an emotion
// label with confidence. The confidence is the winning entry of the
// normalized distribution.
func Score(region *image.Gray) (emotionmodel.Result, Distribution, error) {
	mean, std, ok := intensityStats(region)
	if !ok {
		return emotionmodel.Result{}, nil, ErrEmptyRegion
	}

	var happy, sad, angry, surprise float64
	if mean > meanThreshold {
		happy = 0.5 + std/200
		surprise = 0.3 + std/300
	} else {
		sad = 0.4 + (meanThreshold-mean)/200
		angry = 0.3 + (meanThreshold-mean)/250
	}
	neutral := 0.5 - std/200 // unclamped, may go negative

	// In label order; see emotionmodel.Labels.
	scores := [5]float64{happy, sad, angry, neutral, surprise}

	// The sum stays positive on both branches: the bright branch totals at
	// least 1.3, and on the dark branch std/200 never reaches the 1.2 base.
	total := 0.0
	for _, s := range scores {
		total += s
	}

	dist := make(Distribution, len(scores))
	best := emotionmodel.Result{Label: emotionmodel.Labels[0], Confidence: scores[0] / total}
	for i, label := range emotionmodel.Labels {
		p := scores[i] / total
		dist[label] = p
		if p > best.Confidence {
			best = emotionmodel.Result{Label: label, Confidence: p}
		}
	}

	return best, dist, nil
}

// NoFace is the short-circuit result when no face was located.
func NoFace() emotionmodel.Result {
	return emotionmodel.Result{Label: emotionmodel.Neutral, Confidence: 1.0}
}

// Fallback returns a uniformly random label at fixed confidence. Callers use
// it whenever decoding or scoring fails so malformed input still produces an
// observable result instead of an error.
func Fallback() emotionmodel.Result {
	label := emotionmodel.Labels[rand.Intn(len(emotionmodel.Labels))]
	return emotionmodel.Result{Label: label, Confidence: fallbackConfidence}
}

// intensityStats computes mean and population standard deviation over the
// region's pixels.
func intensityStats(region *image.Gray) (mean, std float64, ok bool) {
	if region == nil {
		return 0, 0, false
	}
	bounds := region.Bounds()
	count := bounds.Dx() * bounds.Dy()
	if count <= 0 {
		return 0, 0, false
	}

	sum := 0.0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			sum += float64(region.GrayAt(x, y).Y)
		}
	}
	mean = sum / float64(count)

	variance := 0.0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			d := float64(region.GrayAt(x, y).Y) - mean
			variance += d * d
		}
	}
	std = math.Sqrt(variance / float64(count))

	return mean, std, true
}
