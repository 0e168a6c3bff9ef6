package face

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/draw"
	"strings"

	// Register the decoders the camera frames arrive in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Detection parameters mirror the classic frontal-face cascade call
// (scale factor 1.1, minimum neighbours 4). They are constants, not
// tunable per request.
const (
	scaleFactor  = 1.1
	minNeighbors = 4
	minWindow    = 24

	// detectBase caps the longer image side before scanning so the window
	// count stays bounded on large frames.
	detectBase = 256

	// Candidate windows must be lit (faces reflect light) and roughly
	// left/right symmetric (frontal pose).
	brightnessFloor = 50.0
	symmetrySlack   = 0.2
)

// ErrUndecodable 表示输入不是可识别的图像。
var ErrUndecodable = errors.New("face: undecodable image")

// Rect is a face bounding box in image coordinates.
type Rect struct {
	X, Y, W, H int
}

// Area returns the rectangle area, the tie-break key when several faces are
// detected.
func (r Rect) Area() int {
	return r.W * r.H
}

// Decode turns raw image bytes, a base64 payload, or a browser data URL into
// a grayscale image ready for detection.
func Decode(data []byte) (*image.Gray, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrUndecodable
	}

	if img, err := decodeGray(trimmed); err == nil {
		return img, nil
	}

	// Frames posted by the frontend arrive base64 encoded, sometimes with a
	// data URL prefix ("data:image/png;base64,....").
	payload := string(trimmed)
	if idx := strings.IndexByte(payload, ','); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, ErrUndecodable
	}
	return decodeGray(raw)
}

func decodeGray(data []byte) (*image.Gray, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUndecodable
	}

	bounds := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), src, bounds.Min, draw.Src)
	return gray, nil
}

// Crop returns the face region as a standalone grayscale image.
func Crop(img *image.Gray, r Rect) *image.Gray {
	min := img.Bounds().Min
	region := image.Rect(min.X+r.X, min.Y+r.Y, min.X+r.X+r.W, min.Y+r.Y+r.H)
	return img.SubImage(region.Intersect(img.Bounds())).(*image.Gray)
}

// Locate scans the image for the most prominent frontal face. It returns the
// largest-area detection, or false when no window cluster reaches the
// neighbour threshold.
func Locate(img *image.Gray) (Rect, bool) {
	if img == nil {
		return Rect{}, false
	}

	scan, factor := downsample(img)
	width, height := scan.Bounds().Dx(), scan.Bounds().Dy()
	if width < minWindow || height < minWindow {
		return Rect{}, false
	}

	sums := integral(scan)

	type cluster struct {
		count, sumX, sumY, win int
	}
	clusters := make(map[[3]int]*cluster)

	maxWindow := width
	if height < maxWindow {
		maxWindow = height
	}

	scale := 0
	for win := minWindow; win <= maxWindow; win = grow(win) {
		step := win / 10
		if step < 2 {
			step = 2
		}
		quantum := win / 2

		for y := 0; y+win <= height; y += step {
			for x := 0; x+win <= width; x += step {
				if !faceLike(sums, width, x, y, win) {
					continue
				}
				key := [3]int{scale, x / quantum, y / quantum}
				c, ok := clusters[key]
				if !ok {
					c = &cluster{win: win}
					clusters[key] = c
				}
				c.count++
				c.sumX += x
				c.sumY += y
			}
		}
		scale++
	}

	best := Rect{}
	found := false
	for _, c := range clusters {
		if c.count < minNeighbors {
			continue
		}
		candidate := Rect{
			X: c.sumX / c.count,
			Y: c.sumY / c.count,
			W: c.win,
			H: c.win,
		}
		if !found || candidate.Area() > best.Area() {
			best = candidate
			found = true
		}
	}
	if !found {
		return Rect{}, false
	}

	return Rect{X: best.X * factor, Y: best.Y * factor, W: best.W * factor, H: best.H * factor}, true
}

func grow(win int) int {
	next := int(float64(win) * scaleFactor)
	if next <= win {
		next = win + 1
	}
	return next
}

// faceLike applies the two weak window tests: brightness floor and
// horizontal symmetry.
func faceLike(sums []float64, width, x, y, win int) bool {
	area := float64(win * win)
	mean := regionSum(sums, width, x, y, win, win) / area

	if mean < brightnessFloor {
		return false
	}

	half := win / 2
	halfArea := float64(half * win)
	left := regionSum(sums, width, x, y, half, win) / halfArea
	right := regionSum(sums, width, x+win-half, y, half, win) / halfArea

	diff := left - right
	if diff < 0 {
		diff = -diff
	}
	return diff <= symmetrySlack*mean
}

// integral builds a summed-area table with one extra row and column of
// zeroes so window sums are four lookups.
func integral(img *image.Gray) []float64 {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	min := img.Bounds().Min

	sums := make([]float64, (width+1)*(height+1))
	for y := 0; y < height; y++ {
		rowSum := 0.0
		for x := 0; x < width; x++ {
			rowSum += float64(img.GrayAt(min.X+x, min.Y+y).Y)
			sums[(y+1)*(width+1)+(x+1)] = sums[y*(width+1)+(x+1)] + rowSum
		}
	}
	return sums
}

func regionSum(sums []float64, width, x, y, w, h int) float64 {
	stride := width + 1
	return sums[(y+h)*stride+(x+w)] - sums[y*stride+(x+w)] - sums[(y+h)*stride+x] + sums[y*stride+x]
}

// downsample shrinks the image so its longer side is at most detectBase,
// returning the scan image and the factor to map detections back.
func downsample(img *image.Gray) (*image.Gray, int) {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	longer := width
	if height > longer {
		longer = height
	}
	if longer <= detectBase {
		return img, 1
	}

	factor := (longer + detectBase - 1) / detectBase
	min := img.Bounds().Min
	scaled := image.NewGray(image.Rect(0, 0, width/factor, height/factor))
	for y := 0; y < height/factor; y++ {
		for x := 0; x < width/factor; x++ {
			scaled.SetGray(x, y, img.GrayAt(min.X+x*factor, min.Y+y*factor))
		}
	}
	return scaled, factor
}
