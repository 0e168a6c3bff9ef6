package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	analysis "github.com/zhaojunwei/campus-companion/backend/internal/analysis/emotion"
	"github.com/zhaojunwei/campus-companion/backend/internal/analysis/face"
	emotionmodel "github.com/zhaojunwei/campus-companion/backend/internal/model/emotion"
)

// emotionprobe runs a single image through the face locator and the emotion
// heuristic, printing what the server would attach to a chat turn. Useful
// for checking camera captures offline without booting the API.
func main() {
	imagePath := flag.String("image", "", "path to the image file to analyze")
	flag.Parse()

	if *imagePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		log.Fatalf("failed to read image: %v", err)
	}

	img, err := face.Decode(data)
	if err != nil {
		log.Fatalf("failed to decode image: %v", err)
	}

	rect, ok := face.Locate(img)
	if !ok {
		result := analysis.NoFace()
		fmt.Printf("no face detected: %s (confidence %.2f)\n", result.Label, result.Confidence)
		return
	}

	fmt.Printf("face: x=%d y=%d w=%d h=%d\n", rect.X, rect.Y, rect.W, rect.H)

	result, dist, err := analysis.Score(face.Crop(img, rect))
	if err != nil {
		log.Fatalf("failed to score face region: %v", err)
	}

	fmt.Printf("emotion: %s (confidence %.4f)\n", result.Label, result.Confidence)
	for _, label := range emotionmodel.Labels {
		fmt.Printf("  %-8s %.4f\n", label, dist[label])
	}
}
