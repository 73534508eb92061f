// Package detector provides object detection interfaces and types for the
// fire/smoke/human detection pipeline.
package detector

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
)

// Box is a bounding box in frame pixel coordinates.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// BoxFromRect converts an image.Rectangle to a Box.
func BoxFromRect(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Detection represents a single detected object in a frame.
type Detection struct {
	Label      string  `json:"label"`
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Detector defines the interface for object detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected objects.
	// Returns an empty slice if nothing is detected.
	Detect(frame *gocv.Mat) ([]Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for object detection.
type Config struct {
	// Weights is the model weights spec: a path or the special value "AUTO".
	Weights string

	// ConfThreshold is the minimum detection confidence (0.0-1.0).
	ConfThreshold float64

	// NMSThreshold is the IoU threshold for non-maximum suppression.
	NMSThreshold float64

	// InputSize is the square inference input size in pixels.
	InputSize int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Weights:       "AUTO",
		ConfThreshold: 0.25,
		NMSThreshold:  0.45,
		InputSize:     640,
	}
}

// New creates a Detector for the given configuration. The backend is picked
// from the weights file extension: ONNX weights run in-process through the
// OpenCV DNN module, PyTorch weights run through the ultralytics subprocess.
func New(config Config) (Detector, error) {
	path, err := ResolveWeights(config.Weights)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".onnx":
		return NewYOLODetector(config, path)
	case ".pt":
		return NewUltralyticsDetector(config, path)
	default:
		return nil, fmt.Errorf("unsupported weights format %q", filepath.Ext(path))
	}
}
