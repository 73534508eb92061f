// Package annotate draws detection results onto frames and saves annotated
// snapshots of alerting frames.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/detector"
)

// Per-class box colors.
var classColors = map[int]color.RGBA{
	detector.ClassFire:  {R: 255, G: 64, B: 0},
	detector.ClassSmoke: {R: 160, G: 160, B: 160},
	detector.ClassHuman: {R: 0, G: 200, B: 80},
}

// defaultColor is used for classes outside the trained set.
var defaultColor = color.RGBA{R: 255, G: 255, B: 0}

// ColorFor returns the box color for a class ID.
func ColorFor(classID int) color.RGBA {
	if c, ok := classColors[classID]; ok {
		return c
	}
	return defaultColor
}

// Draw renders bounding boxes and "label confidence" captions for the given
// detections onto the frame in place.
func Draw(frame *gocv.Mat, detections []detector.Detection) {
	if frame == nil || frame.Empty() {
		return
	}

	for _, det := range detections {
		c := ColorFor(det.ClassID)
		rect := det.Box.Rect()

		gocv.Rectangle(frame, rect, c, 2)

		caption := fmt.Sprintf("%s %.2f", det.Label, det.Confidence)
		origin := image.Pt(rect.Min.X, rect.Min.Y-6)
		if origin.Y < 12 {
			origin.Y = rect.Min.Y + 14
		}
		gocv.PutText(frame, caption, origin, gocv.FontHersheySimplex, 0.5, c, 1)
	}
}

// SnapshotWriter saves annotated frames of alerting detections as JPEG files.
type SnapshotWriter struct {
	dir string
}

// NewSnapshotWriter creates a SnapshotWriter that saves into dir, creating it
// if needed.
func NewSnapshotWriter(dir string) (*SnapshotWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &SnapshotWriter{dir: dir}, nil
}

// Dir returns the snapshot directory.
func (w *SnapshotWriter) Dir() string {
	return w.dir
}

// Save annotates a copy of the frame with the detections and writes it as
// <eventID>.jpg. Returns the written file path.
func (w *SnapshotWriter) Save(frame *gocv.Mat, detections []detector.Detection, eventID string) (string, error) {
	if frame == nil || frame.Empty() {
		return "", fmt.Errorf("frame is empty")
	}

	annotated := frame.Clone()
	defer annotated.Close()
	Draw(&annotated, detections)

	buf, err := gocv.IMEncode(".jpg", annotated)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	defer buf.Close()

	path := filepath.Join(w.dir, eventID+".jpg")
	if err := os.WriteFile(path, buf.GetBytes(), 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}
