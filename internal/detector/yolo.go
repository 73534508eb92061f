package detector

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// YOLODetector runs a YOLOv8 ONNX model in-process through the OpenCV DNN module.
type YOLODetector struct {
	config  Config
	weights string
	net     gocv.Net
	mu      sync.Mutex
	closed  bool
}

// NewYOLODetector loads the ONNX weights at path and returns a ready detector.
func NewYOLODetector(config Config, path string) (*YOLODetector, error) {
	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("load ONNX weights %s: network is empty", path)
	}

	return &YOLODetector{
		config:  config,
		weights: path,
		net:     net,
	}, nil
}

// Weights returns the resolved weights path the detector was loaded from.
func (d *YOLODetector) Weights() string {
	return d.weights
}

// Detect runs one inference pass on the frame and returns detections with
// boxes in frame pixel coordinates.
func (d *YOLODetector) Detect(frame *gocv.Mat) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("detector is closed")
	}
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	size := d.config.InputSize
	if size <= 0 {
		size = DefaultConfig().InputSize
	}

	blob := gocv.BlobFromImage(*frame, 1.0/255.0, image.Pt(size, size),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	return d.decode(output, frame.Cols(), frame.Rows(), size)
}

// decode converts the raw [1, 4+classes, anchors] model output into filtered,
// NMS-suppressed detections scaled back to frame coordinates.
func (d *YOLODetector) decode(output gocv.Mat, frameW, frameH, inputSize int) ([]Detection, error) {
	dims := output.Size()
	if len(dims) != 3 || dims[1] < 5 {
		return nil, fmt.Errorf("unexpected model output shape %v", dims)
	}

	rows := dims[1]    // 4 box coords + per-class scores
	anchors := dims[2] // candidate boxes

	data := output.Reshape(1, rows)
	defer data.Close()

	xScale := float32(frameW) / float32(inputSize)
	yScale := float32(frameH) / float32(inputSize)

	confThreshold := float32(d.config.ConfThreshold)
	nmsThreshold := float32(d.config.NMSThreshold)

	var (
		boxes    []image.Rectangle
		scores   []float32
		classIDs []int
	)

	for col := 0; col < anchors; col++ {
		// Best class score for this candidate
		bestScore := float32(0)
		bestClass := -1
		for row := 4; row < rows; row++ {
			score := data.GetFloatAt(row, col)
			if score > bestScore {
				bestScore = score
				bestClass = row - 4
			}
		}

		if bestScore < confThreshold {
			continue
		}

		// Box is center x, center y, width, height in input pixels
		cx := data.GetFloatAt(0, col)
		cy := data.GetFloatAt(1, col)
		w := data.GetFloatAt(2, col)
		h := data.GetFloatAt(3, col)

		left := int((cx - w/2) * xScale)
		top := int((cy - h/2) * yScale)
		right := int((cx + w/2) * xScale)
		bottom := int((cy + h/2) * yScale)

		boxes = append(boxes, image.Rect(left, top, right, bottom))
		scores = append(scores, bestScore)
		classIDs = append(classIDs, bestClass)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, scores, confThreshold, nmsThreshold)

	frameBounds := image.Rect(0, 0, frameW, frameH)
	detections := make([]Detection, 0, len(indices))
	for _, idx := range indices {
		box := boxes[idx].Intersect(frameBounds)
		detections = append(detections, Detection{
			Label:      LabelFor(classIDs[idx]),
			ClassID:    classIDs[idx],
			Confidence: float64(scores[idx]),
			Box:        BoxFromRect(box),
		})
	}

	return detections, nil
}

// Close releases the DNN network.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}
