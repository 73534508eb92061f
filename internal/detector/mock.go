package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	detections []Detection
	err        error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetDetections sets the detections that will be returned by Detect.
func (m *MockDetector) SetDetections(detections []Detection) {
	m.detections = detections
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured detections or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Detection, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.detections, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// FireDetection returns a preset Detection representing a fire in the lower
// left quadrant of a 640x480 frame.
func FireDetection() Detection {
	return Detection{
		Label:      LabelFire,
		ClassID:    ClassFire,
		Confidence: 0.91,
		Box:        Box{X: 80, Y: 300, Width: 160, Height: 140},
	}
}

// SmokeDetection returns a preset Detection representing a smoke plume above
// the fire region of a 640x480 frame.
func SmokeDetection() Detection {
	return Detection{
		Label:      LabelSmoke,
		ClassID:    ClassSmoke,
		Confidence: 0.78,
		Box:        Box{X: 60, Y: 40, Width: 260, Height: 280},
	}
}

// HumanDetection returns a preset Detection representing a person standing in
// the right half of a 640x480 frame.
func HumanDetection() Detection {
	return Detection{
		Label:      LabelHuman,
		ClassID:    ClassHuman,
		Confidence: 0.88,
		Box:        Box{X: 420, Y: 120, Width: 120, Height: 320},
	}
}
