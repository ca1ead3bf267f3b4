package detect

import "image"

// Result is a single raw detection: whether the sprint icon appears present
// in the frame, and how confident the detector is (0.0-1.0).
type Result struct {
	Present    bool
	Confidence float64
}

// Detector analyzes one captured frame. Implementations must be safe to call
// repeatedly from the detection loop goroutine; they are not required to be
// safe for concurrent use.
type Detector interface {
	// Detect analyzes a frame. A returned error means the frame could not
	// be analyzed; callers treat that as "not present" for this cycle.
	Detect(frame *image.RGBA) (Result, error)

	// Name identifies the detection method for logs and status displays.
	Name() string
}

// clampConfidence forces a score into 0.0-1.0 before it leaves the
// detection layer.
func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
