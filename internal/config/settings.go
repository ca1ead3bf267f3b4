package config

import (
	"time"

	"daoc-sprint-manager/internal/cv"
)

// Settings is the full application configuration, loaded from settings.ini
// with out-of-range values clamped before anything else sees them.
type Settings struct {
	// Window
	WindowTitle  string
	RequireFocus bool

	// Capture region, client-area relative
	Region cv.ROI

	// Detection
	DetectionMethod   string // "template" or "ml"
	SprintOnIconPath  string
	SprintOffIconPath string // calibration reference, unused at runtime
	MatchThreshold    float64
	MLModelPath       string
	MLThreshold       float64
	ConsistencyWindow int

	// Input
	SprintKey string

	// Timing
	CaptureFPS        int
	InactivePollDelay time.Duration
	WindowRetryDelay  time.Duration
	ErrorRetryDelay   time.Duration

	// Profiles
	ProfilesDir   string
	ActiveProfile string

	// Logging
	LogLevel string
	LogDir   string

	// Metrics
	MetricsEnabled  bool
	MetricsDBPath   string
	MetricsInterval time.Duration
}

// Clamp bounds for tunables. Values outside these ranges come from hand
// edited config files; the loader pulls them back in range and logs nothing,
// matching how the rest of the app treats bad input (degrade, don't die).
const (
	MinConsistencyWindow = 1
	MaxConsistencyWindow = 20
	MinCaptureFPS        = 1
	MaxCaptureFPS        = 60
)

// FrameInterval returns the focused-window poll interval derived from the
// capture FPS.
func (s *Settings) FrameInterval() time.Duration {
	return time.Second / time.Duration(s.CaptureFPS)
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
