package detect

import (
	"fmt"
	"image"

	"daoc-sprint-manager/internal/events"
	"daoc-sprint-manager/internal/logging"
)

// Method names a detection strategy as it appears in config files.
type Method string

const (
	MethodTemplate Method = "template"
	MethodML       Method = "ml"
)

// ParseMethod maps a config string to a Method, defaulting to template
// matching for anything unrecognized.
func ParseMethod(s string) Method {
	if Method(s) == MethodML {
		return MethodML
	}
	return MethodTemplate
}

// Factory builds a detector, typically closing over config values.
type Factory func() (Detector, error)

// Strategy owns detector selection. It builds the configured detector at
// startup; if that fails it falls back to the other method, marks itself
// degraded, and announces the downgrade on the event bus. If neither
// detector can be built every frame reports not-present with a persistent
// error.
type Strategy struct {
	active     Detector
	configured Method
	degraded   bool
	initErr    error
	log        *logging.Logger
}

// NewStrategy selects and initializes a detector. factories must contain an
// entry for each Method the config can name.
func NewStrategy(configured Method, factories map[Method]Factory, log *logging.Logger, bus *events.Bus) *Strategy {
	s := &Strategy{
		configured: configured,
		log:        log,
	}

	build := factories[configured]
	if build != nil {
		detector, err := build()
		if err == nil {
			s.active = detector
			log.Infof("detection method: %s", detector.Name())
			return s
		}
		s.initErr = err
		log.Error(fmt.Sprintf("failed to initialize %s detection", configured), err)
	} else {
		s.initErr = fmt.Errorf("unknown detection method %q", configured)
	}

	fallback := MethodTemplate
	if configured == MethodTemplate {
		fallback = MethodML
	}

	if build := factories[fallback]; build != nil {
		detector, err := build()
		if err == nil {
			s.active = detector
			s.degraded = true
			log.Warnf("running degraded: %s detection unavailable, using %s", configured, fallback)
			if bus != nil {
				bus.Publish(events.EventDetectionDegraded, events.Degraded{
					Configured: string(configured),
					Fallback:   string(fallback),
					Reason:     s.initErr.Error(),
				})
			}
			return s
		}
		log.Error(fmt.Sprintf("fallback %s detection also failed", fallback), err)
	}

	log.Error("no detection method available, all frames will report inactive", s.initErr)
	return s
}

// Detect analyzes a frame with the active detector. With no detector
// available, or when the detector errors, the frame reports not-present;
// the loop treats a returned error as a per-cycle detection failure.
func (s *Strategy) Detect(frame *image.RGBA) (Result, error) {
	if s.active == nil {
		return Result{}, fmt.Errorf("no detection method available: %w", s.initErr)
	}

	result, err := s.active.Detect(frame)
	if err != nil {
		return Result{}, err
	}
	result.Confidence = clampConfidence(result.Confidence)
	return result, nil
}

// ActiveName returns the running detector's name, or "none".
func (s *Strategy) ActiveName() string {
	if s.active == nil {
		return "none"
	}
	return s.active.Name()
}

// Degraded reports whether the configured method had to be replaced by a
// fallback, or no detector could be built at all.
func (s *Strategy) Degraded() bool {
	return s.degraded || s.active == nil
}

// Available reports whether any detector is running.
func (s *Strategy) Available() bool {
	return s.active != nil
}

// InitError returns the configured method's initialization failure, if any.
func (s *Strategy) InitError() error {
	return s.initErr
}
