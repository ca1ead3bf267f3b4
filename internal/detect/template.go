package detect

import (
	"fmt"
	"image"

	"daoc-sprint-manager/internal/cv"
)

// TemplateDetector classifies frames by template matching against one or
// more reference icons. Multiple references cover icon variants (different
// UI scales, alternate skins); the best score across all of them wins.
type TemplateDetector struct {
	templates []*image.RGBA
	paths     []string
	config    *cv.MatchConfig
}

// NewTemplateDetector loads the reference icons and prepares a matcher with
// the given similarity threshold.
func NewTemplateDetector(paths []string, threshold float64) (*TemplateDetector, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no reference icon configured")
	}

	templates := make([]*image.RGBA, 0, len(paths))
	for _, path := range paths {
		img, err := cv.LoadPNG(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load reference icon: %w", err)
		}
		templates = append(templates, img)
	}

	config := cv.DefaultMatchConfig()
	config.Threshold = threshold

	return &TemplateDetector{
		templates: templates,
		paths:     paths,
		config:    config,
	}, nil
}

// Detect scores the frame against every reference icon and reports the best
// match. A reference larger than the frame is a configuration problem, not a
// crash: the cycle reports not-present along with the error.
func (d *TemplateDetector) Detect(frame *image.RGBA) (Result, error) {
	best := Result{}
	var firstErr error

	for i, template := range d.templates {
		match, err := cv.MatchTemplate(frame, template, d.config)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("reference %s: %w", d.paths[i], err)
			}
			continue
		}
		if match.Confidence > best.Confidence {
			best = Result{
				Present:    match.Found,
				Confidence: clampConfidence(match.Confidence),
			}
		}
	}

	if best.Confidence == 0 && firstErr != nil {
		return Result{}, firstErr
	}
	return best, nil
}

// Name identifies this method in logs and status displays.
func (d *TemplateDetector) Name() string {
	return "template"
}

// Threshold returns the configured similarity threshold.
func (d *TemplateDetector) Threshold() float64 {
	return d.config.Threshold
}
