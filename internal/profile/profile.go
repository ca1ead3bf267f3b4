package profile

import (
	"fmt"
	"time"

	"daoc-sprint-manager/internal/cv"
	"daoc-sprint-manager/internal/input"
)

// Profile bundles the per-character settings that change when a player
// switches characters or UI layouts: which window to watch, where the icon
// sits, how to detect it, and which key to hold.
type Profile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	WindowTitle  string `yaml:"window_title"`
	RequireFocus *bool  `yaml:"require_focus,omitempty"`

	Region RegionDef `yaml:"region"`

	DetectionMethod   string  `yaml:"detection_method,omitempty"`
	SprintOnIcon      string  `yaml:"sprint_on_icon,omitempty"`
	SprintOffIcon     string  `yaml:"sprint_off_icon,omitempty"`
	MatchThreshold    float64 `yaml:"match_threshold,omitempty"`
	MLModelPath       string  `yaml:"ml_model_path,omitempty"`
	MLThreshold       float64 `yaml:"ml_threshold,omitempty"`
	ConsistencyWindow int     `yaml:"consistency_window,omitempty"`

	SprintKey  string `yaml:"sprint_key,omitempty"`
	CaptureFPS int    `yaml:"capture_fps,omitempty"`

	ModifiedAt time.Time `yaml:"modified_at,omitempty"`
}

// RegionDef is the YAML shape of the capture region.
type RegionDef struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ROI converts the region definition to the capture type.
func (r RegionDef) ROI() cv.ROI {
	return cv.ROI{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// Validate checks the fields that would break the loop if accepted.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	if p.WindowTitle == "" {
		return fmt.Errorf("profile %s: window_title cannot be empty", p.Name)
	}
	if !p.Region.ROI().Valid() {
		return fmt.Errorf("profile %s: region must have positive area", p.Name)
	}
	if p.SprintKey != "" {
		if err := input.ValidateKey(p.SprintKey); err != nil {
			return fmt.Errorf("profile %s: %w", p.Name, err)
		}
	}
	if p.DetectionMethod != "" && p.DetectionMethod != "template" && p.DetectionMethod != "ml" {
		return fmt.Errorf("profile %s: unknown detection method %q", p.Name, p.DetectionMethod)
	}
	if p.MatchThreshold < 0 || p.MatchThreshold > 1 {
		return fmt.Errorf("profile %s: match_threshold %g outside 0-1", p.Name, p.MatchThreshold)
	}
	if p.MLThreshold < 0 || p.MLThreshold > 1 {
		return fmt.Errorf("profile %s: ml_threshold %g outside 0-1", p.Name, p.MLThreshold)
	}
	return nil
}
