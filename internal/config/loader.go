package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"

	"daoc-sprint-manager/internal/cv"
	"daoc-sprint-manager/internal/input"
)

// NewDefaultSettings creates settings with default values.
func NewDefaultSettings() *Settings {
	return &Settings{
		WindowTitle:       "Dark Age of Camelot",
		RequireFocus:      true,
		Region:            cv.ROI{X: 0, Y: 0, Width: 64, Height: 64},
		DetectionMethod:   "template",
		SprintOnIconPath:  "assets/sprint_on.png",
		SprintOffIconPath: "",
		MatchThreshold:    0.8,
		MLModelPath:       "assets/sprint_classifier.json",
		MLThreshold:       0.7,
		ConsistencyWindow: 3,
		SprintKey:         "r",
		CaptureFPS:        10,
		InactivePollDelay: time.Second,
		WindowRetryDelay:  5 * time.Second,
		ErrorRetryDelay:   500 * time.Millisecond,
		ProfilesDir:       "profiles",
		ActiveProfile:     "",
		LogLevel:          "INFO",
		LogDir:            "logs",
		MetricsEnabled:    true,
		MetricsDBPath:     "sprint-manager.db",
		MetricsInterval:   time.Minute,
	}
}

// LoadFromINI loads settings from an INI file. Missing keys fall back to
// defaults; out-of-range values are clamped.
func LoadFromINI(path string) (*Settings, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	defaults := NewDefaultSettings()
	settings := &Settings{}

	window := cfg.Section("Window")
	settings.WindowTitle = window.Key("title").MustString(defaults.WindowTitle)
	settings.RequireFocus = window.Key("requireFocus").MustBool(defaults.RequireFocus)

	region := cfg.Section("Region")
	settings.Region = cv.ROI{
		X:      region.Key("x").MustInt(defaults.Region.X),
		Y:      region.Key("y").MustInt(defaults.Region.Y),
		Width:  region.Key("width").MustInt(defaults.Region.Width),
		Height: region.Key("height").MustInt(defaults.Region.Height),
	}

	detection := cfg.Section("Detection")
	settings.DetectionMethod = detection.Key("method").MustString(defaults.DetectionMethod)
	settings.SprintOnIconPath = detection.Key("sprintOnIcon").MustString(defaults.SprintOnIconPath)
	settings.SprintOffIconPath = detection.Key("sprintOffIcon").MustString(defaults.SprintOffIconPath)
	settings.MatchThreshold = detection.Key("matchThreshold").MustFloat64(defaults.MatchThreshold)
	settings.MLModelPath = detection.Key("mlModelPath").MustString(defaults.MLModelPath)
	settings.MLThreshold = detection.Key("mlThreshold").MustFloat64(defaults.MLThreshold)
	settings.ConsistencyWindow = detection.Key("consistencyWindow").MustInt(defaults.ConsistencyWindow)

	in := cfg.Section("Input")
	settings.SprintKey = in.Key("sprintKey").MustString(defaults.SprintKey)

	timing := cfg.Section("Timing")
	settings.CaptureFPS = timing.Key("captureFPS").MustInt(defaults.CaptureFPS)
	settings.InactivePollDelay = time.Duration(timing.Key("inactivePollDelayMs").MustInt(1000)) * time.Millisecond
	settings.WindowRetryDelay = time.Duration(timing.Key("windowRetryDelayMs").MustInt(5000)) * time.Millisecond
	settings.ErrorRetryDelay = time.Duration(timing.Key("errorRetryDelayMs").MustInt(500)) * time.Millisecond

	profiles := cfg.Section("Profiles")
	settings.ProfilesDir = profiles.Key("directory").MustString(defaults.ProfilesDir)
	settings.ActiveProfile = profiles.Key("active").MustString(defaults.ActiveProfile)

	logging := cfg.Section("Logging")
	settings.LogLevel = logging.Key("level").MustString(defaults.LogLevel)
	settings.LogDir = logging.Key("directory").MustString(defaults.LogDir)

	metrics := cfg.Section("Metrics")
	settings.MetricsEnabled = metrics.Key("enabled").MustBool(defaults.MetricsEnabled)
	settings.MetricsDBPath = metrics.Key("databasePath").MustString(defaults.MetricsDBPath)
	settings.MetricsInterval = time.Duration(metrics.Key("logIntervalS").MustInt(60)) * time.Second

	settings.normalize()

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// normalize pulls tunables back into their valid ranges.
func (s *Settings) normalize() {
	s.MatchThreshold = clampFloat(s.MatchThreshold, 0, 1)
	s.MLThreshold = clampFloat(s.MLThreshold, 0, 1)
	s.ConsistencyWindow = clampInt(s.ConsistencyWindow, MinConsistencyWindow, MaxConsistencyWindow)
	s.CaptureFPS = clampInt(s.CaptureFPS, MinCaptureFPS, MaxCaptureFPS)

	if s.InactivePollDelay <= 0 {
		s.InactivePollDelay = time.Second
	}
	if s.WindowRetryDelay <= 0 {
		s.WindowRetryDelay = 5 * time.Second
	}
	if s.ErrorRetryDelay <= 0 {
		s.ErrorRetryDelay = 500 * time.Millisecond
	}
}

// Validate rejects settings that cannot be clamped into something usable.
func (s *Settings) Validate() error {
	if s.WindowTitle == "" {
		return fmt.Errorf("window title must not be empty")
	}
	if !s.Region.Valid() {
		return fmt.Errorf("capture region %s must have positive area", s.Region)
	}
	if err := input.ValidateKey(s.SprintKey); err != nil {
		return fmt.Errorf("invalid sprint key: %w", err)
	}
	if s.DetectionMethod != "template" && s.DetectionMethod != "ml" {
		return fmt.Errorf("unknown detection method %q", s.DetectionMethod)
	}
	return nil
}

// SaveToINI writes settings back out, preserving the section layout
// LoadFromINI reads.
func SaveToINI(s *Settings, path string) error {
	cfg := ini.Empty()

	window := cfg.Section("Window")
	window.Key("title").SetValue(s.WindowTitle)
	window.Key("requireFocus").SetValue(fmt.Sprintf("%t", s.RequireFocus))

	region := cfg.Section("Region")
	region.Key("x").SetValue(fmt.Sprintf("%d", s.Region.X))
	region.Key("y").SetValue(fmt.Sprintf("%d", s.Region.Y))
	region.Key("width").SetValue(fmt.Sprintf("%d", s.Region.Width))
	region.Key("height").SetValue(fmt.Sprintf("%d", s.Region.Height))

	detection := cfg.Section("Detection")
	detection.Key("method").SetValue(s.DetectionMethod)
	detection.Key("sprintOnIcon").SetValue(s.SprintOnIconPath)
	detection.Key("sprintOffIcon").SetValue(s.SprintOffIconPath)
	detection.Key("matchThreshold").SetValue(fmt.Sprintf("%g", s.MatchThreshold))
	detection.Key("mlModelPath").SetValue(s.MLModelPath)
	detection.Key("mlThreshold").SetValue(fmt.Sprintf("%g", s.MLThreshold))
	detection.Key("consistencyWindow").SetValue(fmt.Sprintf("%d", s.ConsistencyWindow))

	in := cfg.Section("Input")
	in.Key("sprintKey").SetValue(s.SprintKey)

	timing := cfg.Section("Timing")
	timing.Key("captureFPS").SetValue(fmt.Sprintf("%d", s.CaptureFPS))
	timing.Key("inactivePollDelayMs").SetValue(fmt.Sprintf("%d", s.InactivePollDelay.Milliseconds()))
	timing.Key("windowRetryDelayMs").SetValue(fmt.Sprintf("%d", s.WindowRetryDelay.Milliseconds()))
	timing.Key("errorRetryDelayMs").SetValue(fmt.Sprintf("%d", s.ErrorRetryDelay.Milliseconds()))

	profiles := cfg.Section("Profiles")
	profiles.Key("directory").SetValue(s.ProfilesDir)
	profiles.Key("active").SetValue(s.ActiveProfile)

	logging := cfg.Section("Logging")
	logging.Key("level").SetValue(s.LogLevel)
	logging.Key("directory").SetValue(s.LogDir)

	metrics := cfg.Section("Metrics")
	metrics.Key("enabled").SetValue(fmt.Sprintf("%t", s.MetricsEnabled))
	metrics.Key("databasePath").SetValue(s.MetricsDBPath)
	metrics.Key("logIntervalS").SetValue(fmt.Sprintf("%d", int(s.MetricsInterval.Seconds())))

	return cfg.SaveTo(path)
}
