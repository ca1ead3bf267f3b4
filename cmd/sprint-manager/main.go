package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"daoc-sprint-manager/internal/config"
	"daoc-sprint-manager/internal/detect"
	"daoc-sprint-manager/internal/events"
	"daoc-sprint-manager/internal/input"
	"daoc-sprint-manager/internal/logging"
	"daoc-sprint-manager/internal/metrics"
	"daoc-sprint-manager/internal/profile"
	"daoc-sprint-manager/internal/sprint"
	"daoc-sprint-manager/internal/tray"
	"daoc-sprint-manager/internal/window"
)

func main() {
	configPath := flag.String("config", "settings.ini", "path to settings file")
	flag.Parse()

	log := logging.New("main")

	settings, err := config.LoadFromINI(*configPath)
	if err != nil {
		if !fileExists(*configPath) {
			log.Warnf("no config at %s, writing defaults", *configPath)
			settings = config.NewDefaultSettings()
			if saveErr := config.SaveToINI(settings, *configPath); saveErr != nil {
				log.Error("failed to write default config", saveErr)
			}
		} else {
			log.Error("failed to load config", err)
			os.Exit(1)
		}
	}

	log.SetMinLevel(logging.ParseLevel(settings.LogLevel))
	if logFile, err := logging.OpenLogFile(settings.LogDir, "sprint-manager.log"); err != nil {
		log.Error("failed to open log file, logging to stdout only", err)
	} else {
		defer logFile.Close()
		log.AddOutput(logFile)
	}

	bus := events.NewBus(64)
	defer bus.Stop()

	registry, err := profile.NewRegistry(settings.ProfilesDir)
	if err != nil {
		log.Error("failed to open profile registry", err)
		os.Exit(1)
	}
	for _, loadErr := range registry.LoadAll() {
		log.Error("profile skipped", loadErr)
	}

	activeProfile := settings.ActiveProfile
	if activeProfile != "" {
		if p, ok := registry.Get(activeProfile); ok {
			applyProfile(settings, p)
			log.Infof("active profile: %s", activeProfile)
		} else {
			log.Warnf("active profile %q not found, using base settings", activeProfile)
			activeProfile = ""
		}
	}

	var store *metrics.Store
	if settings.MetricsEnabled {
		store, err = metrics.Open(settings.MetricsDBPath)
		if err != nil {
			log.Error("metrics store unavailable, continuing without it", err)
		} else {
			defer store.Close()
		}
	}

	monitor := metrics.NewMonitor()
	strategy := buildStrategy(settings, log, bus)

	manager := sprint.New(settings, sprint.Deps{
		Analyzer: strategy,
		Finder:   window.NewFinder(),
		Sender:   input.NewSender(),
		Bus:      bus,
		Monitor:  monitor,
		Store:    store,
	}, log.Named("loop"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Start(ctx); err != nil {
		log.Error("failed to start detection loop", err)
		os.Exit(1)
	}

	app := tray.New(tray.Config{
		Manager:   manager,
		Registry:  registry,
		Store:     store,
		Monitor:   monitor,
		Bus:       bus,
		Log:       log.Named("tray"),
		IconPath:  filepath.Join("assets", "tray.ico"),
		ReportDir: "reports",
		SwitchProfile: func(name string) error {
			p, ok := registry.Get(name)
			if !ok {
				return fmt.Errorf("profile %q not found", name)
			}
			next := *settings
			applyProfile(&next, p)
			if err := next.Validate(); err != nil {
				return err
			}
			manager.Reconfigure(sprint.Reconfig{
				Settings: &next,
				Analyzer: buildStrategy(&next, log, bus),
				Profile:  name,
			})
			next.ActiveProfile = name
			if err := config.SaveToINI(&next, *configPath); err != nil {
				log.Error("failed to persist active profile", err)
			}
			return nil
		},
		OnExit: func() {
			manager.Stop()
		},
	})

	// Blocks until Quit; OnExit stops the loop first.
	app.Run()
}

// buildStrategy wires the detector factories for the configured method.
func buildStrategy(settings *config.Settings, log *logging.Logger, bus *events.Bus) *detect.Strategy {
	factories := map[detect.Method]detect.Factory{
		detect.MethodTemplate: func() (detect.Detector, error) {
			paths := []string{settings.SprintOnIconPath}
			return detect.NewTemplateDetector(paths, settings.MatchThreshold)
		},
		detect.MethodML: func() (detect.Detector, error) {
			return detect.NewMLDetector(settings.MLModelPath, settings.MLThreshold)
		},
	}
	return detect.NewStrategy(detect.ParseMethod(settings.DetectionMethod), factories, log.Named("detect"), bus)
}

// applyProfile overlays a profile's non-zero fields onto the settings.
func applyProfile(settings *config.Settings, p *profile.Profile) {
	settings.WindowTitle = p.WindowTitle
	settings.Region = p.Region.ROI()
	if p.RequireFocus != nil {
		settings.RequireFocus = *p.RequireFocus
	}
	if p.DetectionMethod != "" {
		settings.DetectionMethod = p.DetectionMethod
	}
	if p.SprintOnIcon != "" {
		settings.SprintOnIconPath = p.SprintOnIcon
	}
	if p.SprintOffIcon != "" {
		settings.SprintOffIconPath = p.SprintOffIcon
	}
	if p.MatchThreshold > 0 {
		settings.MatchThreshold = p.MatchThreshold
	}
	if p.MLModelPath != "" {
		settings.MLModelPath = p.MLModelPath
	}
	if p.MLThreshold > 0 {
		settings.MLThreshold = p.MLThreshold
	}
	if p.ConsistencyWindow > 0 {
		settings.ConsistencyWindow = p.ConsistencyWindow
	}
	if p.SprintKey != "" {
		settings.SprintKey = p.SprintKey
	}
	if p.CaptureFPS > 0 {
		settings.CaptureFPS = p.CaptureFPS
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
