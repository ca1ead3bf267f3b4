// Package tray is the system tray front end: a status line, pause/resume,
// profile switching, and diagnostic export. It owns no detection state; it
// renders status snapshots and forwards clicks.
package tray

import (
	"fmt"
	"os"

	"fyne.io/systray"

	"daoc-sprint-manager/internal/events"
	"daoc-sprint-manager/internal/logging"
	"daoc-sprint-manager/internal/metrics"
	"daoc-sprint-manager/internal/profile"
	"daoc-sprint-manager/internal/sprint"
)

// App wires the tray menu to the detection loop.
type App struct {
	manager  *sprint.Manager
	registry *profile.Registry
	store    *metrics.Store // optional
	monitor  *metrics.Monitor
	bus      *events.Bus
	log      *logging.Logger

	iconPath  string
	reportDir string

	// SwitchProfile rebuilds detection for a named profile and hands the
	// loop its new configuration. Supplied by main, where the factories
	// live.
	switchProfile func(name string) error
	onExit        func()
}

// Config bundles the tray app's collaborators.
type Config struct {
	Manager       *sprint.Manager
	Registry      *profile.Registry
	Store         *metrics.Store
	Monitor       *metrics.Monitor
	Bus           *events.Bus
	Log           *logging.Logger
	IconPath      string
	ReportDir     string
	SwitchProfile func(name string) error
	OnExit        func()
}

// New creates the tray app.
func New(cfg Config) *App {
	return &App{
		manager:       cfg.Manager,
		registry:      cfg.Registry,
		store:         cfg.Store,
		monitor:       cfg.Monitor,
		bus:           cfg.Bus,
		log:           cfg.Log,
		iconPath:      cfg.IconPath,
		reportDir:     cfg.ReportDir,
		switchProfile: cfg.SwitchProfile,
		onExit:        cfg.OnExit,
	}
}

// Run blocks on the tray event loop until Quit.
func (a *App) Run() {
	onExit := a.onExit
	if onExit == nil {
		onExit = func() {}
	}
	systray.Run(a.onReady, onExit)
}

func (a *App) onReady() {
	systray.SetTitle("DAoC Sprint Manager")
	systray.SetTooltip("DAoC Sprint Manager")
	if a.iconPath != "" {
		if icon, err := os.ReadFile(a.iconPath); err == nil {
			systray.SetIcon(icon)
		} else {
			a.log.Debugf("tray icon not loaded: %v", err)
		}
	}

	statusItem := systray.AddMenuItem("Status: starting", "Current detection status")
	statusItem.Disable()
	systray.AddSeparator()

	pauseItem := systray.AddMenuItem("Pause", "Pause detection")
	reportItem := systray.AddMenuItem("Export diagnostic report", "Write a diagnostic report file")
	systray.AddSeparator()

	profilesItem := systray.AddMenuItem("Profiles", "Switch profile")
	names := a.registry.List()
	if len(names) == 0 {
		none := profilesItem.AddSubMenuItem("(no profiles)", "")
		none.Disable()
	}
	for _, name := range names {
		item := profilesItem.AddSubMenuItem(name, "Switch to profile "+name)
		go a.watchProfileClicks(item, name)
	}

	systray.AddSeparator()
	quitItem := systray.AddMenuItem("Quit", "Stop and exit")

	a.bus.Subscribe(events.EventStatusUpdated, func(e events.Event) {
		status, ok := e.Payload.(sprint.Status)
		if !ok {
			return
		}
		statusItem.SetTitle("Status: " + formatStatus(status))
		systray.SetTooltip(fmt.Sprintf("DAoC Sprint Manager: %s", status.State))
	})

	go func() {
		for {
			select {
			case <-pauseItem.ClickedCh:
				if a.manager.Paused() {
					a.manager.Resume()
					pauseItem.SetTitle("Pause")
				} else {
					a.manager.Pause()
					pauseItem.SetTitle("Resume")
				}

			case <-reportItem.ClickedCh:
				a.exportReport()

			case <-quitItem.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

func (a *App) watchProfileClicks(item *systray.MenuItem, name string) {
	for range item.ClickedCh {
		if a.switchProfile == nil {
			continue
		}
		if err := a.switchProfile(name); err != nil {
			a.log.Error(fmt.Sprintf("failed to switch to profile %q", name), err)
		}
	}
}

func (a *App) exportReport() {
	status := a.manager.Status()
	sections := []metrics.ReportSection{
		{
			Title: "Status",
			Lines: []string{
				"State: " + status.State,
				fmt.Sprintf("Sprint active: %t (confidence %.2f)", status.SprintActive, status.LastConfidence),
				fmt.Sprintf("Key down: %t", status.KeyDown),
				"Method: " + status.Method,
				fmt.Sprintf("Degraded: %t", status.Degraded),
				fmt.Sprintf("Window found: %t  Focused: %t", status.WindowFound, status.Focused),
				fmt.Sprintf("Errors: %d", status.ErrorCount),
				"Profile: " + status.Profile,
			},
		},
	}

	if a.monitor != nil {
		sections = append(sections, metrics.StatsSection(a.monitor.Snapshot()))
	}

	if a.store != nil {
		entries, err := a.store.RecentErrors(20)
		if err != nil {
			a.log.Error("failed to read recent errors", err)
		} else {
			sections = append(sections, metrics.ErrorsSection(entries))
		}
	}

	path, err := metrics.SaveReport(a.reportDir, sections)
	if err != nil {
		a.log.Error("failed to export diagnostic report", err)
		return
	}
	a.log.Infof("diagnostic report written to %s", path)
}

func formatStatus(s sprint.Status) string {
	if s.State != sprint.StateRunning && s.State != sprint.StateDegraded {
		return s.State
	}
	if s.SprintActive {
		return fmt.Sprintf("sprinting (%.0f%%)", s.LastConfidence*100)
	}
	return "idle"
}
