package sprint

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"daoc-sprint-manager/internal/config"
	"daoc-sprint-manager/internal/cv"
	"daoc-sprint-manager/internal/detect"
	"daoc-sprint-manager/internal/events"
	"daoc-sprint-manager/internal/input"
	"daoc-sprint-manager/internal/logging"
	"daoc-sprint-manager/internal/metrics"
	"daoc-sprint-manager/internal/window"
)

// Analyzer is the detection surface the loop consumes each cycle.
// detect.Strategy satisfies it; tests substitute fakes.
type Analyzer interface {
	Detect(frame *image.RGBA) (detect.Result, error)
	ActiveName() string
	Degraded() bool
}

// CapturerFactory builds a capturer bound to a window handle. Injected so
// tests can run the loop without a desktop.
type CapturerFactory func(hwnd uintptr) cv.Capturer

// Deps are the loop's collaborators.
type Deps struct {
	Analyzer    Analyzer
	Finder      window.Finder
	Sender      input.Sender
	NewCapturer CapturerFactory
	Bus         *events.Bus
	Monitor     *metrics.Monitor
	Store       *metrics.Store // optional
}

// Reconfig is a settings change applied atomically between cycles.
type Reconfig struct {
	Settings *config.Settings
	Analyzer Analyzer // nil keeps the current analyzer
	Profile  string
}

// Manager runs the detection loop: capture the icon region, detect, debounce,
// and hold or release the sprint key to match. One goroutine owns all
// detection and key state; everything else observes through Status copies
// and bus events.
type Manager struct {
	deps Deps
	log  *logging.Logger

	// loop-owned state, touched only by the run goroutine after Start
	settings *config.Settings
	analyzer Analyzer
	filter   *detect.TemporalFilter
	policy   *Policy
	profile  string
	hwnd     uintptr
	capturer cv.Capturer
	keyDown  bool
	lostSeen bool

	paused  atomic.Bool
	started atomic.Bool

	mu      sync.Mutex
	status  Status
	pending *Reconfig

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a manager. Start must be called to begin the loop.
func New(settings *config.Settings, deps Deps, log *logging.Logger) *Manager {
	if deps.NewCapturer == nil {
		deps.NewCapturer = func(hwnd uintptr) cv.Capturer {
			return cv.NewWindowCapturer(hwnd)
		}
	}
	if deps.Monitor == nil {
		deps.Monitor = metrics.NewMonitor()
	}

	m := &Manager{
		deps:     deps,
		log:      log,
		settings: settings,
		analyzer: deps.Analyzer,
		filter:   detect.NewTemporalFilter(settings.ConsistencyWindow),
		policy:   NewPolicy(settings.FrameInterval(), settings.InactivePollDelay),
		done:     make(chan struct{}),
	}
	m.status = Status{
		Method:   deps.Analyzer.ActiveName(),
		Degraded: deps.Analyzer.Degraded(),
		State:    StateStarting,
	}
	return m
}

// Start launches the loop goroutine. It returns an error if already started.
func (m *Manager) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return fmt.Errorf("detection loop already started")
	}

	if m.deps.Store != nil {
		if err := m.deps.Store.StartSession(m.analyzer.ActiveName(), m.profile); err != nil {
			m.log.Error("failed to start metrics session", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	go m.run(runCtx)

	m.log.Infof("detection loop started (method=%s, fps=%d, window=%d)",
		m.analyzer.ActiveName(), m.settings.CaptureFPS, m.settings.ConsistencyWindow)
	return nil
}

// Stop cancels the loop and waits for it to finish. The key is released
// during shutdown if held.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

// Pause suspends detection cooperatively; the running cycle finishes first
// and the key is released on the next cycle.
func (m *Manager) Pause() {
	if m.paused.CompareAndSwap(false, true) {
		m.log.Info("paused")
	}
}

// Resume continues detection after a pause.
func (m *Manager) Resume() {
	if m.paused.CompareAndSwap(true, false) {
		m.log.Info("resumed")
	}
}

// Paused reports whether the loop is paused.
func (m *Manager) Paused() bool {
	return m.paused.Load()
}

// Status returns a copy of the latest status snapshot.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Reconfigure queues a settings change. The loop applies it between cycles:
// the filter is reset, the key released, and the window re-resolved, so no
// state from the old configuration leaks into the new one.
func (m *Manager) Reconfigure(rc Reconfig) {
	m.mu.Lock()
	m.pending = &rc
	m.mu.Unlock()
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		default:
		}

		wait := m.safeCycle()

		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case <-time.After(wait):
		}
	}
}

// safeCycle runs one cycle with panic recovery at the loop boundary.
func (m *Manager) safeCycle() (wait time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			m.deps.Monitor.RecordError()
			m.recordStoreError("panic", fmt.Sprint(r))
			m.log.ErrorWithFields("recovered from cycle panic", nil,
				map[string]interface{}{"panic": r})
			if m.deps.Bus != nil {
				m.deps.Bus.Publish(events.EventLoopError, fmt.Sprint(r))
			}
			wait = m.settings.ErrorRetryDelay
		}
	}()
	return m.cycle()
}

func (m *Manager) cycle() time.Duration {
	m.applyPending()

	if m.paused.Load() {
		m.releaseKey("paused")
		m.publishStatus(StatePaused, false, false)
		return m.settings.InactivePollDelay
	}

	start := time.Now()

	if !m.resolveWindow() {
		m.filter.Reset()
		m.releaseKey("window lost")
		m.publishStatus(StateWindowLost, false, false)
		return m.settings.WindowRetryDelay
	}

	focused := m.deps.Finder.IsFocused(m.hwnd)
	// With the focus requirement disabled the loop acts as if the window
	// always has focus.
	effFocused := focused || !m.settings.RequireFocus

	frame, err := m.capturer.CaptureRegion(m.settings.Region)
	if err != nil {
		m.deps.Monitor.RecordError()
		m.recordStoreError("capture", err.Error())
		m.log.Error("capture failed", err)
		m.publishStatus(StateCaptureFail, true, focused)
		return m.settings.ErrorRetryDelay
	}

	result, err := m.analyzer.Detect(frame)
	if err != nil {
		// Fail safe: an unanalyzable frame counts as icon absent.
		m.deps.Monitor.RecordError()
		m.recordStoreError("detect", err.Error())
		m.log.Debugf("detection failed, treating as inactive: %v", err)
		result = detect.Result{}
	}

	prev := m.filter.Confirmed()
	confirmed := m.filter.Observe(result.Present)
	if confirmed != prev {
		m.deps.Monitor.RecordStateChange()
		if m.deps.Store != nil {
			if err := m.deps.Store.RecordTransition(confirmed, result.Confidence); err != nil {
				m.log.Error("failed to record transition", err)
			}
		}
		if m.deps.Bus != nil {
			m.deps.Bus.Publish(events.EventSprintStateChanged, events.StateChange{
				Active:     confirmed,
				Confidence: result.Confidence,
			})
		}
		m.log.Infof("sprint %s (confidence %.2f)", stateWord(confirmed), result.Confidence)
	}

	m.act(confirmed, effFocused)

	cycleTime := time.Since(start)
	m.deps.Monitor.RecordCycle(cycleTime)

	m.mu.Lock()
	m.status = Status{
		SprintActive:   confirmed,
		KeyDown:        m.keyDown,
		LastConfidence: result.Confidence,
		LastCycle:      cycleTime,
		Method:         m.analyzer.ActiveName(),
		Degraded:       m.analyzer.Degraded(),
		WindowFound:    true,
		Focused:        focused,
		ErrorCount:     m.deps.Monitor.Snapshot().Errors,
		State:          m.stateString(),
		Profile:        m.profile,
	}
	snapshot := m.status
	m.mu.Unlock()

	if m.deps.Bus != nil {
		m.deps.Bus.Publish(events.EventStatusUpdated, snapshot)
	}

	wait := m.policy.PollInterval(effFocused) - cycleTime
	if wait < 0 {
		wait = 0
	}
	return wait
}

// act executes the policy decision and keeps keyDown in sync with the
// press/release side effects.
func (m *Manager) act(confirmed, focused bool) {
	switch m.policy.Decide(confirmed, focused, m.keyDown) {
	case ActionPress:
		if err := m.deps.Sender.PressKey(m.settings.SprintKey); err != nil {
			m.deps.Monitor.RecordError()
			m.recordStoreError("input", err.Error())
			m.log.Error("key press failed", err)
			return
		}
		m.keyDown = true
		m.deps.Monitor.RecordPress()
		m.log.Debugf("pressed %q", m.settings.SprintKey)

	case ActionRelease:
		m.releaseKey("policy")

	case ActionNoOp:
		if confirmed && !m.keyDown && !focused {
			m.log.Debug("press suppressed, game window not focused")
		}
	}
}

// releaseKey releases the sprint key if held. On failure keyDown stays true
// so the release is retried next cycle rather than leaving the key stuck.
func (m *Manager) releaseKey(reason string) {
	if !m.keyDown {
		return
	}
	if err := m.deps.Sender.ReleaseKey(m.settings.SprintKey); err != nil {
		m.deps.Monitor.RecordError()
		m.recordStoreError("input", err.Error())
		m.log.Error("key release failed", err)
		return
	}
	m.keyDown = false
	m.deps.Monitor.RecordRelease()
	m.log.Debugf("released %q (%s)", m.settings.SprintKey, reason)
}

// resolveWindow finds or re-finds the game window. Returns false when the
// window is unavailable this cycle.
func (m *Manager) resolveWindow() bool {
	if m.hwnd != 0 && m.deps.Finder.Exists(m.hwnd) {
		return true
	}

	info, err := m.deps.Finder.Find(m.settings.WindowTitle)
	if err != nil {
		if !m.lostSeen {
			m.lostSeen = true
			m.log.Warnf("game window %q not found, retrying", m.settings.WindowTitle)
			if m.deps.Bus != nil {
				m.deps.Bus.Publish(events.EventWindowLost, m.settings.WindowTitle)
			}
		}
		m.hwnd = 0
		m.capturer = nil
		return false
	}

	if m.lostSeen || m.hwnd == 0 {
		m.log.Infof("found game window %q (handle %#x)", info.Title, info.Handle)
		if m.lostSeen && m.deps.Bus != nil {
			m.deps.Bus.Publish(events.EventWindowFound, info.Title)
		}
	}
	m.lostSeen = false
	m.hwnd = info.Handle
	if m.capturer != nil {
		m.capturer.Close()
	}
	m.capturer = m.deps.NewCapturer(m.hwnd)
	return true
}

// applyPending swaps in a queued reconfiguration between cycles.
func (m *Manager) applyPending() {
	m.mu.Lock()
	rc := m.pending
	m.pending = nil
	m.mu.Unlock()

	if rc == nil {
		return
	}

	m.releaseKey("reconfigure")
	m.settings = rc.Settings
	if rc.Analyzer != nil {
		m.analyzer = rc.Analyzer
	}
	m.profile = rc.Profile
	m.filter.Resize(m.settings.ConsistencyWindow)
	m.policy = NewPolicy(m.settings.FrameInterval(), m.settings.InactivePollDelay)

	// Force a window re-resolve; the new profile may target a different
	// client.
	m.hwnd = 0
	if m.capturer != nil {
		m.capturer.Close()
		m.capturer = nil
	}

	m.log.Infof("reconfigured (profile=%q, method=%s, window=%d)",
		rc.Profile, m.analyzer.ActiveName(), m.settings.ConsistencyWindow)
	if m.deps.Bus != nil {
		m.deps.Bus.Publish(events.EventProfileSwitched, rc.Profile)
	}
}

func (m *Manager) shutdown() {
	m.releaseKey("shutdown")
	if m.capturer != nil {
		m.capturer.Close()
	}
	if m.deps.Store != nil {
		if err := m.deps.Store.EndSession(m.deps.Monitor.Snapshot()); err != nil {
			m.log.Error("failed to finalize metrics session", err)
		}
	}
	m.publishStatus(StateStopped, false, false)
	m.log.Info("detection loop stopped")
}

func (m *Manager) recordStoreError(kind, message string) {
	if m.deps.Store == nil {
		return
	}
	if err := m.deps.Store.RecordError(kind, message); err != nil {
		m.log.Error("failed to record error", err)
	}
}

// publishStatus updates the snapshot for cycles that never reach detection
// (paused, window lost, capture failure).
func (m *Manager) publishStatus(state string, windowFound, focused bool) {
	m.mu.Lock()
	m.status.State = state
	m.status.WindowFound = windowFound
	m.status.Focused = focused
	m.status.SprintActive = m.filter.Confirmed()
	m.status.KeyDown = m.keyDown
	m.status.Method = m.analyzer.ActiveName()
	m.status.Degraded = m.analyzer.Degraded()
	m.status.ErrorCount = m.deps.Monitor.Snapshot().Errors
	m.status.Profile = m.profile
	snapshot := m.status
	m.mu.Unlock()

	if m.deps.Bus != nil {
		m.deps.Bus.Publish(events.EventStatusUpdated, snapshot)
	}
}

func (m *Manager) stateString() string {
	if m.analyzer.Degraded() {
		return StateDegraded
	}
	return StateRunning
}

func stateWord(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
