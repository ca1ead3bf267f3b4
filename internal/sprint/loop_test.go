package sprint

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"daoc-sprint-manager/internal/config"
	"daoc-sprint-manager/internal/cv"
	"daoc-sprint-manager/internal/detect"
	"daoc-sprint-manager/internal/logging"
	"daoc-sprint-manager/internal/window"
)

type fakeAnalyzer struct {
	results []detect.Result
	errs    []error
	calls   int
	name    string
}

func (a *fakeAnalyzer) Detect(frame *image.RGBA) (detect.Result, error) {
	i := a.calls
	a.calls++
	if i >= len(a.results) {
		i = len(a.results) - 1
	}
	var err error
	if a.errs != nil && i < len(a.errs) {
		err = a.errs[i]
	}
	if err != nil {
		return detect.Result{}, err
	}
	return a.results[i], nil
}

func (a *fakeAnalyzer) ActiveName() string {
	if a.name == "" {
		return "template"
	}
	return a.name
}

func (a *fakeAnalyzer) Degraded() bool { return false }

type fakeFinder struct {
	found   bool
	focused bool
}

func (f *fakeFinder) Find(title string) (window.Info, error) {
	if !f.found {
		return window.Info{}, window.ErrWindowNotFound
	}
	return window.Info{Handle: 0x1234, Title: title}, nil
}

func (f *fakeFinder) IsFocused(handle uintptr) bool { return f.focused }
func (f *fakeFinder) Exists(handle uintptr) bool    { return f.found }

type fakeSender struct {
	presses  int
	releases int
	failNext bool
}

func (s *fakeSender) PressKey(name string) error {
	if s.failNext {
		s.failNext = false
		return errors.New("send failed")
	}
	s.presses++
	return nil
}

func (s *fakeSender) ReleaseKey(name string) error {
	if s.failNext {
		s.failNext = false
		return errors.New("send failed")
	}
	s.releases++
	return nil
}

type fakeCapturer struct {
	fail bool
}

func (c *fakeCapturer) CaptureRegion(roi cv.ROI) (*image.RGBA, error) {
	if c.fail {
		return nil, errors.New("capture failed")
	}
	return image.NewRGBA(image.Rect(0, 0, roi.Width, roi.Height)), nil
}

func (c *fakeCapturer) ClientSize() (int, int, error) { return 800, 600, nil }
func (c *fakeCapturer) Close() error                  { return nil }

func testSettings() *config.Settings {
	s := config.NewDefaultSettings()
	s.ConsistencyWindow = 3
	return s
}

func testManager(t *testing.T, settings *config.Settings, analyzer Analyzer, finder *fakeFinder, sender *fakeSender, capturer *fakeCapturer) *Manager {
	t.Helper()
	log := logging.New("test").SetMinLevel(logging.LevelError + 1)
	return New(settings, Deps{
		Analyzer: analyzer,
		Finder:   finder,
		Sender:   sender,
		NewCapturer: func(hwnd uintptr) cv.Capturer {
			return capturer
		},
	}, log)
}

func boolResults(raw ...bool) []detect.Result {
	out := make([]detect.Result, len(raw))
	for i, r := range raw {
		out[i] = detect.Result{Present: r, Confidence: 0.9}
		if !r {
			out[i].Confidence = 0.1
		}
	}
	return out
}

// The canonical stream: three inactive frames, three active, three inactive.
// With a window of 3 the key is pressed after the sixth frame and released
// after the ninth.
func TestLoopPressReleaseStream(t *testing.T) {
	analyzer := &fakeAnalyzer{results: boolResults(false, false, false, true, true, true, false, false, false)}
	sender := &fakeSender{}
	m := testManager(t, testSettings(), analyzer, &fakeFinder{found: true, focused: true}, sender, &fakeCapturer{})

	type step struct {
		presses  int
		releases int
	}
	want := []step{
		{0, 0}, {0, 0}, {0, 0}, // warmup + unanimous inactive
		{0, 0}, {0, 0}, // mixed history
		{1, 0},         // unanimous active: press
		{1, 0}, {1, 0}, // mixed history: hold
		{1, 1}, // unanimous inactive: release
	}

	for i, w := range want {
		m.cycle()
		if sender.presses != w.presses || sender.releases != w.releases {
			t.Fatalf("after cycle %d: presses=%d releases=%d, want %d/%d",
				i+1, sender.presses, sender.releases, w.presses, w.releases)
		}
	}

	status := m.Status()
	if status.SprintActive {
		t.Error("expected sprint inactive at end of stream")
	}
	if status.KeyDown {
		t.Error("expected key up at end of stream")
	}
}

func TestLoopCaptureFailureSkipsCycle(t *testing.T) {
	analyzer := &fakeAnalyzer{results: boolResults(true)}
	sender := &fakeSender{}
	capturer := &fakeCapturer{fail: true}
	m := testManager(t, testSettings(), analyzer, &fakeFinder{found: true, focused: true}, sender, capturer)

	wait := m.cycle()
	if analyzer.calls != 0 {
		t.Error("detection must be skipped when capture fails")
	}
	if len(m.filter.History()) != 0 {
		t.Error("capture failure must not feed the filter")
	}
	if wait != m.settings.ErrorRetryDelay {
		t.Errorf("wait = %v, want error retry delay", wait)
	}
	if m.Status().State != StateCaptureFail {
		t.Errorf("State = %q", m.Status().State)
	}
}

func TestLoopDetectionErrorIsFailSafe(t *testing.T) {
	// Sprint confirmed and key held, then the detector starts failing.
	// Failed detections count as inactive, so the key releases after a
	// full window of failures.
	analyzer := &fakeAnalyzer{
		results: boolResults(true, true, true, false, false, false),
		errs:    []error{nil, nil, nil, errors.New("bad"), errors.New("bad"), errors.New("bad")},
	}
	sender := &fakeSender{}
	m := testManager(t, testSettings(), analyzer, &fakeFinder{found: true, focused: true}, sender, &fakeCapturer{})

	for i := 0; i < 6; i++ {
		m.cycle()
	}

	if sender.presses != 1 || sender.releases != 1 {
		t.Errorf("presses=%d releases=%d, want 1/1", sender.presses, sender.releases)
	}
}

func TestLoopFocusLossReleasesKey(t *testing.T) {
	analyzer := &fakeAnalyzer{results: boolResults(true, true, true, true)}
	sender := &fakeSender{}
	finder := &fakeFinder{found: true, focused: true}
	m := testManager(t, testSettings(), analyzer, finder, sender, &fakeCapturer{})

	for i := 0; i < 3; i++ {
		m.cycle()
	}
	if sender.presses != 1 {
		t.Fatalf("presses = %d, want 1", sender.presses)
	}

	// Sprint still confirmed active, but focus is gone.
	finder.focused = false
	m.cycle()
	if sender.releases != 1 {
		t.Errorf("releases = %d, want 1 after focus loss", sender.releases)
	}
	if m.keyDown {
		t.Error("keyDown should be false after focus loss release")
	}
}

func TestLoopPressSuppressedWhenUnfocused(t *testing.T) {
	analyzer := &fakeAnalyzer{results: boolResults(true, true, true, true)}
	sender := &fakeSender{}
	finder := &fakeFinder{found: true, focused: false}
	m := testManager(t, testSettings(), analyzer, finder, sender, &fakeCapturer{})

	for i := 0; i < 3; i++ {
		m.cycle()
	}
	if sender.presses != 0 {
		t.Fatalf("press must be suppressed while unfocused, presses = %d", sender.presses)
	}
	if !m.Status().SprintActive {
		t.Error("sprint should be confirmed active even while suppressed")
	}

	// Focus returns: the held-back press fires.
	finder.focused = true
	m.cycle()
	if sender.presses != 1 {
		t.Errorf("presses = %d after focus regained, want 1", sender.presses)
	}
}

func TestLoopFocusRequirementDisabled(t *testing.T) {
	settings := testSettings()
	settings.RequireFocus = false

	analyzer := &fakeAnalyzer{results: boolResults(true, true, true)}
	sender := &fakeSender{}
	m := testManager(t, settings, analyzer, &fakeFinder{found: true, focused: false}, sender, &fakeCapturer{})

	for i := 0; i < 3; i++ {
		m.cycle()
	}
	if sender.presses != 1 {
		t.Errorf("presses = %d, want 1 with focus requirement off", sender.presses)
	}
}

func TestLoopWindowLostReleasesAndResets(t *testing.T) {
	analyzer := &fakeAnalyzer{results: boolResults(true, true, true, true)}
	sender := &fakeSender{}
	finder := &fakeFinder{found: true, focused: true}
	m := testManager(t, testSettings(), analyzer, finder, sender, &fakeCapturer{})

	for i := 0; i < 3; i++ {
		m.cycle()
	}
	if sender.presses != 1 {
		t.Fatalf("presses = %d, want 1", sender.presses)
	}

	finder.found = false
	wait := m.cycle()
	if sender.releases != 1 {
		t.Errorf("releases = %d, want 1 after window loss", sender.releases)
	}
	if len(m.filter.History()) != 0 {
		t.Error("filter must reset on window loss")
	}
	if wait != m.settings.WindowRetryDelay {
		t.Errorf("wait = %v, want window retry delay", wait)
	}
	if m.Status().State != StateWindowLost {
		t.Errorf("State = %q", m.Status().State)
	}

	// Window returns: warmup applies again before any press.
	finder.found = true
	m.cycle()
	if sender.presses != 1 {
		t.Error("no press until the filter refills after window loss")
	}
}

func TestLoopPauseReleasesKey(t *testing.T) {
	analyzer := &fakeAnalyzer{results: boolResults(true, true, true, true)}
	sender := &fakeSender{}
	m := testManager(t, testSettings(), analyzer, &fakeFinder{found: true, focused: true}, sender, &fakeCapturer{})

	for i := 0; i < 3; i++ {
		m.cycle()
	}

	m.Pause()
	wait := m.cycle()
	if sender.releases != 1 {
		t.Errorf("releases = %d, want 1 on pause", sender.releases)
	}
	if wait != m.settings.InactivePollDelay {
		t.Errorf("wait = %v, want inactive delay while paused", wait)
	}
	if m.Status().State != StatePaused {
		t.Errorf("State = %q", m.Status().State)
	}

	m.Resume()
	m.cycle()
	if m.Status().State == StatePaused {
		t.Error("still paused after Resume")
	}
}

func TestLoopReleaseFailureRetries(t *testing.T) {
	analyzer := &fakeAnalyzer{results: boolResults(true, true, true, false, false, false, false)}
	sender := &fakeSender{}
	m := testManager(t, testSettings(), analyzer, &fakeFinder{found: true, focused: true}, sender, &fakeCapturer{})

	for i := 0; i < 3; i++ {
		m.cycle()
	}

	// First release attempt fails; the key must stay marked down and the
	// release retried next cycle.
	sender.failNext = true
	for i := 0; i < 3; i++ {
		m.cycle()
	}
	if !m.keyDown {
		t.Fatal("keyDown cleared despite failed release")
	}
	m.cycle()
	if m.keyDown {
		t.Error("release not retried after failure")
	}
	if sender.releases != 1 {
		t.Errorf("releases = %d, want 1", sender.releases)
	}
}

func TestLoopReconfigureAppliesBetweenCycles(t *testing.T) {
	analyzer := &fakeAnalyzer{results: boolResults(true, true, true, true)}
	sender := &fakeSender{}
	m := testManager(t, testSettings(), analyzer, &fakeFinder{found: true, focused: true}, sender, &fakeCapturer{})

	for i := 0; i < 3; i++ {
		m.cycle()
	}
	if !m.keyDown {
		t.Fatal("expected key down before reconfigure")
	}

	next := testSettings()
	next.ConsistencyWindow = 5
	replacement := &fakeAnalyzer{results: boolResults(false), name: "ml"}
	m.Reconfigure(Reconfig{Settings: next, Analyzer: replacement, Profile: "alt"})

	m.cycle()
	if sender.releases != 1 {
		t.Error("reconfigure must release the held key")
	}
	if m.filter.Window() != 5 {
		t.Errorf("filter window = %d, want 5", m.filter.Window())
	}
	if m.Status().Profile != "alt" {
		t.Errorf("Profile = %q", m.Status().Profile)
	}
	if m.Status().Method != "ml" {
		t.Errorf("Method = %q", m.Status().Method)
	}
}

func TestLoopPanicRecovered(t *testing.T) {
	analyzer := &panickyAnalyzer{}
	sender := &fakeSender{}
	m := testManager(t, testSettings(), analyzer, &fakeFinder{found: true, focused: true}, sender, &fakeCapturer{})

	wait := m.safeCycle()
	if wait != m.settings.ErrorRetryDelay {
		t.Errorf("wait = %v, want error retry delay after panic", wait)
	}
	if m.deps.Monitor.Snapshot().Errors != 1 {
		t.Errorf("Errors = %d, want 1", m.deps.Monitor.Snapshot().Errors)
	}
}

type panickyAnalyzer struct{}

func (a *panickyAnalyzer) Detect(frame *image.RGBA) (detect.Result, error) {
	panic("detector blew up")
}
func (a *panickyAnalyzer) ActiveName() string { return "template" }
func (a *panickyAnalyzer) Degraded() bool     { return false }

func TestLoopStartStop(t *testing.T) {
	settings := testSettings()
	settings.CaptureFPS = 60

	analyzer := &fakeAnalyzer{results: boolResults(true)}
	sender := &fakeSender{}
	m := testManager(t, settings, analyzer, &fakeFinder{found: true, focused: true}, sender, &fakeCapturer{})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}

	// Let a few cycles run, then stop; Stop must return promptly and the
	// key must not be left held.
	time.Sleep(100 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	if m.keyDown {
		t.Error("key left held after Stop")
	}
	if m.Status().State != StateStopped {
		t.Errorf("State = %q, want %q", m.Status().State, StateStopped)
	}
}
