package detect

// TemporalFilter debounces raw per-frame detections before they are allowed
// to change the confirmed state. It keeps a bounded FIFO of the most recent
// raw results; the confirmed state flips to active only when every entry in
// a full history is active, and flips to inactive only when every entry is
// inactive. A mixed history leaves the state where it was, so a single
// flickered frame in either direction never toggles the key.
type TemporalFilter struct {
	capacity  int
	history   []bool
	confirmed bool
}

// NewTemporalFilter creates a filter over a window of the given size. The
// window is clamped to at least 1; a window of 1 passes raw results through
// unchanged.
func NewTemporalFilter(window int) *TemporalFilter {
	if window < 1 {
		window = 1
	}
	return &TemporalFilter{
		capacity: window,
		history:  make([]bool, 0, window),
	}
}

// Observe records one raw detection and returns the (possibly updated)
// confirmed state.
func (f *TemporalFilter) Observe(raw bool) bool {
	if len(f.history) == f.capacity {
		copy(f.history, f.history[1:])
		f.history[f.capacity-1] = raw
	} else {
		f.history = append(f.history, raw)
	}

	if len(f.history) < f.capacity {
		return f.confirmed
	}

	allActive := true
	allInactive := true
	for _, v := range f.history {
		if v {
			allInactive = false
		} else {
			allActive = false
		}
	}

	if allActive {
		f.confirmed = true
	} else if allInactive {
		f.confirmed = false
	}
	return f.confirmed
}

// Confirmed returns the current confirmed state without recording anything.
func (f *TemporalFilter) Confirmed() bool {
	return f.confirmed
}

// Window returns the configured history size.
func (f *TemporalFilter) Window() int {
	return f.capacity
}

// History returns a copy of the raw results currently held, oldest first.
func (f *TemporalFilter) History() []bool {
	out := make([]bool, len(f.history))
	copy(out, f.history)
	return out
}

// Reset clears the history and forces the confirmed state to inactive. Used
// when the window is lost or detection is reconfigured, so stale frames
// never vote on the new situation.
func (f *TemporalFilter) Reset() {
	f.history = f.history[:0]
	f.confirmed = false
}

// Resize changes the window size and resets the filter.
func (f *TemporalFilter) Resize(window int) {
	if window < 1 {
		window = 1
	}
	f.capacity = window
	f.history = make([]bool, 0, window)
	f.confirmed = false
}
