package metrics

import (
	"sync"
	"time"
)

// Stats is a snapshot of loop performance counters.
type Stats struct {
	Cycles         int64
	LastCycle      time.Duration
	AvgCycle       time.Duration
	MaxCycle       time.Duration
	Errors         int64
	Presses        int64
	Releases       int64
	StateChanges   int64
	SessionStarted time.Time
}

// Monitor accumulates per-cycle timing and event counters. All methods are
// safe for concurrent use; the loop writes, the tray and metrics logger
// read.
type Monitor struct {
	mu sync.Mutex

	cycles       int64
	lastCycle    time.Duration
	totalCycle   time.Duration
	maxCycle     time.Duration
	errors       int64
	presses      int64
	releases     int64
	stateChanges int64
	started      time.Time
}

// NewMonitor creates a monitor with the session clock started now.
func NewMonitor() *Monitor {
	return &Monitor{started: time.Now()}
}

// RecordCycle records one completed detection cycle.
func (m *Monitor) RecordCycle(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cycles++
	m.lastCycle = d
	m.totalCycle += d
	if d > m.maxCycle {
		m.maxCycle = d
	}
}

// RecordError counts a per-cycle failure.
func (m *Monitor) RecordError() {
	m.mu.Lock()
	m.errors++
	m.mu.Unlock()
}

// RecordPress counts a key press side effect.
func (m *Monitor) RecordPress() {
	m.mu.Lock()
	m.presses++
	m.mu.Unlock()
}

// RecordRelease counts a key release side effect.
func (m *Monitor) RecordRelease() {
	m.mu.Lock()
	m.releases++
	m.mu.Unlock()
}

// RecordStateChange counts a confirmed sprint state flip.
func (m *Monitor) RecordStateChange() {
	m.mu.Lock()
	m.stateChanges++
	m.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (m *Monitor) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{
		Cycles:         m.cycles,
		LastCycle:      m.lastCycle,
		MaxCycle:       m.maxCycle,
		Errors:         m.errors,
		Presses:        m.presses,
		Releases:       m.releases,
		StateChanges:   m.stateChanges,
		SessionStarted: m.started,
	}
	if m.cycles > 0 {
		stats.AvgCycle = m.totalCycle / time.Duration(m.cycles)
	}
	return stats
}
