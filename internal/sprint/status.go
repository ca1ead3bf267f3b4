package sprint

import "time"

// Loop state strings shown in the tray and logs.
const (
	StateStarting    = "Starting"
	StateRunning     = "Running"
	StatePaused      = "Paused"
	StateWindowLost  = "Game window not found, retrying"
	StateCaptureFail = "Capture failed, retrying"
	StateDegraded    = "Degraded detection"
	StateStopped     = "Stopped"
)

// Status is a point-in-time snapshot of the loop, safe to read from any
// goroutine. The loop publishes a fresh copy each cycle.
type Status struct {
	SprintActive   bool
	KeyDown        bool
	LastConfidence float64
	LastCycle      time.Duration
	Method         string
	Degraded       bool
	WindowFound    bool
	Focused        bool
	ErrorCount     int64
	State          string
	Profile        string
}
