package events

import "time"

// EventType identifies the kind of event published on the bus
type EventType string

const (
	// EventSprintStateChanged fires when the confirmed sprint state flips
	EventSprintStateChanged EventType = "sprint_state_changed"
	// EventStatusUpdated fires with a fresh status snapshot each cycle
	EventStatusUpdated EventType = "status_updated"
	// EventDetectionDegraded fires when the configured detection strategy
	// becomes unusable and a fallback takes over
	EventDetectionDegraded EventType = "detection_degraded"
	// EventWindowLost fires when the game window cannot be found
	EventWindowLost EventType = "window_lost"
	// EventWindowFound fires when the game window reappears after a loss
	EventWindowFound EventType = "window_found"
	// EventProfileSwitched fires after a profile change has been applied
	EventProfileSwitched EventType = "profile_switched"
	// EventLoopError fires on a recovered per-cycle failure
	EventLoopError EventType = "loop_error"
)

// Event carries an event type plus an optional payload
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   interface{}
}

// StateChange is the payload for EventSprintStateChanged
type StateChange struct {
	Active     bool
	Confidence float64
}

// Degraded is the payload for EventDetectionDegraded
type Degraded struct {
	Configured string
	Fallback   string
	Reason     string
}

// Handler is called with each delivered event
type Handler func(Event)

// SubscriptionID identifies a registered handler
type SubscriptionID int64
