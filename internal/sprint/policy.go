package sprint

import "time"

// Action is what the loop should do with the sprint key this cycle.
type Action int

const (
	ActionNoOp Action = iota
	ActionPress
	ActionRelease
)

func (a Action) String() string {
	switch a {
	case ActionPress:
		return "press"
	case ActionRelease:
		return "release"
	default:
		return "noop"
	}
}

// Policy turns the confirmed sprint state, focus state, and physical key
// state into a key action. Pure decision logic, no side effects.
//
// Release always wins: an unfocused window or a confirmed-inactive state
// never leaves the key held. Presses are gated on focus so keystrokes
// cannot leak into whatever application the player switched to.
type Policy struct {
	frameInterval time.Duration
	inactiveDelay time.Duration
}

// NewPolicy creates a policy with the focused-poll interval and the slower
// unfocused interval.
func NewPolicy(frameInterval, inactiveDelay time.Duration) *Policy {
	return &Policy{
		frameInterval: frameInterval,
		inactiveDelay: inactiveDelay,
	}
}

// Decide returns the action for one cycle.
func (p *Policy) Decide(confirmed, focused, keyDown bool) Action {
	if keyDown && !focused {
		return ActionRelease
	}
	if keyDown && !confirmed {
		return ActionRelease
	}
	if !keyDown && confirmed && focused {
		return ActionPress
	}
	return ActionNoOp
}

// PollInterval returns how long to wait before the next cycle.
func (p *Policy) PollInterval(focused bool) time.Duration {
	if focused {
		return p.frameInterval
	}
	return p.inactiveDelay
}
