package sprint

import (
	"testing"
	"time"
)

func TestPolicyDecide(t *testing.T) {
	p := NewPolicy(100*time.Millisecond, time.Second)

	tests := []struct {
		name      string
		confirmed bool
		focused   bool
		keyDown   bool
		want      Action
	}{
		{"idle inactive", false, true, false, ActionNoOp},
		{"sprint starts focused", true, true, false, ActionPress},
		{"sprint holding", true, true, true, ActionNoOp},
		{"sprint ends", false, true, true, ActionRelease},
		{"press suppressed unfocused", true, false, false, ActionNoOp},
		{"focus lost while holding", true, false, true, ActionRelease},
		{"inactive unfocused key down", false, false, true, ActionRelease},
		{"inactive unfocused idle", false, false, false, ActionNoOp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Decide(tt.confirmed, tt.focused, tt.keyDown)
			if got != tt.want {
				t.Errorf("Decide(%v, %v, %v) = %v, want %v",
					tt.confirmed, tt.focused, tt.keyDown, got, tt.want)
			}
		})
	}
}

func TestPolicyReleaseBeatsEverything(t *testing.T) {
	p := NewPolicy(100*time.Millisecond, time.Second)

	// A held key with focus lost must release even while sprint is
	// confirmed active.
	if got := p.Decide(true, false, true); got != ActionRelease {
		t.Errorf("focus loss with key down = %v, want release", got)
	}
}

func TestPolicyPollInterval(t *testing.T) {
	p := NewPolicy(100*time.Millisecond, time.Second)

	if got := p.PollInterval(true); got != 100*time.Millisecond {
		t.Errorf("focused interval = %v", got)
	}
	if got := p.PollInterval(false); got != time.Second {
		t.Errorf("unfocused interval = %v", got)
	}
}

func TestActionString(t *testing.T) {
	if ActionPress.String() != "press" || ActionRelease.String() != "release" || ActionNoOp.String() != "noop" {
		t.Error("unexpected Action string values")
	}
}
