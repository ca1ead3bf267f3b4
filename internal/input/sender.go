package input

// Sender emits key press and release events to the operating system. A
// failed send is an error return; the caller decides whether to retry the
// transition on the next cycle.
type Sender interface {
	// PressKey sends a key-down event for the named key.
	PressKey(name string) error

	// ReleaseKey sends a key-up event for the named key.
	ReleaseKey(name string) error
}
