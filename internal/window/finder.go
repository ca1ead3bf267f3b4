package window

import "errors"

// Info describes a located top-level window.
type Info struct {
	Handle uintptr
	Title  string
}

// Finder locates the game window and answers focus questions about it. All
// methods tolerate the window disappearing between calls; that is an error
// return, never a panic.
type Finder interface {
	// Find locates a visible top-level window whose title contains the
	// given substring (case-insensitive).
	Find(titleSubstring string) (Info, error)

	// IsFocused reports whether the window currently has keyboard focus.
	IsFocused(handle uintptr) bool

	// Exists reports whether the handle still names a live window.
	Exists(handle uintptr) bool
}

var ErrWindowNotFound = errors.New("window not found")
