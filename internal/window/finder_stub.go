//go:build !windows

package window

import "fmt"

// Win32Finder is only functional on Windows; this stub keeps the package
// buildable elsewhere for development and tests.
type Win32Finder struct{}

func NewFinder() *Win32Finder {
	return &Win32Finder{}
}

func (f *Win32Finder) Find(titleSubstring string) (Info, error) {
	return Info{}, fmt.Errorf("%w: window lookup not supported on this platform", ErrWindowNotFound)
}

func (f *Win32Finder) IsFocused(handle uintptr) bool {
	return false
}

func (f *Win32Finder) Exists(handle uintptr) bool {
	return false
}
