//go:build windows

package window

import (
	"fmt"
	"strings"
	"sync"
	"syscall"
	"unsafe"
)

var (
	user32                   = syscall.NewLazyDLL("user32.dll")
	procEnumWindows          = user32.NewProc("EnumWindows")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procIsWindowVisible      = user32.NewProc("IsWindowVisible")
	procIsWindow             = user32.NewProc("IsWindow")
	procGetForegroundWindow  = user32.NewProc("GetForegroundWindow")
)

// Win32Finder locates windows through the user32 enumeration APIs.
type Win32Finder struct{}

func NewFinder() *Win32Finder {
	return &Win32Finder{}
}

// NewCallback slots are never released, so the enum callback is created
// once and the search state shared through a guarded package variable.
// EnumWindows invokes the callback synchronously inside the Call.
var (
	enumMu     sync.Mutex
	enumNeedle string
	enumFound  Info

	enumCallback = syscall.NewCallback(func(hwnd uintptr, lparam uintptr) uintptr {
		if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
			return 1 // continue
		}

		title := windowTitle(hwnd)
		if title == "" {
			return 1
		}
		if strings.Contains(strings.ToLower(title), enumNeedle) {
			enumFound = Info{Handle: hwnd, Title: title}
			return 0 // stop
		}
		return 1
	})
)

// Find enumerates visible top-level windows and returns the first whose
// title contains the substring, case-insensitive.
func (f *Win32Finder) Find(titleSubstring string) (Info, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumNeedle = strings.ToLower(titleSubstring)
	enumFound = Info{}
	procEnumWindows.Call(enumCallback, 0)

	if enumFound.Handle == 0 {
		return Info{}, fmt.Errorf("%w: title containing %q", ErrWindowNotFound, titleSubstring)
	}
	return enumFound, nil
}

// IsFocused reports whether the window is the foreground window.
func (f *Win32Finder) IsFocused(handle uintptr) bool {
	fg, _, _ := procGetForegroundWindow.Call()
	return fg != 0 && fg == handle
}

// Exists reports whether the handle still names a live window.
func (f *Win32Finder) Exists(handle uintptr) bool {
	ok, _, _ := procIsWindow.Call(handle)
	return ok != 0
}

func windowTitle(hwnd uintptr) string {
	length, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if length == 0 {
		return ""
	}

	buf := make([]uint16, length+1)
	procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), length+1)
	return syscall.UTF16ToString(buf)
}
