package input

import (
	"fmt"
	"strings"
)

// virtualKeys maps config key names to Windows virtual-key codes. Only keys
// that make sense as a held sprint bind are listed; anything else is a
// config error caught at startup rather than a surprise at press time.
var virtualKeys = map[string]uint16{
	"shift": 0x10,
	"ctrl":  0x11,
	"alt":   0x12,
	"space": 0x20,
	"tab":   0x09,

	"0": 0x30, "1": 0x31, "2": 0x32, "3": 0x33, "4": 0x34,
	"5": 0x35, "6": 0x36, "7": 0x37, "8": 0x38, "9": 0x39,

	"a": 0x41, "b": 0x42, "c": 0x43, "d": 0x44, "e": 0x45,
	"f": 0x46, "g": 0x47, "h": 0x48, "i": 0x49, "j": 0x4A,
	"k": 0x4B, "l": 0x4C, "m": 0x4D, "n": 0x4E, "o": 0x4F,
	"p": 0x50, "q": 0x51, "r": 0x52, "s": 0x53, "t": 0x54,
	"u": 0x55, "v": 0x56, "w": 0x57, "x": 0x58, "y": 0x59,
	"z": 0x5A,

	"f1": 0x70, "f2": 0x71, "f3": 0x72, "f4": 0x73,
	"f5": 0x74, "f6": 0x75, "f7": 0x76, "f8": 0x77,
	"f9": 0x78, "f10": 0x79, "f11": 0x7A, "f12": 0x7B,

	"numpad0": 0x60, "numpad1": 0x61, "numpad2": 0x62,
	"numpad3": 0x63, "numpad4": 0x64, "numpad5": 0x65,
	"numpad6": 0x66, "numpad7": 0x67, "numpad8": 0x68,
	"numpad9": 0x69,
}

// ValidateKey reports whether a config key name is usable as the sprint
// bind.
func ValidateKey(name string) error {
	if _, ok := virtualKeys[normalizeKey(name)]; !ok {
		return fmt.Errorf("unsupported key %q", name)
	}
	return nil
}

// KeyCode resolves a key name to its virtual-key code.
func KeyCode(name string) (uint16, error) {
	code, ok := virtualKeys[normalizeKey(name)]
	if !ok {
		return 0, fmt.Errorf("unsupported key %q", name)
	}
	return code, nil
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
