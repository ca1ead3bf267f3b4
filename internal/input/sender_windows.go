//go:build windows

package input

import (
	"fmt"
	"syscall"
	"unsafe"
)

var (
	user32        = syscall.NewLazyDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

const (
	inputKeyboard  = 1
	keyEventFKeyUp = 0x0002
)

// keyboardInput mirrors the INPUT struct with its union collapsed to the
// KEYBDINPUT member, padded out to the full union size.
type keyboardInput struct {
	Type      uint32
	_         uint32
	Vk        uint16
	Scan      uint16
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
	_         [8]byte
}

// SendInputSender drives the keyboard through the SendInput API.
type SendInputSender struct{}

func NewSender() *SendInputSender {
	return &SendInputSender{}
}

// PressKey sends a key-down event.
func (s *SendInputSender) PressKey(name string) error {
	return s.send(name, 0)
}

// ReleaseKey sends a key-up event.
func (s *SendInputSender) ReleaseKey(name string) error {
	return s.send(name, keyEventFKeyUp)
}

func (s *SendInputSender) send(name string, flags uint32) error {
	code, err := KeyCode(name)
	if err != nil {
		return err
	}

	in := keyboardInput{
		Type:  inputKeyboard,
		Vk:    code,
		Flags: flags,
	}

	sent, _, lastErr := procSendInput.Call(
		1,
		uintptr(unsafe.Pointer(&in)),
		unsafe.Sizeof(in))
	if sent != 1 {
		return fmt.Errorf("SendInput failed for key %q: %v", name, lastErr)
	}
	return nil
}
