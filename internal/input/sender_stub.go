//go:build !windows

package input

import "fmt"

// SendInputSender is only functional on Windows; this stub keeps the
// package buildable elsewhere for development and tests.
type SendInputSender struct{}

func NewSender() *SendInputSender {
	return &SendInputSender{}
}

func (s *SendInputSender) PressKey(name string) error {
	if err := ValidateKey(name); err != nil {
		return err
	}
	return fmt.Errorf("key injection not supported on this platform")
}

func (s *SendInputSender) ReleaseKey(name string) error {
	if err := ValidateKey(name); err != nil {
		return err
	}
	return fmt.Errorf("key injection not supported on this platform")
}
