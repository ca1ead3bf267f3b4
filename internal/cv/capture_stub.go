//go:build !windows

package cv

import "image"

// WindowCapturer is only functional on Windows; this stub keeps the package
// buildable elsewhere for development and tests.
type WindowCapturer struct {
	hwnd uintptr
}

func NewWindowCapturer(hwnd uintptr) *WindowCapturer {
	return &WindowCapturer{hwnd: hwnd}
}

func (c *WindowCapturer) ClientSize() (int, int, error) {
	return 0, 0, ErrCaptureUnsupported
}

func (c *WindowCapturer) CaptureRegion(roi ROI) (*image.RGBA, error) {
	return nil, ErrCaptureUnsupported
}

func (c *WindowCapturer) Close() error {
	return nil
}
