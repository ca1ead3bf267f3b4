package cv

import (
	"errors"
	"image"
)

// Capturer grabs pixels from a window's client area. A capture failure is an
// ordinary error return; callers skip the cycle and retry.
type Capturer interface {
	// CaptureRegion captures a client-area relative region of the bound
	// window.
	CaptureRegion(roi ROI) (*image.RGBA, error)

	// ClientSize returns the current client area dimensions.
	ClientSize() (width, height int, err error)

	// Close releases any resources held by the capturer.
	Close() error
}

var (
	ErrCaptureUnsupported = errors.New("screen capture not supported on this platform")
	ErrWindowGone         = errors.New("target window no longer exists")
	ErrRegionOutOfBounds  = errors.New("capture region outside client area")
)
