//go:build windows

package cv

import (
	"fmt"
	"image"
	"syscall"
	"unsafe"
)

var (
	user32              = syscall.NewLazyDLL("user32.dll")
	gdi32               = syscall.NewLazyDLL("gdi32.dll")
	procIsWindow        = user32.NewProc("IsWindow")
	procGetClientRect   = user32.NewProc("GetClientRect")
	procGetDC           = user32.NewProc("GetDC")
	procReleaseDC       = user32.NewProc("ReleaseDC")
	procCreateCompatDC  = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatBmp = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject    = gdi32.NewProc("SelectObject")
	procBitBlt          = gdi32.NewProc("BitBlt")
	procGetDIBits       = gdi32.NewProc("GetDIBits")
	procDeleteObject    = gdi32.NewProc("DeleteObject")
	procDeleteDC        = gdi32.NewProc("DeleteDC")
)

const (
	srcCopy      = 0x00CC0020
	dibRGBColors = 0
	biRGB        = 0
	bitsPerPixel = 32
)

type rect struct {
	Left, Top, Right, Bottom int32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	Colors [1]uint32
}

// WindowCapturer captures regions of one window's client area via GDI.
type WindowCapturer struct {
	hwnd uintptr
}

// NewWindowCapturer binds a capturer to a window handle.
func NewWindowCapturer(hwnd uintptr) *WindowCapturer {
	return &WindowCapturer{hwnd: hwnd}
}

// ClientSize returns the window's current client area dimensions.
func (c *WindowCapturer) ClientSize() (int, int, error) {
	if ok, _, _ := procIsWindow.Call(c.hwnd); ok == 0 {
		return 0, 0, ErrWindowGone
	}

	var r rect
	ret, _, _ := procGetClientRect.Call(c.hwnd, uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return 0, 0, fmt.Errorf("GetClientRect failed for window %#x", c.hwnd)
	}
	return int(r.Right - r.Left), int(r.Bottom - r.Top), nil
}

// CaptureRegion captures a client-area relative region as RGBA pixels.
func (c *WindowCapturer) CaptureRegion(roi ROI) (*image.RGBA, error) {
	if !roi.Valid() {
		return nil, fmt.Errorf("invalid capture region %s", roi)
	}

	clientW, clientH, err := c.ClientSize()
	if err != nil {
		return nil, err
	}
	if roi.X < 0 || roi.Y < 0 || roi.X+roi.Width > clientW || roi.Y+roi.Height > clientH {
		return nil, fmt.Errorf("%w: %s vs client %dx%d", ErrRegionOutOfBounds, roi, clientW, clientH)
	}

	windowDC, _, _ := procGetDC.Call(c.hwnd)
	if windowDC == 0 {
		return nil, fmt.Errorf("GetDC failed for window %#x", c.hwnd)
	}
	defer procReleaseDC.Call(c.hwnd, windowDC)

	memDC, _, _ := procCreateCompatDC.Call(windowDC)
	if memDC == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(memDC)

	bitmap, _, _ := procCreateCompatBmp.Call(windowDC, uintptr(roi.Width), uintptr(roi.Height))
	if bitmap == 0 {
		return nil, fmt.Errorf("CreateCompatibleBitmap failed")
	}
	defer procDeleteObject.Call(bitmap)

	oldObj, _, _ := procSelectObject.Call(memDC, bitmap)
	defer procSelectObject.Call(memDC, oldObj)

	ret, _, _ := procBitBlt.Call(
		memDC, 0, 0, uintptr(roi.Width), uintptr(roi.Height),
		windowDC, uintptr(roi.X), uintptr(roi.Y), srcCopy)
	if ret == 0 {
		return nil, fmt.Errorf("BitBlt failed for region %s", roi)
	}

	info := bitmapInfo{
		Header: bitmapInfoHeader{
			Size:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
			Width:       int32(roi.Width),
			Height:      -int32(roi.Height), // top-down rows
			Planes:      1,
			BitCount:    bitsPerPixel,
			Compression: biRGB,
		},
	}

	buf := make([]byte, roi.Width*roi.Height*4)
	ret, _, _ = procGetDIBits.Call(
		memDC, bitmap, 0, uintptr(roi.Height),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&info)),
		dibRGBColors)
	if ret == 0 {
		return nil, fmt.Errorf("GetDIBits failed for region %s", roi)
	}

	// GDI hands back BGRA
	img := image.NewRGBA(image.Rect(0, 0, roi.Width, roi.Height))
	for i := 0; i+3 < len(buf); i += 4 {
		img.Pix[i] = buf[i+2]
		img.Pix[i+1] = buf[i+1]
		img.Pix[i+2] = buf[i]
		img.Pix[i+3] = 255
	}
	return img, nil
}

// Close releases resources. The GDI handles are per-call, so nothing is held.
func (c *WindowCapturer) Close() error {
	return nil
}
