package cv

import (
	"fmt"
	"image"
	"image/png"
	"os"
)

// ROI is the fixed rectangular sub-area of the game window that is captured
// and analyzed each cycle. Coordinates are client-area relative.
type ROI struct {
	X, Y, Width, Height int
}

// Valid reports whether the region has positive area.
func (r ROI) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Rect converts the ROI to an image.Rectangle.
func (r ROI) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r ROI) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// LoadPNG loads a reference image from disk and converts it to RGBA.
func LoadPNG(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return rgba, nil
}

// CropRegion extracts a rectangular region from an image into a fresh RGBA
// with origin (0,0).
func CropRegion(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(img.Bounds())
	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			cropped.SetRGBA(x-rect.Min.X, y-rect.Min.Y, img.RGBAAt(x, y))
		}
	}
	return cropped
}

// ToGrayscale converts an RGBA image to grayscale (kept as RGBA for uniform
// pixel access in the matchers).
func ToGrayscale(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	gray := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			idx := (y-bounds.Min.Y)*gray.Stride + (x-bounds.Min.X)*4
			src := (y-bounds.Min.Y)*img.Stride + (x-bounds.Min.X)*4
			r := img.Pix[src]
			g := img.Pix[src+1]
			b := img.Pix[src+2]

			// Luminance formula
			v := uint8((int(r)*299 + int(g)*587 + int(b)*114) / 1000)

			gray.Pix[idx] = v
			gray.Pix[idx+1] = v
			gray.Pix[idx+2] = v
			gray.Pix[idx+3] = 255
		}
	}
	return gray
}
