package cv

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func solidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func drawPatch(img *image.RGBA, x, y, width, height int, c color.RGBA) {
	for dy := 0; dy < height; dy++ {
		for dx := 0; dx < width; dx++ {
			img.SetRGBA(x+dx, y+dy, c)
		}
	}
}

// checkerPatch fills a region with a 2-color checkerboard so NCC has
// variance to correlate against.
func checkerPatch(img *image.RGBA, x, y, width, height int, a, b color.RGBA) {
	for dy := 0; dy < height; dy++ {
		for dx := 0; dx < width; dx++ {
			if (dx+dy)%2 == 0 {
				img.SetRGBA(x+dx, y+dy, a)
			} else {
				img.SetRGBA(x+dx, y+dy, b)
			}
		}
	}
}

func TestMatchTemplateFindsPatch(t *testing.T) {
	dark := color.RGBA{R: 20, G: 20, B: 30, A: 255}
	bright := color.RGBA{R: 240, G: 200, B: 60, A: 255}

	frame := solidImage(40, 40, dark)
	checkerPatch(frame, 12, 8, 8, 8, bright, dark)

	template := solidImage(8, 8, dark)
	checkerPatch(template, 0, 0, 8, 8, bright, dark)

	tests := []struct {
		name   string
		method MatchMethod
	}{
		{"SAD", MatchMethodSAD},
		{"SSD", MatchMethodSSD},
		{"NCC", MatchMethodNCC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MatchTemplate(frame, template, &MatchConfig{
				Method:    tt.method,
				Threshold: 0.9,
			})
			if err != nil {
				t.Fatalf("MatchTemplate failed: %v", err)
			}
			if !result.Found {
				t.Errorf("expected match, confidence %.3f", result.Confidence)
			}
			if result.Location.X != 12 || result.Location.Y != 8 {
				t.Errorf("expected location (12,8), got %v", result.Location)
			}
			if result.Confidence < 0.99 {
				t.Errorf("expected near-perfect confidence, got %.3f", result.Confidence)
			}
		})
	}
}

func TestMatchTemplateThresholdInclusive(t *testing.T) {
	dark := color.RGBA{R: 10, G: 10, B: 10, A: 255}
	bright := color.RGBA{R: 200, G: 200, B: 200, A: 255}

	frame := solidImage(20, 20, dark)
	checkerPatch(frame, 5, 5, 6, 6, bright, dark)

	template := solidImage(6, 6, dark)
	checkerPatch(template, 0, 0, 6, 6, bright, dark)

	first, err := MatchTemplate(frame, template, &MatchConfig{
		Method:    MatchMethodNCC,
		Threshold: 0.5,
	})
	if err != nil {
		t.Fatalf("MatchTemplate failed: %v", err)
	}

	// A score exactly at the threshold counts as found.
	result, err := MatchTemplate(frame, template, &MatchConfig{
		Method:    MatchMethodNCC,
		Threshold: first.Confidence,
	})
	if err != nil {
		t.Fatalf("MatchTemplate failed: %v", err)
	}
	if !result.Found {
		t.Errorf("score equal to threshold should count as found (%.6f)", result.Confidence)
	}
}

func TestMatchTemplateRejectsDissimilar(t *testing.T) {
	frame := solidImage(30, 30, color.RGBA{R: 0, G: 0, B: 0, A: 255})
	checkerPatch(frame, 0, 0, 30, 30, color.RGBA{R: 0, G: 0, B: 0, A: 255}, color.RGBA{R: 40, G: 40, B: 40, A: 255})

	template := solidImage(10, 10, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	drawPatch(template, 0, 0, 5, 10, color.RGBA{R: 0, G: 0, B: 0, A: 255})

	result, err := MatchTemplate(frame, template, &MatchConfig{
		Method:    MatchMethodSAD,
		Threshold: 0.95,
	})
	if err != nil {
		t.Fatalf("MatchTemplate failed: %v", err)
	}
	if result.Found {
		t.Errorf("expected no match, got confidence %.3f", result.Confidence)
	}
}

func TestMatchTemplateTooLarge(t *testing.T) {
	frame := solidImage(10, 10, color.RGBA{A: 255})
	template := solidImage(20, 20, color.RGBA{A: 255})

	_, err := MatchTemplate(frame, template, DefaultMatchConfig())
	if !errors.Is(err, ErrTemplateTooLarge) {
		t.Errorf("expected ErrTemplateTooLarge, got %v", err)
	}
}

func TestMatchTemplateNilImages(t *testing.T) {
	frame := solidImage(10, 10, color.RGBA{A: 255})

	if _, err := MatchTemplate(nil, frame, nil); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("nil frame: expected ErrEmptyImage, got %v", err)
	}
	if _, err := MatchTemplate(frame, nil, nil); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("nil template: expected ErrEmptyImage, got %v", err)
	}
}

func TestCropRegion(t *testing.T) {
	base := color.RGBA{R: 1, G: 2, B: 3, A: 255}
	mark := color.RGBA{R: 200, G: 100, B: 50, A: 255}

	img := solidImage(20, 20, base)
	img.SetRGBA(7, 9, mark)

	cropped := CropRegion(img, image.Rect(5, 5, 15, 15))
	if got := cropped.Bounds(); got.Dx() != 10 || got.Dy() != 10 {
		t.Fatalf("expected 10x10 crop, got %v", got)
	}
	if got := cropped.RGBAAt(2, 4); got != mark {
		t.Errorf("marker pixel not at expected crop offset: %v", got)
	}
}

func TestCropRegionClampsToBounds(t *testing.T) {
	img := solidImage(10, 10, color.RGBA{A: 255})
	cropped := CropRegion(img, image.Rect(6, 6, 30, 30))
	if got := cropped.Bounds(); got.Dx() != 4 || got.Dy() != 4 {
		t.Errorf("expected crop clamped to 4x4, got %v", got)
	}
}

func TestToGrayscale(t *testing.T) {
	img := solidImage(2, 2, color.RGBA{R: 255, G: 0, B: 0, A: 255})
	gray := ToGrayscale(img)

	p := gray.RGBAAt(0, 0)
	if p.R != p.G || p.G != p.B {
		t.Errorf("expected equal channels, got %v", p)
	}
	// 255*299/1000 = 76
	if p.R != 76 {
		t.Errorf("expected luminance 76 for pure red, got %d", p.R)
	}
}

func TestROIValid(t *testing.T) {
	tests := []struct {
		name string
		roi  ROI
		want bool
	}{
		{"positive area", ROI{X: 10, Y: 10, Width: 32, Height: 32}, true},
		{"zero width", ROI{X: 0, Y: 0, Width: 0, Height: 5}, false},
		{"negative height", ROI{X: 0, Y: 0, Width: 5, Height: -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.roi.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
