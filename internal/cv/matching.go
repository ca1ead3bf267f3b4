package cv

import (
	"errors"
	"image"
	"math"
)

// MatchResult holds the outcome of scoring a template against a frame
type MatchResult struct {
	Found      bool
	Location   image.Point
	Confidence float64
}

// MatchMethod defines the template matching algorithm
type MatchMethod int

const (
	// MatchMethodSAD - Sum of Absolute Differences (fastest)
	MatchMethodSAD MatchMethod = iota
	// MatchMethodSSD - Sum of Squared Differences (balanced)
	MatchMethodSSD
	// MatchMethodNCC - Normalized Cross-Correlation (most accurate)
	MatchMethodNCC
)

// MatchConfig configures template matching
type MatchConfig struct {
	Method    MatchMethod
	Threshold float64 // 0.0-1.0, higher = more strict
	Grayscale bool    // Convert both images to grayscale before scoring
}

// DefaultMatchConfig returns the settings used for sprint icon detection:
// NCC on grayscale, matching the icon regardless of lighting shifts.
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		Method:    MatchMethodNCC,
		Threshold: 0.8,
		Grayscale: true,
	}
}

// Error types
var (
	ErrTemplateTooLarge = errors.New("template larger than search frame")
	ErrEmptyImage       = errors.New("image has zero area")
)

// MatchTemplate scores a reference template against a captured frame and
// returns the best-scoring position. The threshold comparison is inclusive:
// a score exactly equal to Threshold counts as found.
func MatchTemplate(frame, template *image.RGBA, config *MatchConfig) (*MatchResult, error) {
	if config == nil {
		config = DefaultMatchConfig()
	}

	if frame == nil || template == nil {
		return nil, ErrEmptyImage
	}

	frameBounds := frame.Bounds()
	tmplBounds := template.Bounds()

	if frameBounds.Dx() <= 0 || frameBounds.Dy() <= 0 ||
		tmplBounds.Dx() <= 0 || tmplBounds.Dy() <= 0 {
		return nil, ErrEmptyImage
	}

	if tmplBounds.Dx() > frameBounds.Dx() || tmplBounds.Dy() > frameBounds.Dy() {
		return nil, ErrTemplateTooLarge
	}

	if config.Grayscale {
		frame = ToGrayscale(frame)
		template = ToGrayscale(template)
	}

	tmplWidth := tmplBounds.Dx()
	tmplHeight := tmplBounds.Dy()

	bestScore := 0.0
	bestLocation := image.Point{}

	maxY := frameBounds.Max.Y - tmplHeight
	maxX := frameBounds.Max.X - tmplWidth

	for y := frameBounds.Min.Y; y <= maxY; y++ {
		for x := frameBounds.Min.X; x <= maxX; x++ {
			score := matchScoreAt(frame, template, x, y, config.Method)
			if score > bestScore {
				bestScore = score
				bestLocation = image.Point{X: x, Y: y}
			}
		}
	}

	return &MatchResult{
		Found:      bestScore >= config.Threshold,
		Location:   bestLocation,
		Confidence: bestScore,
	}, nil
}

// matchScoreAt computes similarity between the template and the frame region
// at (x, y), normalized to 0-1.
func matchScoreAt(frame, template *image.RGBA, x, y int, method MatchMethod) float64 {
	tmplBounds := template.Bounds()
	width := tmplBounds.Dx()
	height := tmplBounds.Dy()

	switch method {
	case MatchMethodSAD:
		return matchSAD(frame, template, x, y, width, height)
	case MatchMethodSSD:
		return matchSSD(frame, template, x, y, width, height)
	case MatchMethodNCC:
		return matchNCC(frame, template, x, y, width, height)
	default:
		return matchNCC(frame, template, x, y, width, height)
	}
}

// matchSAD - Sum of Absolute Differences (fastest, least accurate)
func matchSAD(frame, template *image.RGBA, x, y, width, height int) float64 {
	var sad uint64

	for ty := 0; ty < height; ty++ {
		for tx := 0; tx < width; tx++ {
			fIdx := (y+ty)*frame.Stride + (x+tx)*4
			tIdx := ty*template.Stride + tx*4

			sad += uint64(absInt(int(frame.Pix[fIdx]) - int(template.Pix[tIdx])))
			sad += uint64(absInt(int(frame.Pix[fIdx+1]) - int(template.Pix[tIdx+1])))
			sad += uint64(absInt(int(frame.Pix[fIdx+2]) - int(template.Pix[tIdx+2])))
		}
	}

	maxSAD := float64(width * height * 3 * 255)
	return 1.0 - (float64(sad) / maxSAD)
}

// matchSSD - Sum of Squared Differences (balanced)
func matchSSD(frame, template *image.RGBA, x, y, width, height int) float64 {
	var ssd uint64

	for ty := 0; ty < height; ty++ {
		for tx := 0; tx < width; tx++ {
			fIdx := (y+ty)*frame.Stride + (x+tx)*4
			tIdx := ty*template.Stride + tx*4

			dr := int(frame.Pix[fIdx]) - int(template.Pix[tIdx])
			dg := int(frame.Pix[fIdx+1]) - int(template.Pix[tIdx+1])
			db := int(frame.Pix[fIdx+2]) - int(template.Pix[tIdx+2])

			ssd += uint64(dr*dr + dg*dg + db*db)
		}
	}

	maxSSD := float64(width * height * 3 * 255 * 255)
	return 1.0 - (float64(ssd) / maxSSD)
}

// matchNCC - Normalized Cross-Correlation (slowest, most accurate).
// The correlation coefficient (-1..1) is mapped to 0..1.
func matchNCC(frame, template *image.RGBA, x, y, width, height int) float64 {
	var sumF, sumT, sumFT, sumFF, sumTT float64
	pixelCount := float64(width * height * 3)

	for ty := 0; ty < height; ty++ {
		for tx := 0; tx < width; tx++ {
			fIdx := (y+ty)*frame.Stride + (x+tx)*4
			tIdx := ty*template.Stride + tx*4

			for c := 0; c < 3; c++ {
				f := float64(frame.Pix[fIdx+c])
				t := float64(template.Pix[tIdx+c])

				sumF += f
				sumT += t
				sumFT += f * t
				sumFF += f * f
				sumTT += t * t
			}
		}
	}

	numerator := sumFT - (sumF * sumT / pixelCount)
	denomF := math.Sqrt(sumFF - (sumF * sumF / pixelCount))
	denomT := math.Sqrt(sumTT - (sumT * sumT / pixelCount))

	if denomF == 0 || denomT == 0 {
		return 0
	}

	correlation := numerator / (denomF * denomT)
	return (correlation + 1.0) / 2.0
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
