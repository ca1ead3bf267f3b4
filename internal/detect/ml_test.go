package detect

import (
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func writeModel(t *testing.T, model mlModel) string {
	t.Helper()
	data, err := json.Marshal(model)
	if err != nil {
		t.Fatalf("failed to marshal model: %v", err)
	}
	path := filepath.Join(t.TempDir(), "sprint_classifier.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write model: %v", err)
	}
	return path
}

// biasOnlyModel builds a 2x2-input single-unit model whose output depends
// only on the bias, so tests control the probability directly.
func biasOnlyModel(bias float64) mlModel {
	weights := make([][]float64, 1)
	weights[0] = make([]float64, 2*2*3)
	return mlModel{
		InputWidth:  2,
		InputHeight: 2,
		Layers: []mlLayer{
			{Weights: weights, Biases: []float64{bias}, Activation: "sigmoid"},
		},
	}
}

func grayFrame(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	return img
}

func TestMLDetectorSigmoidOutput(t *testing.T) {
	tests := []struct {
		name        string
		bias        float64
		wantPresent bool
	}{
		{"confident present", 10, true},
		{"confident absent", -10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detector, err := NewMLDetector(writeModel(t, biasOnlyModel(tt.bias)), 0.7)
			if err != nil {
				t.Fatalf("NewMLDetector failed: %v", err)
			}

			result, err := detector.Detect(grayFrame(2))
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if result.Present != tt.wantPresent {
				t.Errorf("Present = %v (confidence %.3f), want %v", result.Present, result.Confidence, tt.wantPresent)
			}
			if result.Confidence < 0 || result.Confidence > 1 {
				t.Errorf("confidence %.3f outside 0-1", result.Confidence)
			}
		})
	}
}

func TestMLDetectorResizesFrame(t *testing.T) {
	detector, err := NewMLDetector(writeModel(t, biasOnlyModel(10)), 0.7)
	if err != nil {
		t.Fatalf("NewMLDetector failed: %v", err)
	}

	// Frame larger than the model input gets downscaled, not rejected.
	result, err := detector.Detect(grayFrame(64))
	if err != nil {
		t.Fatalf("Detect failed on oversized frame: %v", err)
	}
	if !result.Present {
		t.Errorf("expected present after resize, confidence %.3f", result.Confidence)
	}
}

func TestMLDetectorSoftmaxSecondOutputIsPresent(t *testing.T) {
	weights := [][]float64{
		make([]float64, 2*2*3),
		make([]float64, 2*2*3),
	}
	model := mlModel{
		InputWidth:  2,
		InputHeight: 2,
		Layers: []mlLayer{
			// Second unit biased high: softmax puts nearly all mass on
			// the icon-present class.
			{Weights: weights, Biases: []float64{0, 8}, Activation: "softmax"},
		},
	}

	detector, err := NewMLDetector(writeModel(t, model), 0.7)
	if err != nil {
		t.Fatalf("NewMLDetector failed: %v", err)
	}

	result, err := detector.Detect(grayFrame(2))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !result.Present {
		t.Errorf("expected present from second softmax output, confidence %.3f", result.Confidence)
	}
	if result.Confidence < 0.99 {
		t.Errorf("expected near-certain confidence, got %.3f", result.Confidence)
	}
}

func TestMLDetectorThresholdInclusive(t *testing.T) {
	// Zero bias sigmoid gives exactly 0.5.
	detector, err := NewMLDetector(writeModel(t, biasOnlyModel(0)), 0.5)
	if err != nil {
		t.Fatalf("NewMLDetector failed: %v", err)
	}

	result, err := detector.Detect(grayFrame(2))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !result.Present {
		t.Errorf("confidence equal to threshold should count as present (%.3f)", result.Confidence)
	}
}

func TestMLDetectorRejectsBadModels(t *testing.T) {
	tests := []struct {
		name  string
		model mlModel
	}{
		{"no layers", mlModel{InputWidth: 2, InputHeight: 2}},
		{"zero input size", mlModel{InputWidth: 0, InputHeight: 2, Layers: []mlLayer{{Weights: [][]float64{{1}}, Biases: []float64{0}}}}},
		{"wrong input count", mlModel{
			InputWidth: 2, InputHeight: 2,
			Layers: []mlLayer{{Weights: [][]float64{{1, 2}}, Biases: []float64{0}}},
		}},
		{"bias count mismatch", mlModel{
			InputWidth: 2, InputHeight: 2,
			Layers: []mlLayer{{Weights: [][]float64{make([]float64, 12)}, Biases: []float64{0, 0}}},
		}},
		{"three outputs", mlModel{
			InputWidth: 2, InputHeight: 2,
			Layers: []mlLayer{{
				Weights: [][]float64{make([]float64, 12), make([]float64, 12), make([]float64, 12)},
				Biases:  []float64{0, 0, 0},
			}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMLDetector(writeModel(t, tt.model), 0.7); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestMLDetectorMissingModelFile(t *testing.T) {
	if _, err := NewMLDetector(filepath.Join(t.TempDir(), "missing.json"), 0.7); err == nil {
		t.Error("expected error for missing model file")
	}
}

func TestMLDetectorNilFrame(t *testing.T) {
	detector, err := NewMLDetector(writeModel(t, biasOnlyModel(0)), 0.7)
	if err != nil {
		t.Fatalf("NewMLDetector failed: %v", err)
	}
	if _, err := detector.Detect(nil); err == nil {
		t.Error("expected error for nil frame")
	}
}
