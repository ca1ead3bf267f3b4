package detect

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/gonum/mat"
)

// mlModel is the on-disk format for a trained icon classifier: a small
// fully-connected network saved as JSON by the training script.
type mlModel struct {
	InputWidth  int       `json:"input_width"`
	InputHeight int       `json:"input_height"`
	Layers      []mlLayer `json:"layers"`
}

type mlLayer struct {
	// Weights is row-major with one row per output unit.
	Weights    [][]float64 `json:"weights"`
	Biases     []float64   `json:"biases"`
	Activation string      `json:"activation"`
}

type denseLayer struct {
	weights    *mat.Dense
	biases     *mat.VecDense
	activation string
}

// MLDetector classifies frames with a learned model instead of template
// similarity. The frame is resized to the model's input resolution, RGB
// channels scaled to 0-1 in fixed order, and run through the dense layers.
type MLDetector struct {
	inputW    int
	inputH    int
	layers    []denseLayer
	threshold float64
	modelPath string
}

// NewMLDetector loads a JSON model from disk and validates its shape. The
// confidence threshold decides how sure the model must be before a frame
// counts as icon-present.
func NewMLDetector(modelPath string, threshold float64) (*MLDetector, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", modelPath, err)
	}

	var model mlModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", modelPath, err)
	}

	if model.InputWidth <= 0 || model.InputHeight <= 0 {
		return nil, fmt.Errorf("model %s: invalid input size %dx%d", modelPath, model.InputWidth, model.InputHeight)
	}
	if len(model.Layers) == 0 {
		return nil, fmt.Errorf("model %s: no layers", modelPath)
	}

	expectedInputs := model.InputWidth * model.InputHeight * 3
	layers := make([]denseLayer, 0, len(model.Layers))

	for i, def := range model.Layers {
		rows := len(def.Weights)
		if rows == 0 {
			return nil, fmt.Errorf("model %s: layer %d has no weights", modelPath, i)
		}
		cols := len(def.Weights[0])
		if cols != expectedInputs {
			return nil, fmt.Errorf("model %s: layer %d expects %d inputs, got %d", modelPath, i, cols, expectedInputs)
		}
		if len(def.Biases) != rows {
			return nil, fmt.Errorf("model %s: layer %d has %d biases for %d units", modelPath, i, len(def.Biases), rows)
		}

		flat := make([]float64, 0, rows*cols)
		for r, row := range def.Weights {
			if len(row) != cols {
				return nil, fmt.Errorf("model %s: layer %d row %d is ragged", modelPath, i, r)
			}
			flat = append(flat, row...)
		}

		layers = append(layers, denseLayer{
			weights:    mat.NewDense(rows, cols, flat),
			biases:     mat.NewVecDense(rows, append([]float64(nil), def.Biases...)),
			activation: def.Activation,
		})
		expectedInputs = rows
	}

	outputs := layers[len(layers)-1].weights.RawMatrix().Rows
	if outputs != 1 && outputs != 2 {
		return nil, fmt.Errorf("model %s: final layer must have 1 or 2 outputs, got %d", modelPath, outputs)
	}

	return &MLDetector{
		inputW:    model.InputWidth,
		inputH:    model.InputHeight,
		layers:    layers,
		threshold: threshold,
		modelPath: modelPath,
	}, nil
}

// Detect runs the classifier on one frame. The icon-present probability is
// the single sigmoid output, or the second softmax output for two-class
// models.
func (d *MLDetector) Detect(frame *image.RGBA) (Result, error) {
	if frame == nil || frame.Bounds().Dx() <= 0 || frame.Bounds().Dy() <= 0 {
		return Result{}, fmt.Errorf("empty frame")
	}

	v := mat.NewVecDense(d.inputW*d.inputH*3, d.flatten(frame))

	for i, layer := range d.layers {
		rows := layer.weights.RawMatrix().Rows
		out := mat.NewVecDense(rows, nil)
		out.MulVec(layer.weights, v)
		out.AddVec(out, layer.biases)

		last := i == len(d.layers)-1
		applyActivation(out, layer.activation, last)
		v = out
	}

	var prob float64
	if v.Len() == 1 {
		prob = v.AtVec(0)
	} else {
		prob = v.AtVec(1)
	}
	prob = clampConfidence(prob)

	return Result{
		Present:    prob >= d.threshold,
		Confidence: prob,
	}, nil
}

// Name identifies this method in logs and status displays.
func (d *MLDetector) Name() string {
	return "ml"
}

// Threshold returns the configured confidence threshold.
func (d *MLDetector) Threshold() float64 {
	return d.threshold
}

// flatten resizes the frame to the model resolution and emits RGB values
// scaled to 0-1, row-major, channels interleaved.
func (d *MLDetector) flatten(frame *image.RGBA) []float64 {
	resized := frame
	if frame.Bounds().Dx() != d.inputW || frame.Bounds().Dy() != d.inputH {
		resized = image.NewRGBA(image.Rect(0, 0, d.inputW, d.inputH))
		xdraw.ApproxBiLinear.Scale(resized, resized.Bounds(), frame, frame.Bounds(), xdraw.Src, nil)
	}

	out := make([]float64, 0, d.inputW*d.inputH*3)
	for y := 0; y < d.inputH; y++ {
		for x := 0; x < d.inputW; x++ {
			p := resized.RGBAAt(x, y)
			out = append(out, float64(p.R)/255, float64(p.G)/255, float64(p.B)/255)
		}
	}
	return out
}

func applyActivation(v *mat.VecDense, activation string, last bool) {
	switch activation {
	case "relu":
		for i := 0; i < v.Len(); i++ {
			if v.AtVec(i) < 0 {
				v.SetVec(i, 0)
			}
		}
	case "sigmoid":
		for i := 0; i < v.Len(); i++ {
			v.SetVec(i, 1/(1+math.Exp(-v.AtVec(i))))
		}
	case "tanh":
		for i := 0; i < v.Len(); i++ {
			v.SetVec(i, math.Tanh(v.AtVec(i)))
		}
	case "softmax":
		max := v.AtVec(0)
		for i := 1; i < v.Len(); i++ {
			if v.AtVec(i) > max {
				max = v.AtVec(i)
			}
		}
		var sum float64
		for i := 0; i < v.Len(); i++ {
			e := math.Exp(v.AtVec(i) - max)
			v.SetVec(i, e)
			sum += e
		}
		for i := 0; i < v.Len(); i++ {
			v.SetVec(i, v.AtVec(i)/sum)
		}
	default:
		// Linear output; single-unit final layers still need a
		// probability, so squash them.
		if last && v.Len() == 1 {
			v.SetVec(0, 1/(1+math.Exp(-v.AtVec(0))))
		}
	}
}
