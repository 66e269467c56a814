// Package plate detects license plates with a single class, anchor free detection model (YOLO style).
//
// Input: [1,S,S,3] float32, RGB in [0,1], letterboxed onto black.
// Output: [1,N,5] or [1,5,N], where each candidate is (cx, cy, w, h, logit).
package plate

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/redact/pkg/logx"
	"github.com/cyclopcam/redact/pkg/nn"
)

type Config struct {
	nn.DetectionParams
	InputSize       int
	Background      color.NRGBA
	Normalization   nn.Normalization
	NormalizedBoxes bool // Box coordinates are in [0,1] instead of pixels
}

func DefaultConfig() Config {
	return Config{
		DetectionParams: nn.DetectionParams{
			ProbabilityThreshold: 0.5,
			NmsIouThreshold:      0.3,
			MaxDetections:        500,
		},
		InputSize:     640,
		Background:    color.NRGBA{0, 0, 0, 255},
		Normalization: nn.NormalizeUnit,
	}
}

type Detector struct {
	log    logs.Log
	models nn.ModelSource
	config Config
}

func NewDetector(log logs.Log, models nn.ModelSource, config Config) *Detector {
	return &Detector{
		log:    logx.ForComponent(log, "Plates"),
		models: models,
		config: config,
	}
}

func (d *Detector) Kind() nn.Kind {
	return nn.KindPlate
}

func (d *Detector) Config() Config {
	return d.config
}

func (d *Detector) Preprocess(img image.Image) (*nn.Input, error) {
	return nn.Preprocess(img, nn.PreprocessParams{
		Size:          d.config.InputSize,
		Background:    d.config.Background,
		Normalization: d.config.Normalization,
	})
}

// Infer runs the model. Any failure is a ModelUnavailableError.
func (d *Detector) Infer(ctx context.Context, in *nn.Input) ([]nn.Tensor, error) {
	engine, _, err := d.models.Model(ctx)
	if err != nil {
		return nil, &nn.ModelUnavailableError{Model: "plate", Err: err}
	}
	out, err := nn.RunInference(ctx, engine, in)
	if err != nil {
		return nil, &nn.ModelUnavailableError{Model: "plate", Err: err}
	}
	return out, nil
}

// Postprocess decodes raw model output into detections in original image space
func (d *Detector) Postprocess(out []nn.Tensor, transform nn.ResizeTransform) ([]nn.Detection, error) {
	boxes, scores, err := d.decode(out)
	if err != nil {
		return nil, err
	}
	keep := d.config.Select(boxes, scores)
	return transform.MapDetections(nn.KindPlate, boxes, scores, keep), nil
}

func (d *Detector) Detect(ctx context.Context, in *nn.Input) nn.Result {
	r := nn.Result{Kind: nn.KindPlate}
	out, err := d.Infer(ctx, in)
	if err != nil {
		r.Err = err
		return r
	}
	r.Detections, r.Err = d.Postprocess(out, in.Transform)
	if r.Err == nil {
		d.log.Debugf("Found %v", len(r.Detections))
	}
	return r
}

func (d *Detector) decode(out []nn.Tensor) ([]nn.Box, []float32, error) {
	if len(out) == 0 {
		return nil, nil, fmt.Errorf("Model produced no outputs")
	}
	t := out[0]
	if err := t.Validate(); err != nil {
		return nil, nil, err
	}
	shape := t.Squeezed()
	if len(shape) != 2 || (shape[0] != 5 && shape[1] != 5) {
		return nil, nil, fmt.Errorf("Unexpected plate output shape %v", t.Shape)
	}

	// Rows are candidates, unless the tensor is transposed (the ultralytics export layout)
	transposed := shape[1] != 5
	n := shape[0]
	if transposed {
		n = shape[1]
	}
	at := func(i, j int) float32 {
		if transposed {
			return t.Data[j*n+i]
		}
		return t.Data[i*5+j]
	}

	scale := float32(1)
	if d.config.NormalizedBoxes {
		scale = float32(d.config.InputSize)
	}
	boxes := make([]nn.Box, n)
	scores := make([]float32, n)
	for i := 0; i < n; i++ {
		boxes[i] = nn.CenterToCorner(at(i, 0)*scale, at(i, 1)*scale, at(i, 2)*scale, at(i, 3)*scale)
		scores[i] = nn.Sigmoid(at(i, 4))
	}
	return boxes, scores, nil
}
