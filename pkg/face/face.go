// Package face detects faces.
//
// Input: [1,S,S,3] float32, RGB in [-1,1], letterboxed onto white.
// The model output comes in one of two layouts, depending on how the graph was exported:
//
//	LayoutSplit:  boxes [1,N,4] as (x1,y1,x2,y2), and scores [1,N] or [1,N,1]
//	LayoutPacked: [1,N,5] as (x1,y1,x2,y2,score)
//
// Some runtimes hand back the same graph in either layout, so if the configured layout finds
// no faces, we run inference once more and decode with the other layout.
package face

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/redact/pkg/logx"
	"github.com/cyclopcam/redact/pkg/nn"
)

type Layout int

const (
	LayoutSplit Layout = iota
	LayoutPacked
)

func (l Layout) String() string {
	switch l {
	case LayoutSplit:
		return "split"
	case LayoutPacked:
		return "packed"
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

func (l Layout) other() Layout {
	if l == LayoutSplit {
		return LayoutPacked
	}
	return LayoutSplit
}

func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(s) {
	case "split", "":
		return LayoutSplit, nil
	case "packed":
		return LayoutPacked, nil
	}
	return LayoutSplit, fmt.Errorf("Unknown face output layout '%v'", s)
}

func (l Layout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Layout) UnmarshalText(b []byte) error {
	v, err := ParseLayout(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

type Config struct {
	nn.DetectionParams
	InputSize       int
	Background      color.NRGBA
	Normalization   nn.Normalization
	Layout          Layout
	NormalizedBoxes bool // Box coordinates are in [0,1] instead of pixels
	LogitScores     bool // Scores are logits, and need a sigmoid
}

func DefaultConfig() Config {
	return Config{
		DetectionParams: nn.DetectionParams{
			ProbabilityThreshold: 0.2,
			NmsIouThreshold:      0.3,
			MaxDetections:        10,
		},
		InputSize:     416,
		Background:    color.NRGBA{255, 255, 255, 255},
		Normalization: nn.NormalizeSymmetric,
		Layout:        LayoutSplit,
	}
}

type Detector struct {
	log    logs.Log
	models nn.ModelSource
	config Config
}

func NewDetector(log logs.Log, models nn.ModelSource, config Config) *Detector {
	return &Detector{
		log:    logx.ForComponent(log, "Faces"),
		models: models,
		config: config,
	}
}

func (d *Detector) Kind() nn.Kind {
	return nn.KindFace
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
		return nil, &nn.ModelUnavailableError{Model: "face", Err: err}
	}
	out, err := nn.RunInference(ctx, engine, in)
	if err != nil {
		return nil, &nn.ModelUnavailableError{Model: "face", Err: err}
	}
	return out, nil
}

// Postprocess decodes raw model output with the given layout into detections in original image space
func (d *Detector) Postprocess(out []nn.Tensor, layout Layout, transform nn.ResizeTransform) ([]nn.Detection, error) {
	var boxes []nn.Box
	var scores []float32
	var err error
	if layout == LayoutPacked {
		boxes, scores, err = d.decodePacked(out)
	} else {
		boxes, scores, err = d.decodeSplit(out)
	}
	if err != nil {
		return nil, err
	}
	if d.config.NormalizedBoxes {
		s := float32(d.config.InputSize)
		for i := range boxes {
			boxes[i] = nn.Box{X1: boxes[i].X1 * s, Y1: boxes[i].Y1 * s, X2: boxes[i].X2 * s, Y2: boxes[i].Y2 * s}
		}
	}
	if d.config.LogitScores {
		for i := range scores {
			scores[i] = nn.Sigmoid(scores[i])
		}
	}
	keep := d.config.Select(boxes, scores)
	return transform.MapDetections(nn.KindFace, boxes, scores, keep), nil
}

func (d *Detector) Detect(ctx context.Context, in *nn.Input) nn.Result {
	r := nn.Result{Kind: nn.KindFace}
	layout := d.config.Layout
	out, err := d.Infer(ctx, in)
	if err != nil {
		r.Err = err
		return r
	}
	dets, firstErr := d.Postprocess(out, layout, in.Transform)
	if firstErr == nil && len(dets) != 0 {
		r.Detections = dets
		return r
	}

	// Nothing found, so try once more with the other layout
	d.log.Debugf("No faces with %v layout (err: %v), retrying with %v", layout, firstErr, layout.other())
	out, err = d.Infer(ctx, in)
	if err != nil {
		r.Err = err
		return r
	}
	dets, err = d.Postprocess(out, layout.other(), in.Transform)
	if err != nil {
		if firstErr != nil {
			r.Err = firstErr
		}
		return r
	}
	r.Detections = dets
	return r
}

func (d *Detector) decodeSplit(out []nn.Tensor) ([]nn.Box, []float32, error) {
	if len(out) < 2 {
		return nil, nil, fmt.Errorf("Split layout needs 2 outputs, but model produced %v", len(out))
	}
	boxT, scoreT := out[0], out[1]
	if shape := boxT.Squeezed(); len(shape) != 2 || shape[1] != 4 {
		// Some exports list the scores first
		boxT, scoreT = scoreT, boxT
	}
	if err := boxT.Validate(); err != nil {
		return nil, nil, err
	}
	if err := scoreT.Validate(); err != nil {
		return nil, nil, err
	}
	shape := boxT.Squeezed()
	if len(shape) != 2 || shape[1] != 4 {
		return nil, nil, fmt.Errorf("Unexpected face box shape %v", boxT.Shape)
	}
	n := shape[0]
	if len(scoreT.Data) != n {
		return nil, nil, fmt.Errorf("Face scores shape %v does not match %v boxes", scoreT.Shape, n)
	}
	boxes := make([]nn.Box, n)
	scores := make([]float32, n)
	for i := 0; i < n; i++ {
		b := boxT.Data[i*4 : i*4+4]
		boxes[i] = nn.Box{X1: b[0], Y1: b[1], X2: b[2], Y2: b[3]}
		scores[i] = scoreT.Data[i]
	}
	return boxes, scores, nil
}

func (d *Detector) decodePacked(out []nn.Tensor) ([]nn.Box, []float32, error) {
	if len(out) == 0 {
		return nil, nil, fmt.Errorf("Model produced no outputs")
	}
	t := out[0]
	if err := t.Validate(); err != nil {
		return nil, nil, err
	}
	shape := t.Squeezed()
	if len(shape) != 2 || shape[1] != 5 {
		return nil, nil, fmt.Errorf("Unexpected packed face output shape %v", t.Shape)
	}
	n := shape[0]
	boxes := make([]nn.Box, n)
	scores := make([]float32, n)
	for i := 0; i < n; i++ {
		r := t.Data[i*5 : i*5+5]
		boxes[i] = nn.Box{X1: r[0], Y1: r[1], X2: r[2], Y2: r[3]}
		scores[i] = r[4]
	}
	return boxes, scores, nil
}
