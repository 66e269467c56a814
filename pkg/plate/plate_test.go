package plate

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/chewxy/math32"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/redact/pkg/nn"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	out []nn.Tensor
	err error
}

func (f *fakeEngine) Run(ctx context.Context, inputs []nn.Tensor) ([]nn.Tensor, error) {
	return f.out, f.err
}

func (f *fakeEngine) Close() {}

type failingSource struct{}

func (failingSource) Model(ctx context.Context) (nn.Engine, *nn.ModelConfig, error) {
	return nil, nil, errors.New("weights not found")
}

func logit(p float32) float32 {
	return math32.Log(p / (1 - p))
}

// rows of (cx, cy, w, h, probability)
func rowsTensor(rows [][5]float32) nn.Tensor {
	t := nn.NewTensor(1, len(rows), 5)
	for i, r := range rows {
		copy(t.Data[i*5:], []float32{r[0], r[1], r[2], r[3], logit(r[4])})
	}
	return t
}

func transposed(t nn.Tensor) nn.Tensor {
	n := t.Shape[1]
	o := nn.NewTensor(1, 5, n)
	for i := 0; i < n; i++ {
		for j := 0; j < 5; j++ {
			o.Data[j*n+i] = t.Data[i*5+j]
		}
	}
	return o
}

func detect(t *testing.T, engine nn.Engine, config Config) nn.Result {
	d := NewDetector(logs.NewTestingLog(t), nn.StaticModel(engine, nil), config)
	img := imaging.New(1024, 768, color.NRGBA{128, 128, 128, 255})
	in, err := d.Preprocess(img)
	require.NoError(t, err)
	defer in.Release()
	return d.Detect(context.Background(), in)
}

func TestPlateDetect(t *testing.T) {
	out := rowsTensor([][5]float32{
		{320, 320, 64, 32, 0.95}, // plate at image center
		{322, 321, 64, 32, 0.90}, // duplicate, suppressed
		{100, 200, 40, 20, 0.40}, // below threshold
		{20, 20, 30, 20, 0.99},   // entirely in the letterbox padding
	})
	for _, tensor := range []nn.Tensor{out, transposed(out)} {
		r := detect(t, &fakeEngine{out: []nn.Tensor{tensor}}, DefaultConfig())
		require.NoError(t, r.Err)
		require.Equal(t, nn.KindPlate, r.Kind)
		require.Len(t, r.Detections, 1)
		det := r.Detections[0]
		// model (288,304)-(352,336) -> original ((x)*1.6, (y-80)*1.6)
		require.Equal(t, nn.Detection{Kind: nn.KindPlate, X1: 461, Y1: 358, X2: 563, Y2: 410, Confidence: det.Confidence}, det)
		require.InDelta(t, 0.95, det.Confidence, 1e-4)
	}
}

func TestPlateNormalizedBoxes(t *testing.T) {
	out := rowsTensor([][5]float32{{0.5, 0.5, 0.1, 0.05, 0.9}})
	config := DefaultConfig()
	config.NormalizedBoxes = true
	r := detect(t, &fakeEngine{out: []nn.Tensor{out}}, config)
	require.NoError(t, r.Err)
	require.Len(t, r.Detections, 1)
	require.Equal(t, 461, r.Detections[0].X1)
}

func TestPlateDeterministic(t *testing.T) {
	rows := [][5]float32{}
	for i := 0; i < 50; i++ {
		x := float32(100 + (i%7)*10)
		rows = append(rows, [5]float32{x, 320, 60, 30, 0.8})
	}
	engine := &fakeEngine{out: []nn.Tensor{rowsTensor(rows)}}
	first := detect(t, engine, DefaultConfig())
	for i := 0; i < 5; i++ {
		require.Equal(t, first.Detections, detect(t, engine, DefaultConfig()).Detections)
	}
}

func TestPlateModelUnavailable(t *testing.T) {
	d := NewDetector(logs.NewTestingLog(t), failingSource{}, DefaultConfig())
	in, err := d.Preprocess(imaging.New(64, 64, color.Black))
	require.NoError(t, err)
	defer in.Release()
	r := d.Detect(context.Background(), in)
	require.ErrorIs(t, r.Err, nn.ErrModelUnavailable)
	require.Empty(t, r.Detections)

	r = detect(t, &fakeEngine{err: errors.New("delegate crashed")}, DefaultConfig())
	require.ErrorIs(t, r.Err, nn.ErrModelUnavailable)
}

func TestPlateBadShape(t *testing.T) {
	r := detect(t, &fakeEngine{out: []nn.Tensor{nn.NewTensor(1, 10, 6)}}, DefaultConfig())
	require.Error(t, r.Err)
	r = detect(t, &fakeEngine{out: nil}, DefaultConfig())
	require.Error(t, r.Err)
}
