package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransformToOriginal(t *testing.T) {
	// 1024x768 into 640: content is 640x480, padded 80 vertically
	tr := NewResizeTransform(1024, 768, 640, 480, 0, 80)
	d, ok := tr.ToOriginal(Box{320, 320, 384, 352})
	require.True(t, ok)
	require.Equal(t, 512, d.X1)
	require.Equal(t, 384, d.Y1)
	require.Equal(t, 614, d.X2)
	require.Equal(t, 435, d.Y2)

	// Clamped to the image
	d, ok = tr.ToOriginal(Box{-20, 60, 700, 700})
	require.True(t, ok)
	require.Equal(t, Detection{X1: 0, Y1: 0, X2: 1024, Y2: 768}, d)

	// Entirely inside the padding
	_, ok = tr.ToOriginal(Box{10, 0, 50, 40})
	require.False(t, ok)
}

func TestTransformRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sizes := [][2]int{{1024, 768}, {768, 1024}, {333, 4000}, {640, 640}, {17, 9}}
	for _, sz := range sizes {
		w, h := sz[0], sz[1]
		for _, S := range []int{416, 640} {
			in, err := Preprocess(solidImage(w, h), PreprocessParams{Size: S})
			require.NoError(t, err)
			tr := in.Transform
			in.Release()
			for i := 0; i < 200; i++ {
				x1 := rng.Intn(w - 1)
				y1 := rng.Intn(h - 1)
				orig := Detection{
					X1: x1,
					Y1: y1,
					X2: x1 + 1 + rng.Intn(w-x1-1+1),
					Y2: y1 + 1 + rng.Intn(h-y1-1+1),
				}
				orig.X2 = min(orig.X2, w)
				orig.Y2 = min(orig.Y2, h)
				back, ok := tr.ToOriginal(tr.ToModel(orig))
				require.True(t, ok)
				require.InDelta(t, orig.X1, back.X1, 1)
				require.InDelta(t, orig.Y1, back.Y1, 1)
				require.InDelta(t, orig.X2, back.X2, 1)
				require.InDelta(t, orig.Y2, back.Y2, 1)
			}
		}
	}
}

func TestMapDetections(t *testing.T) {
	tr := NewResizeTransform(100, 100, 100, 100, 0, 0)
	boxes := []Box{{10, 10, 20, 20}, {50, 50, 50, 60}}
	scores := []float32{0.9, 0.8}
	dets := tr.MapDetections(KindFace, boxes, scores, []int{0, 1})
	require.Len(t, dets, 1)
	require.Equal(t, Detection{Kind: KindFace, X1: 10, Y1: 10, X2: 20, Y2: 20, Confidence: 0.9}, dets[0])
}
