package nn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNMSBasic(t *testing.T) {
	boxes := []Box{
		{0, 0, 10, 10},
		{1, 1, 11, 11},   // heavy overlap with 0
		{50, 50, 60, 60}, // separate
		{0, 0, 10, 10},   // zero score
	}
	scores := []float32{0.8, 0.9, 0.7, 0}
	keep := NonMaxSuppression(boxes, scores, 0.3, 0)
	require.Equal(t, []int{1, 2}, keep)
}

func TestNMSTieBreak(t *testing.T) {
	// Identical boxes with identical scores: the first one wins, every time
	boxes := []Box{
		{0, 0, 10, 10},
		{0, 0, 10, 10},
		{0, 0, 10, 10},
	}
	scores := []float32{0.5, 0.5, 0.5}
	for i := 0; i < 20; i++ {
		require.Equal(t, []int{0}, NonMaxSuppression(boxes, scores, 0.3, 0))
	}
}

func TestNMSMaxKeep(t *testing.T) {
	boxes := []Box{}
	scores := []float32{}
	for i := 0; i < 10; i++ {
		x := float32(i * 20)
		boxes = append(boxes, Box{x, 0, x + 10, 10})
		scores = append(scores, float32(i+1)/10)
	}
	keep := NonMaxSuppression(boxes, scores, 0.3, 3)
	require.Equal(t, []int{9, 8, 7}, keep)
}

func TestNMSThresholdIsInclusive(t *testing.T) {
	// IoU of these boxes is exactly 1/3
	boxes := []Box{
		{0, 0, 10, 10},
		{5, 0, 15, 10},
	}
	scores := []float32{0.9, 0.8}
	require.Equal(t, []int{0}, NonMaxSuppression(boxes, scores, 1.0/3.0, 0))
	require.Equal(t, []int{0, 1}, NonMaxSuppression(boxes, scores, 0.34, 0))
}

func TestDetectionParamsSelect(t *testing.T) {
	p := DetectionParams{ProbabilityThreshold: 0.5, NmsIouThreshold: 0.3}
	boxes := []Box{{0, 0, 10, 10}, {20, 20, 30, 30}, {40, 40, 50, 50}}
	scores := []float32{0.5, 0.51, 0.9}
	keep := p.Select(boxes, scores)
	require.Equal(t, []int{2, 1}, keep)
	require.Equal(t, float32(0), scores[0])
}
