package nn

import (
	"sort"

	flatbush "github.com/bmharper/flatbush-go"
)

// NonMaxSuppression runs greedy NMS, and returns the indices of the boxes to keep, in descending order of score.
// Boxes with a score <= 0 are ignored. Boxes with equal scores are visited in input order, so the
// result is deterministic. A box is suppressed if its IoU with a kept box is >= iouThreshold.
// If maxKeep > 0, then at most maxKeep boxes are returned.
func NonMaxSuppression(boxes []Box, scores []float32, iouThreshold float32, maxKeep int) []int {
	order := make([]int, 0, len(boxes))
	for i := range boxes {
		if scores[i] > 0 {
			order = append(order, i)
		}
	}
	if len(order) == 0 {
		return nil
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	// Spatial index to avoid O(N^2) IoU comparisons
	fb := flatbush.NewFlatbush[float32]()
	fb.Reserve(len(boxes))
	for _, b := range boxes {
		fb.Add(b.X1, b.Y1, b.X2, b.Y2)
	}
	fb.Finish()

	suppressed := make([]bool, len(boxes))
	keep := []int{}
	nearby := []int{}
	for _, i := range order {
		if suppressed[i] {
			continue
		}
		keep = append(keep, i)
		if maxKeep > 0 && len(keep) >= maxKeep {
			break
		}
		b := boxes[i]
		nearby = fb.SearchFast(b.X1, b.Y1, b.X2, b.Y2, nearby[:0])
		for _, j := range nearby {
			if j == i || suppressed[j] {
				continue
			}
			if b.IOU(boxes[j]) >= iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return keep
}

// Select zeroes scores that do not exceed the probability threshold, and then runs NMS.
// scores is modified in place.
func (p DetectionParams) Select(boxes []Box, scores []float32) []int {
	for i := range scores {
		if !(scores[i] > p.ProbabilityThreshold) {
			scores[i] = 0
		}
	}
	return NonMaxSuppression(boxes, scores, p.NmsIouThreshold, p.MaxDetections)
}
