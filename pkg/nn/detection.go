package nn

import (
	"fmt"
	"image"
	"sort"
)

// Kind is the type of sensitive region that a detector finds
type Kind int

const (
	KindPlate Kind = iota
	KindFace
)

func (k Kind) String() string {
	switch k {
	case KindPlate:
		return "plate"
	case KindFace:
		return "face"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Detection is a candidate sensitive region, in original image pixels.
// X2 and Y2 are exclusive.
type Detection struct {
	Kind       Kind    `json:"kind"`
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
	Confidence float32 `json:"confidence"`
}

func (d Detection) Width() int {
	return d.X2 - d.X1
}

func (d Detection) Height() int {
	return d.Y2 - d.Y1
}

// Degenerate is true if the box has no area
func (d Detection) Degenerate() bool {
	return d.X2 <= d.X1 || d.Y2 <= d.Y1
}

func (d Detection) ImageRect() image.Rectangle {
	return image.Rect(d.X1, d.Y1, d.X2, d.Y2)
}

func (d Detection) String() string {
	return fmt.Sprintf("%v [%v,%v - %v,%v] %.3f", d.Kind, d.X1, d.Y1, d.X2, d.Y2, d.Confidence)
}

// Result is the outcome of one detector on one image.
// If Err is not nil, then Detections is empty, and the caller decides whether that is fatal.
type Result struct {
	Kind       Kind
	Detections []Detection
	Err        error
}

// Sort detections so that all plates come before all faces.
// Order within a kind is preserved.
func SortByKind(dets []Detection) {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Kind < dets[j].Kind
	})
}

// Count the detections of the given kind
func CountKind(dets []Detection, kind Kind) int {
	n := 0
	for _, d := range dets {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
