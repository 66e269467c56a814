package nn

import (
	"github.com/chewxy/math32"
)

// Box is a floating point rectangle in model (letterboxed tensor) space
type Box struct {
	X1 float32
	Y1 float32
	X2 float32
	Y2 float32
}

// Convert a center-form box into corner form
func CenterToCorner(cx, cy, w, h float32) Box {
	x1 := cx - w/2
	y1 := cy - h/2
	return Box{
		X1: x1,
		Y1: y1,
		X2: x1 + w,
		Y2: y1 + h,
	}
}

func (b Box) Width() float32 {
	return b.X2 - b.X1
}

func (b Box) Height() float32 {
	return b.Y2 - b.Y1
}

func (b Box) Area() float32 {
	return max(0, b.Width()) * max(0, b.Height())
}

// Intersection over Union
func (b Box) IOU(o Box) float32 {
	iw := min(b.X2, o.X2) - max(b.X1, o.X1)
	ih := min(b.Y2, o.Y2) - max(b.Y1, o.Y1)
	if iw <= 0 || ih <= 0 {
		return 0
	}
	intersection := iw * ih
	union := b.Area() + o.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

func Sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}
