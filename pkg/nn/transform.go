package nn

import (
	"github.com/chewxy/math32"
)

// ResizeTransform maps boxes between the letterboxed model input and the original image.
//
//	original = (model - padding) * scale
type ResizeTransform struct {
	OriginalWidth  int
	OriginalHeight int
	PaddingX       float32
	PaddingY       float32
	ScaleX         float32 // originalWidth / contentWidth
	ScaleY         float32 // originalHeight / contentHeight
}

// Create the transform for an image of size origW x origH that was resized to contentW x contentH,
// and placed at (padX, padY) inside the model input.
func NewResizeTransform(origW, origH, contentW, contentH, padX, padY int) ResizeTransform {
	return ResizeTransform{
		OriginalWidth:  origW,
		OriginalHeight: origH,
		PaddingX:       float32(padX),
		PaddingY:       float32(padY),
		ScaleX:         float32(origW) / float32(contentW),
		ScaleY:         float32(origH) / float32(contentH),
	}
}

// Map a model space box into original image space, clamped to the image.
// Returns false if the clamped box has no area.
func (t ResizeTransform) ToOriginal(b Box) (Detection, bool) {
	x1 := int(math32.Round((b.X1 - t.PaddingX) * t.ScaleX))
	y1 := int(math32.Round((b.Y1 - t.PaddingY) * t.ScaleY))
	x2 := int(math32.Round((b.X2 - t.PaddingX) * t.ScaleX))
	y2 := int(math32.Round((b.Y2 - t.PaddingY) * t.ScaleY))
	d := Detection{
		X1: clamp(x1, 0, t.OriginalWidth-1),
		Y1: clamp(y1, 0, t.OriginalHeight-1),
		X2: clamp(x2, 0, t.OriginalWidth),
		Y2: clamp(y2, 0, t.OriginalHeight),
	}
	return d, !d.Degenerate()
}

// Map an original image space detection into model space
func (t ResizeTransform) ToModel(d Detection) Box {
	return Box{
		X1: float32(d.X1)/t.ScaleX + t.PaddingX,
		Y1: float32(d.Y1)/t.ScaleY + t.PaddingY,
		X2: float32(d.X2)/t.ScaleX + t.PaddingX,
		Y2: float32(d.Y2)/t.ScaleY + t.PaddingY,
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// Map the boxes in keep into original image space, dropping any that are degenerate after clamping
func (t ResizeTransform) MapDetections(kind Kind, boxes []Box, scores []float32, keep []int) []Detection {
	dets := make([]Detection, 0, len(keep))
	for _, i := range keep {
		d, ok := t.ToOriginal(boxes[i])
		if !ok {
			continue
		}
		d.Kind = kind
		d.Confidence = scores[i]
		dets = append(dets, d)
	}
	return dets
}
