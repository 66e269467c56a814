package imgx

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

type BlendMode int

const (
	BlendOver   BlendMode = iota // Standard alpha-over
	BlendDestIn                  // Keep the destination only where the layer is opaque
)

func (b BlendMode) String() string {
	switch b {
	case BlendOver:
		return "over"
	case BlendDestIn:
		return "dest-in"
	}
	return "unknown"
}

// Layer is one input to Composite
type Layer struct {
	Image image.Image
	Left  int
	Top   int
	Blend BlendMode
}

// Rect returns the destination rectangle of the layer
func (l Layer) Rect() image.Rectangle {
	b := l.Image.Bounds()
	return image.Rect(l.Left, l.Top, l.Left+b.Dx(), l.Top+b.Dy())
}

// Composite applies layers onto a copy of base, in order.
// For BlendDestIn, the layer is treated as transparent outside of its own rectangle, so only
// the part of the destination that the layer covers can survive.
func Composite(base image.Image, layers []Layer) *image.NRGBA {
	out := imaging.Clone(base)
	for _, layer := range layers {
		r := layer.Rect()
		sp := layer.Image.Bounds().Min
		switch layer.Blend {
		case BlendDestIn:
			next := image.NewNRGBA(out.Bounds())
			draw.DrawMask(next, r, out, r.Min, layer.Image, sp, draw.Src)
			out = next
		default:
			draw.Draw(out, r, layer.Image, sp, draw.Over)
		}
	}
	return out
}

// ExtractRegion returns a copy of the pixels inside r.
// Fails with OutOfBoundsError if r is empty or not fully inside the image.
func ExtractRegion(img image.Image, r image.Rectangle) (*image.NRGBA, error) {
	if r.Empty() || !r.In(img.Bounds()) {
		return nil, &OutOfBoundsError{Region: r, Bounds: img.Bounds()}
	}
	return imaging.Crop(img, r), nil
}

// WithOpacity returns a copy of img with its alpha channel multiplied by opacity (0..1)
func WithOpacity(img image.Image, opacity float64) *image.NRGBA {
	opacity = max(0, min(1, opacity))
	if opacity == 1 {
		return imaging.Clone(img)
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.A = uint8(math.Round(float64(c.A) * opacity))
		return c
	})
}
