// Package mask hides detected regions behind a blur, a solid fill, or a logo.
// Plates are masked with rectangles, and faces with the ellipse inscribed in their box.
package mask

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/redact/pkg/imgx"
	"github.com/cyclopcam/redact/pkg/logx"
	"github.com/cyclopcam/redact/pkg/nn"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

type Compositor struct {
	log logs.Log
}

func NewCompositor(log logs.Log) *Compositor {
	return &Compositor{
		log: logx.ForComponent(log, "Mask"),
	}
}

// Apply masks every detection in img, and returns the new image and the number of layers that were composited.
// img is not modified.
func (c *Compositor) Apply(img *image.NRGBA, dets []nn.Detection, settings Settings, logo image.Image) (*image.NRGBA, int, error) {
	layers, err := c.Layers(img, dets, settings, logo)
	if err != nil {
		return nil, 0, err
	}
	return imgx.Composite(img, layers), len(layers), nil
}

// Layers builds one layer per non-degenerate detection, plates first and then faces.
func (c *Compositor) Layers(img *image.NRGBA, dets []nn.Detection, settings Settings, logo image.Image) ([]imgx.Layer, error) {
	if err := settings.Validate(); err != nil {
		return nil, &CompositingError{Op: "settings", Err: err}
	}
	ordered := append([]nn.Detection(nil), dets...)
	nn.SortByKind(ordered)

	layers := make([]imgx.Layer, 0, len(ordered))
	for _, det := range ordered {
		if det.Degenerate() {
			continue
		}
		r := det.ImageRect().Intersect(img.Bounds())
		if r.Empty() {
			continue
		}
		if logo != nil && det.Kind == nn.KindPlate {
			layer, err := c.logoLayer(r, settings, logo)
			if err == nil {
				layers = append(layers, layer)
				continue
			}
			c.log.Warnf("%v. Falling back to %v", &CompositingError{Detection: det, Op: "logo", Err: err}, settings.MaskType)
		}
		layer, err := c.regionLayer(img, r, det.Kind, settings)
		if err != nil {
			return nil, &CompositingError{Detection: det, Op: string(settings.MaskType), Err: err}
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

func (c *Compositor) regionLayer(img *image.NRGBA, r image.Rectangle, kind nn.Kind, settings Settings) (imgx.Layer, error) {
	var content *image.NRGBA
	switch settings.MaskType {
	case MaskSolid:
		content = solidFill(r.Dx(), r.Dy(), settings.Color, kind == nn.KindFace)
		content = imgx.WithOpacity(content, float64(settings.SolidAlpha())/255)
	case MaskBlur:
		region, err := imgx.ExtractRegion(img, r)
		if err != nil {
			return imgx.Layer{}, err
		}
		blurred := imaging.Blur(region, settings.Blur.Radius)
		if kind == nn.KindFace {
			blurred = imgx.Composite(blurred, []imgx.Layer{{Image: ellipse(r.Dx(), r.Dy()), Blend: imgx.BlendDestIn}})
		}
		content = imgx.WithOpacity(blurred, settings.Blur.Opacity)
	default:
		return imgx.Layer{}, fmt.Errorf("Unknown mask type '%v'", settings.MaskType)
	}
	return imgx.Layer{Image: content, Left: r.Min.X, Top: r.Min.Y, Blend: imgx.BlendOver}, nil
}

// logoLayer scales the logo relative to the box, and places it on an opaque white backing
// so that nothing underneath shows through its transparent parts.
func (c *Compositor) logoLayer(box image.Rectangle, settings Settings, logo image.Image) (imgx.Layer, error) {
	if logo.Bounds().Empty() {
		return imgx.Layer{}, errors.New("Logo is empty")
	}
	w := int(float64(box.Dx())*settings.Size/100 + 0.5)
	h := int(float64(box.Dy())*settings.Size/100 + 0.5)
	if w <= 0 || h <= 0 {
		return imgx.Layer{}, fmt.Errorf("Logo size %vx%v is too small", w, h)
	}
	scaled := imaging.Resize(logo, w, h, imaging.Lanczos)
	backed := imaging.Overlay(imaging.New(w, h, color.White), scaled, image.Pt(0, 0), 1)
	backed = imgx.WithOpacity(backed, settings.Opacity/100)
	at := imgx.Anchor(settings.Position, box, w, h, 0)
	return imgx.Layer{Image: backed, Left: at.X, Top: at.Y, Blend: imgx.BlendOver}, nil
}

// Opaque black ellipse inscribed in a w x h rectangle, on a transparent background
func ellipse(w, h int) image.Image {
	dc := gg.NewContext(w, h)
	dc.DrawEllipse(float64(w)/2, float64(h)/2, float64(w)/2, float64(h)/2)
	dc.SetRGB(0, 0, 0)
	dc.Fill()
	return dc.Image()
}

func solidFill(w, h int, hexColor string, elliptical bool) *image.NRGBA {
	dc := gg.NewContext(w, h)
	dc.SetHexColor(hexColor)
	if elliptical {
		dc.DrawEllipse(float64(w)/2, float64(h)/2, float64(w)/2, float64(h)/2)
	} else {
		dc.DrawRectangle(0, 0, float64(w), float64(h))
	}
	dc.Fill()
	return imaging.Clone(dc.Image())
}
