// Package watermark draws a text watermark over an image.
package watermark

import (
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/redact/pkg/imgx"
	"github.com/cyclopcam/redact/pkg/logx"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Rotation of a centered watermark, in degrees
const CenterRotation = -30

type Settings struct {
	Text     string        `json:"text" yaml:"text"`
	Position imgx.Position `json:"position" yaml:"position"`
	Size     float64       `json:"size" yaml:"size"`       // Font size, as a percentage of min(width, height)
	Opacity  float64       `json:"opacity" yaml:"opacity"` // 0..100
	Color    string        `json:"color" yaml:"color"`     // eg "#ffffff"
	Font     string        `json:"font" yaml:"font"`       // "goregular", "gobold", "gomono", or the path to a TTF file
}

func DefaultSettings() Settings {
	return Settings{
		Position: imgx.PositionBottomRight,
		Size:     5,
		Opacity:  50,
		Color:    "#ffffff",
		Font:     "goregular",
	}
}

func (s *Settings) Validate() error {
	if _, err := imgx.ParsePosition(string(s.Position)); err != nil {
		return err
	}
	if s.Size <= 0 {
		return fmt.Errorf("Watermark size must be positive, not %v", s.Size)
	}
	if s.Opacity < 0 || s.Opacity > 100 {
		return fmt.Errorf("Watermark opacity must be between 0 and 100, not %v", s.Opacity)
	}
	if err := imgx.ValidateHexColor(s.Color); err != nil {
		return fmt.Errorf("Watermark color: %w", err)
	}
	return nil
}

var builtinFonts = map[string][]byte{
	"goregular": goregular.TTF,
	"gobold":    gobold.TTF,
	"gomono":    gomono.TTF,
}

type Renderer struct {
	log logs.Log

	fontLock sync.Mutex
	fonts    map[string]*truetype.Font
}

func NewRenderer(log logs.Log) *Renderer {
	return &Renderer{
		log:   logx.ForComponent(log, "Watermark"),
		fonts: map[string]*truetype.Font{},
	}
}

func (r *Renderer) font(name string) (*truetype.Font, error) {
	if name == "" {
		name = "goregular"
	}
	r.fontLock.Lock()
	defer r.fontLock.Unlock()
	if f, ok := r.fonts[name]; ok {
		return f, nil
	}
	raw, ok := builtinFonts[strings.ToLower(name)]
	if !ok {
		var err error
		raw, err = os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("Failed to load font '%v': %w", name, err)
		}
	}
	f, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("Failed to parse font '%v': %w", name, err)
	}
	r.fonts[name] = f
	return f, nil
}

// FontSize returns the font size in pixels for an image of the given size
func FontSize(width, height int, size float64) float64 {
	return max(1, float64(min(width, height))*size/100)
}

// Render returns a copy of img with the watermark drawn over it.
// If settings.Text is empty, the copy is returned without a watermark.
func (r *Renderer) Render(img image.Image, settings Settings) (*image.NRGBA, error) {
	if strings.TrimSpace(settings.Text) == "" {
		return imaging.Clone(img), nil
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	pos, _ := imgx.ParsePosition(string(settings.Position))
	f, err := r.font(settings.Font)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	fontSize := FontSize(b.Dx(), b.Dy(), settings.Size)
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: fontSize}))

	tw, th := dc.MeasureString(settings.Text)
	margin := int(fontSize / 2)
	at := imgx.Anchor(pos, image.Rect(0, 0, b.Dx(), b.Dy()), int(tw+0.5), int(th+0.5), margin)
	cx := float64(at.X) + tw/2
	cy := float64(at.Y) + th/2

	if pos == imgx.PositionCenter {
		dc.RotateAbout(gg.Radians(CenterRotation), cx, cy)
	}

	// Drop shadow
	shadow := max(1, fontSize/20)
	dc.SetRGBA(0, 0, 0, 0.5)
	dc.DrawStringAnchored(settings.Text, cx+shadow, cy+shadow, 0.5, 0.5)

	dc.SetHexColor(settings.Color)
	dc.DrawStringAnchored(settings.Text, cx, cy, 0.5, 0.5)

	layer := imgx.WithOpacity(dc.Image(), settings.Opacity/100)
	return imgx.Composite(img, []imgx.Layer{{Image: layer}}), nil
}
