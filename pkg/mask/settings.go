package mask

import (
	"fmt"

	"github.com/cyclopcam/redact/pkg/imgx"
)

type MaskType string

const (
	MaskBlur  MaskType = "blur"
	MaskSolid MaskType = "solid"
)

type BlurSettings struct {
	Radius  float64 `json:"radius" yaml:"radius"`   // Gaussian sigma, in pixels
	Opacity float64 `json:"opacity" yaml:"opacity"` // Alpha of the blurred region, 0..1
}

// Settings control how each detected region is masked
type Settings struct {
	MaskType MaskType      `json:"maskType" yaml:"maskType"`
	Position imgx.Position `json:"position" yaml:"position"` // Logo anchor inside the box
	Size     float64       `json:"size" yaml:"size"`         // Logo size, as a percentage of the box
	Opacity  float64       `json:"opacity" yaml:"opacity"`   // 0..100, applied to solid masks and logos
	Color    string        `json:"color" yaml:"color"`       // Solid mask color, eg "#000000"
	Blur     BlurSettings  `json:"blur" yaml:"blur"`
}

func DefaultSettings() Settings {
	return Settings{
		MaskType: MaskBlur,
		Position: imgx.PositionCenter,
		Size:     100,
		Opacity:  100,
		Color:    "#000000",
		Blur: BlurSettings{
			Radius:  30,
			Opacity: 1,
		},
	}
}

func (s *Settings) Validate() error {
	switch s.MaskType {
	case MaskBlur, MaskSolid:
	default:
		return fmt.Errorf("Unknown mask type '%v'", s.MaskType)
	}
	if _, err := imgx.ParsePosition(string(s.Position)); err != nil {
		return err
	}
	if s.Size <= 0 {
		return fmt.Errorf("Mask size must be positive, not %v", s.Size)
	}
	if s.Opacity < 0 || s.Opacity > 100 {
		return fmt.Errorf("Mask opacity must be between 0 and 100, not %v", s.Opacity)
	}
	if err := imgx.ValidateHexColor(s.Color); err != nil {
		return fmt.Errorf("Mask color: %w", err)
	}
	if s.Blur.Radius < 0 {
		return fmt.Errorf("Blur radius must not be negative")
	}
	if s.Blur.Opacity < 0 || s.Blur.Opacity > 1 {
		return fmt.Errorf("Blur opacity must be between 0 and 1, not %v", s.Blur.Opacity)
	}
	return nil
}

// SolidAlpha is the alpha value of a solid mask
func (s *Settings) SolidAlpha() uint8 {
	return uint8(max(0, min(255, int(s.Opacity/100*255+0.5))))
}
