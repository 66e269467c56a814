// Package imgx is our image codec layer.
// Every function here returns a newly allocated buffer, and never writes into an image
// that it was given. The rest of the pipeline relies on that, because detection,
// masking and watermarking all read from the original decoded image.
package imgx

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

type Format int

const (
	FormatJPEG Format = iota
	FormatPNG
)

const DefaultJPEGQuality = 90

// MaxPixels is the largest image that Decode accepts. A small compressed file can declare
// enormous dimensions, so this is checked from the header, before any pixels are decoded.
const MaxPixels = 100 * 1000 * 1000

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Codec encodes images.
// The zero value uses the pure Go encoders with DefaultJPEGQuality.
type Codec struct {
	JPEGQuality int

	// If not nil, CompressJPEG replaces the pure Go JPEG encoder (see the turbojpeg package)
	CompressJPEG func(img *image.NRGBA, quality int) ([]byte, error)
}

// Decode an image, applying any EXIF orientation.
// The returned format is the format that we will use when encoding the result. JPEG inputs
// stay JPEG, and everything else becomes PNG, so that transparency survives.
func Decode(b []byte) (*image.NRGBA, Format, error) {
	if len(b) == 0 {
		return nil, FormatPNG, &InvalidImageError{Reason: "empty buffer"}
	}
	cfg, name, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, FormatPNG, &InvalidImageError{Reason: "unrecognized header", Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, FormatPNG, &InvalidImageError{Reason: fmt.Sprintf("dimensions are %vx%v", cfg.Width, cfg.Height)}
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, FormatPNG, &InvalidImageError{Reason: fmt.Sprintf("%vx%v is more than %v megapixels", cfg.Width, cfg.Height, MaxPixels/1000000)}
	}
	img, err := imaging.Decode(bytes.NewReader(b), imaging.AutoOrientation(true))
	if err != nil {
		return nil, FormatPNG, &InvalidImageError{Reason: "decode failed", Err: err}
	}
	format := FormatPNG
	if name == "jpeg" {
		format = FormatJPEG
	}
	return imaging.Clone(img), format, nil
}

// Encode an image
func (c *Codec) Encode(img image.Image, format Format) ([]byte, error) {
	quality := c.JPEGQuality
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	if format == FormatJPEG && c.CompressJPEG != nil {
		b, err := c.CompressJPEG(imaging.Clone(img), quality)
		if err != nil {
			return nil, &EncodingError{Format: format, Err: err}
		}
		return b, nil
	}

	buf := bytes.Buffer{}
	var err error
	switch format {
	case FormatJPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	default:
		err = fmt.Errorf("Unsupported format")
	}
	if err != nil {
		return nil, &EncodingError{Format: format, Err: err}
	}
	return buf.Bytes(), nil
}

// Encode with a zero Codec
func Encode(img image.Image, format Format) ([]byte, error) {
	c := Codec{}
	return c.Encode(img, format)
}
