package nn

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/cyclopcam/redact/pkg/imgx"
)

// Normalization is the value range that a model expects for its input pixels.
// Models are trained with one or the other, and they are not interchangeable.
type Normalization int

const (
	NormalizeUnit      Normalization = iota // [0,1] = x / 255
	NormalizeSymmetric                      // [-1,1] = x / 127.5 - 1
)

func (n Normalization) String() string {
	switch n {
	case NormalizeUnit:
		return "unit"
	case NormalizeSymmetric:
		return "symmetric"
	}
	return fmt.Sprintf("Normalization(%d)", int(n))
}

func ParseNormalization(s string) (Normalization, error) {
	switch strings.ToLower(s) {
	case "unit", "0-1", "":
		return NormalizeUnit, nil
	case "symmetric", "-1-1":
		return NormalizeSymmetric, nil
	}
	return NormalizeUnit, fmt.Errorf("Unknown normalization '%v'", s)
}

func (n Normalization) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *Normalization) UnmarshalText(b []byte) error {
	v, err := ParseNormalization(string(b))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

type PreprocessParams struct {
	Size          int         // Model input is Size x Size
	Background    color.NRGBA // Letterbox padding color
	Normalization Normalization
}

// Preprocess letterboxes img into a [1,Size,Size,3] float32 tensor (NHWC).
func Preprocess(img image.Image, params PreprocessParams) (*Input, error) {
	if params.Size <= 0 {
		return nil, fmt.Errorf("Invalid model input size %v", params.Size)
	}
	b := img.Bounds()
	lb, err := imgx.ResizeLetterboxed(img, params.Size, params.Size, params.Background)
	if err != nil {
		return nil, err
	}

	n := params.Size * params.Size * 3
	data := getBuffer(n)
	pix := lb.Image.Pix
	stride := lb.Image.Stride
	i := 0
	for y := 0; y < params.Size; y++ {
		row := pix[y*stride : y*stride+params.Size*4]
		for x := 0; x < len(row); x += 4 {
			data[i] = normalize(row[x], params.Normalization)
			data[i+1] = normalize(row[x+1], params.Normalization)
			data[i+2] = normalize(row[x+2], params.Normalization)
			i += 3
		}
	}

	return &Input{
		Tensor: Tensor{
			Shape: []int{1, params.Size, params.Size, 3},
			Data:  data,
		},
		Transform: NewResizeTransform(b.Dx(), b.Dy(), lb.ContentWidth, lb.ContentHeight, lb.OffsetX, lb.OffsetY),
	}, nil
}

func normalize(v uint8, n Normalization) float32 {
	if n == NormalizeSymmetric {
		return float32(v)/127.5 - 1
	}
	return float32(v) / 255
}
