package watermark

import (
	"image"
	"image/color"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/redact/pkg/imgx"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// Bounding box of pixels that differ between a and b
func changed(a, b *image.NRGBA) image.Rectangle {
	r := image.Rectangle{}
	for y := 0; y < a.Bounds().Dy(); y++ {
		for x := 0; x < a.Bounds().Dx(); x++ {
			if a.NRGBAAt(x, y) != b.NRGBAAt(x, y) {
				r = r.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return r
}

func render(t *testing.T, s Settings) (*image.NRGBA, *image.NRGBA) {
	r := NewRenderer(logs.NewTestingLog(t))
	img := imaging.New(400, 300, color.NRGBA{40, 80, 120, 255})
	out, err := r.Render(img, s)
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), out.Bounds())
	return img, out
}

func TestEmptyText(t *testing.T) {
	img, out := render(t, DefaultSettings())
	require.Equal(t, img.Pix, out.Pix)
}

func TestBottomRight(t *testing.T) {
	s := DefaultSettings()
	s.Text = "redacted"
	s.Opacity = 100
	img, out := render(t, s)
	r := changed(img, out)
	require.False(t, r.Empty())
	require.Greater(t, r.Min.X, 200)
	require.Greater(t, r.Min.Y, 200)
	require.LessOrEqual(t, r.Max.X, 400)
	// Source is untouched
	require.Equal(t, color.NRGBA{40, 80, 120, 255}, img.NRGBAAt(399, 299))
}

func TestTopLeft(t *testing.T) {
	s := DefaultSettings()
	s.Text = "redacted"
	s.Position = imgx.PositionTopLeft
	img, out := render(t, s)
	r := changed(img, out)
	require.False(t, r.Empty())
	require.Less(t, r.Max.X, 200)
	require.Less(t, r.Max.Y, 100)
	// margin is half the font size (15px * 0.5)
	require.GreaterOrEqual(t, r.Min.X, 5)
}

func TestCenterIsRotated(t *testing.T) {
	s := DefaultSettings()
	s.Text = "Sign up to remove watermark"
	s.Position = imgx.PositionCenter
	s.Size = 8
	img, out := render(t, s)
	r := changed(img, out)
	require.False(t, r.Empty())
	// Unrotated text would be about one line high. Rotated by 30 degrees it spans far more.
	lineHeight := FontSize(400, 300, 8) * 1.5
	require.Greater(t, float64(r.Dy()), 2*lineHeight)
	cx := (r.Min.X + r.Max.X) / 2
	cy := (r.Min.Y + r.Max.Y) / 2
	require.InDelta(t, 200, cx, 20)
	require.InDelta(t, 150, cy, 20)
}

func TestBadFont(t *testing.T) {
	r := NewRenderer(logs.NewTestingLog(t))
	s := DefaultSettings()
	s.Text = "x"
	s.Font = "/no/such/font.ttf"
	_, err := r.Render(imaging.New(10, 10, color.Black), s)
	require.Error(t, err)
}

func TestInvalidSettings(t *testing.T) {
	r := NewRenderer(logs.NewTestingLog(t))
	img := imaging.New(10, 10, color.Black)
	for _, mod := range []func(s *Settings){
		func(s *Settings) { s.Color = "white" },
		func(s *Settings) { s.Color = "#12345" },
		func(s *Settings) { s.Opacity = 150 },
		func(s *Settings) { s.Size = 0 },
		func(s *Settings) { s.Position = "middle" },
	} {
		s := DefaultSettings()
		s.Text = "x"
		mod(&s)
		require.Error(t, s.Validate())
		_, err := r.Render(img, s)
		require.Error(t, err)
	}
	s := DefaultSettings()
	s.Color = "#ABC"
	require.NoError(t, s.Validate())
}

func TestFontSize(t *testing.T) {
	require.Equal(t, 15.0, FontSize(400, 300, 5))
	require.Equal(t, 1.0, FontSize(10, 10, 1))
}
