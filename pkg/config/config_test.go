package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cyclopcam/redact/pkg/face"
	"github.com/cyclopcam/redact/pkg/mask"
	"github.com/cyclopcam/redact/pkg/nn"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	require.Equal(t, 30*time.Second, c.DetectionTimeout())

	pc, err := c.PlateConfig()
	require.NoError(t, err)
	require.Equal(t, 640, pc.InputSize)
	require.Equal(t, color.NRGBA{0, 0, 0, 255}, pc.Background)
	require.Equal(t, nn.NormalizeUnit, pc.Normalization)

	fc, err := c.FaceConfig()
	require.NoError(t, err)
	require.Equal(t, 416, fc.InputSize)
	require.Equal(t, color.NRGBA{255, 255, 255, 255}, fc.Background)
	require.Equal(t, nn.NormalizeSymmetric, fc.Normalization)
	require.Equal(t, 10, fc.MaxDetections)
}

func TestLoadJSON(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "redact.json")
	require.NoError(t, os.WriteFile(fn, []byte(`{
		"modelStore": "gs://my-models/redact",
		"plates": {"confidenceThreshold": 0.1},
		"faces": {"layout": "packed", "normalization": "unit"},
		"mask": {"maskType": "solid"},
		"maxImageSize": "20 MB"
	}`), 0644))
	c, err := Load(fn)
	require.NoError(t, err)
	require.Equal(t, "gs://my-models/redact", c.ModelStore)
	require.Equal(t, float32(0.1), c.Plates.ConfidenceThreshold)
	// Fields not in the file keep their defaults
	require.Equal(t, 640, c.Plates.InputSize)
	require.Equal(t, face.LayoutPacked, c.Faces.Layout)
	require.Equal(t, nn.NormalizeUnit, c.Faces.Normalization)
	require.Equal(t, mask.MaskSolid, c.Mask.MaskType)
	require.Equal(t, 30.0, c.Mask.Blur.Radius)
	require.EqualValues(t, 20*1024*1024, c.MaxImageSize)
}

func TestLoadJSONNumericSize(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "redact.json")
	require.NoError(t, os.WriteFile(fn, []byte(`{"maxImageSize": 52428800}`), 0644))
	c, err := Load(fn)
	require.NoError(t, err)
	require.EqualValues(t, 50*1024*1024, c.MaxImageSize)
}

func TestLoadYAML(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "redact.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(`
cacheDir: /var/cache/redact
faces:
  model: http://localhost:8501/faces
  maxDetections: 25
thumbnail:
  width: 160
  height: 120
anonymousWatermark:
  text: Preview
maxImageSize: 1000
`), 0644))
	c, err := Load(fn)
	require.NoError(t, err)
	require.Equal(t, "/var/cache/redact", c.CacheDir)
	require.Equal(t, "http://localhost:8501/faces", c.Faces.Model)
	require.Equal(t, 25, c.Faces.MaxDetections)
	require.Equal(t, 416, c.Faces.InputSize)
	require.Equal(t, 160, c.Thumbnail.Width)
	require.Equal(t, "Preview", c.AnonymousWatermark.Text)
	require.EqualValues(t, 1000, c.MaxImageSize)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(fn, []byte(`{"plates": {"background": "purple"}}`), 0644))
	_, err := Load(fn)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(fn, []byte(`{"faces": {"layout": "sideways"}}`), 0644))
	_, err = Load(fn)
	require.Error(t, err)

	for _, bad := range []string{
		`{"plates": {"nmsIouThreshold": 0}}`,
		`{"faces": {"nmsIouThreshold": -0.5}}`,
		`{"faces": {"nmsIouThreshold": 1.5}}`,
		`{"anonymousWatermark": {"color": "red"}}`,
	} {
		require.NoError(t, os.WriteFile(fn, []byte(bad), 0644))
		_, err = Load(fn)
		require.Error(t, err, bad)
	}

	require.NoError(t, os.WriteFile(fn, []byte(`{"plates": {"nmsIouThreshold": 1}}`), 0644))
	_, err = Load(fn)
	require.NoError(t, err)

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#fff")
	require.NoError(t, err)
	require.Equal(t, color.NRGBA{255, 255, 255, 255}, c)
	c, err = ParseHexColor("10203040")
	require.NoError(t, err)
	require.Equal(t, color.NRGBA{0x10, 0x20, 0x30, 0x40}, c)
	_, err = ParseHexColor("#12345")
	require.Error(t, err)
}
