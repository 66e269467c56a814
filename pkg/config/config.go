// Package config loads the redaction settings file (JSON or YAML)
package config

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cyclopcam/redact/pkg/face"
	"github.com/cyclopcam/redact/pkg/kibi"
	"github.com/cyclopcam/redact/pkg/mask"
	"github.com/cyclopcam/redact/pkg/nn"
	"github.com/cyclopcam/redact/pkg/plate"
	"github.com/cyclopcam/redact/pkg/watermark"
	"gopkg.in/yaml.v3"
)

// Detector is the configuration of one detection model
type Detector struct {
	Model               string           `json:"model" yaml:"model"`                             // Model file name inside the model store (eg "plates/yolov8n_640.tflite"), or an http(s) URL of a model server
	Disabled            bool             `json:"disabled" yaml:"disabled"`                       // Skip this detector entirely
	InputSize           int              `json:"inputSize" yaml:"inputSize"`                     // Model input is InputSize x InputSize
	ConfidenceThreshold float32          `json:"confidenceThreshold" yaml:"confidenceThreshold"` // Scores that do not exceed this are dropped
	NmsIouThreshold     float32          `json:"nmsIouThreshold" yaml:"nmsIouThreshold"`
	MaxDetections       int              `json:"maxDetections" yaml:"maxDetections"`
	Normalization       nn.Normalization `json:"normalization" yaml:"normalization"` // "unit" or "symmetric"
	Background          string           `json:"background" yaml:"background"`       // Letterbox padding color, eg "#000000"
	NormalizedBoxes     bool             `json:"normalizedBoxes" yaml:"normalizedBoxes"`
}

type FaceDetector struct {
	Detector    `yaml:",inline"`
	Layout      face.Layout `json:"layout" yaml:"layout"` // "split" or "packed"
	LogitScores bool        `json:"logitScores" yaml:"logitScores"`
}

type Thumbnail struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

type Config struct {
	ModelStore              string             `json:"modelStore" yaml:"modelStore"`                           // URI of the model store (directory, http(s)://, gs://, s3://)
	CacheDir                string             `json:"cacheDir" yaml:"cacheDir"`                               // Local directory where models are downloaded to
	TFLiteThreads           int                `json:"tfliteThreads" yaml:"tfliteThreads"`                     // 0 = number of CPUs
	Plates                  Detector           `json:"plates" yaml:"plates"`                                   // License plate detector
	Faces                   FaceDetector       `json:"faces" yaml:"faces"`                                     // Face detector
	DetectionTimeoutSeconds float64            `json:"detectionTimeoutSeconds" yaml:"detectionTimeoutSeconds"` // Detectors that take longer than this find nothing
	MaxImageSize            kibi.Size          `json:"maxImageSize" yaml:"maxImageSize"` // Larger inputs are rejected, eg "50 MB" (0 = no limit)
	JPEGQuality             int                `json:"jpegQuality" yaml:"jpegQuality"`
	TurboJPEG               bool               `json:"turboJPEG" yaml:"turboJPEG"` // Compress JPEG output with libjpeg-turbo
	Thumbnail               Thumbnail          `json:"thumbnail" yaml:"thumbnail"`
	Mask                    mask.Settings      `json:"mask" yaml:"mask"`                             // Default mask settings
	AnonymousWatermark      watermark.Settings `json:"anonymousWatermark" yaml:"anonymousWatermark"` // Forced on anonymous requests
}

func Default() *Config {
	pc := plate.DefaultConfig()
	fc := face.DefaultConfig()
	wm := watermark.DefaultSettings()
	wm.Text = "Sign up to remove watermark"
	wm.Position = "center"
	wm.Size = 6
	return &Config{
		ModelStore: "models",
		CacheDir:   filepath.Join(os.TempDir(), "redact-models"),
		Plates: Detector{
			Model:               "plates/plate_640.tflite",
			InputSize:           pc.InputSize,
			ConfidenceThreshold: pc.ProbabilityThreshold,
			NmsIouThreshold:     pc.NmsIouThreshold,
			MaxDetections:       pc.MaxDetections,
			Normalization:       pc.Normalization,
			Background:          "#000000",
		},
		Faces: FaceDetector{
			Detector: Detector{
				Model:               "faces/face_416.tflite",
				InputSize:           fc.InputSize,
				ConfidenceThreshold: fc.ProbabilityThreshold,
				NmsIouThreshold:     fc.NmsIouThreshold,
				MaxDetections:       fc.MaxDetections,
				Normalization:       fc.Normalization,
				Background:          "#ffffff",
			},
			Layout: fc.Layout,
		},
		DetectionTimeoutSeconds: 30,
		MaxImageSize:            50 * 1024 * 1024,
		JPEGQuality:             90,
		Thumbnail:               Thumbnail{Width: 320, Height: 240},
		Mask:                    mask.DefaultSettings(),
		AnonymousWatermark:      wm,
	}
}

// Load a config file on top of the defaults.
// Files ending in .yaml or .yml are parsed as YAML, and everything else as JSON.
func Load(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading %v: %w", filename, err)
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("Error loading as YAML %v: %w", filename, err)
		}
	default:
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("Error loading as JSON %v: %w", filename, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Invalid config %v: %w", filename, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Plates.InputSize <= 0 || c.Faces.InputSize <= 0 {
		return fmt.Errorf("Detector input size must be positive")
	}
	for name, d := range map[string]*Detector{"plates": &c.Plates, "faces": &c.Faces.Detector} {
		// NMS only compares overlapping boxes, so a threshold of 0 would not suppress anything
		if !(d.NmsIouThreshold > 0 && d.NmsIouThreshold <= 1) {
			return fmt.Errorf("%v.nmsIouThreshold must be in (0, 1], not %v", name, d.NmsIouThreshold)
		}
	}
	if _, err := ParseHexColor(c.Plates.Background); err != nil {
		return fmt.Errorf("plates.background: %w", err)
	}
	if _, err := ParseHexColor(c.Faces.Background); err != nil {
		return fmt.Errorf("faces.background: %w", err)
	}
	if c.Thumbnail.Width <= 0 || c.Thumbnail.Height <= 0 {
		return fmt.Errorf("Thumbnail size must be positive")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("JPEG quality must be between 1 and 100")
	}
	if err := c.Mask.Validate(); err != nil {
		return fmt.Errorf("mask: %w", err)
	}
	if c.AnonymousWatermark.Text != "" {
		if err := c.AnonymousWatermark.Validate(); err != nil {
			return fmt.Errorf("anonymousWatermark: %w", err)
		}
	}
	return nil
}

func (c *Config) DetectionTimeout() time.Duration {
	return time.Duration(c.DetectionTimeoutSeconds * float64(time.Second))
}

func (d *Detector) params() nn.DetectionParams {
	return nn.DetectionParams{
		ProbabilityThreshold: d.ConfidenceThreshold,
		NmsIouThreshold:      d.NmsIouThreshold,
		MaxDetections:        d.MaxDetections,
	}
}

func (c *Config) PlateConfig() (plate.Config, error) {
	bg, err := ParseHexColor(c.Plates.Background)
	if err != nil {
		return plate.Config{}, err
	}
	return plate.Config{
		DetectionParams: c.Plates.params(),
		InputSize:       c.Plates.InputSize,
		Background:      bg,
		Normalization:   c.Plates.Normalization,
		NormalizedBoxes: c.Plates.NormalizedBoxes,
	}, nil
}

func (c *Config) FaceConfig() (face.Config, error) {
	bg, err := ParseHexColor(c.Faces.Background)
	if err != nil {
		return face.Config{}, err
	}
	return face.Config{
		DetectionParams: c.Faces.params(),
		InputSize:       c.Faces.InputSize,
		Background:      bg,
		Normalization:   c.Faces.Normalization,
		Layout:          c.Faces.Layout,
		NormalizedBoxes: c.Faces.NormalizedBoxes,
		LogitScores:     c.Faces.LogitScores,
	}, nil
}

// ParseHexColor parses "#rgb", "#rrggbb", or "#rrggbbaa"
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("Invalid color '%v'", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("Invalid color '%v'", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
