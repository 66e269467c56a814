package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/redact/pkg/config"
	"github.com/cyclopcam/redact/pkg/face"
	"github.com/cyclopcam/redact/pkg/imgx"
	"github.com/cyclopcam/redact/pkg/iox"
	"github.com/cyclopcam/redact/pkg/logx"
	"github.com/cyclopcam/redact/pkg/mask"
	"github.com/cyclopcam/redact/pkg/modelstore"
	"github.com/cyclopcam/redact/pkg/nn"
	"github.com/cyclopcam/redact/pkg/nnload"
	"github.com/cyclopcam/redact/pkg/nnserve"
	"github.com/cyclopcam/redact/pkg/pipeline"
	"github.com/cyclopcam/redact/pkg/plate"
	"github.com/cyclopcam/redact/pkg/tflite"
	"github.com/cyclopcam/redact/pkg/turbojpeg"
	"github.com/cyclopcam/redact/pkg/watermark"
)

func check(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func main() {
	parser := argparse.NewParser("redact", "Hide license plates and faces in a photo")
	input := parser.String("i", "input", &argparse.Options{Help: "Input image file", Required: true})
	output := parser.String("o", "output", &argparse.Options{Help: "Output image file (default is <input>-redacted.<ext>)"})
	thumbnail := parser.String("t", "thumbnail", &argparse.Options{Help: "Write a PNG thumbnail to this file"})
	configFile := parser.String("c", "config", &argparse.Options{Help: "Configuration file (JSON or YAML)"})
	logo := parser.String("", "logo", &argparse.Options{Help: "Image to place over license plates"})
	maskType := parser.Selector("", "mask", []string{"blur", "solid"}, &argparse.Options{Help: "Mask type"})
	position := parser.Selector("", "position", []string{"center", "top-left", "top-right", "bottom-left", "bottom-right"}, &argparse.Options{Help: "Position of the logo inside each plate"})
	size := parser.Float("", "size", &argparse.Options{Help: "Logo size, as a percentage of the plate", Default: -1.0})
	opacity := parser.Float("", "opacity", &argparse.Options{Help: "Mask and logo opacity, 0..100", Default: -1.0})
	blurRadius := parser.Float("", "blur-radius", &argparse.Options{Help: "Blur radius, in pixels", Default: -1.0})
	blurOpacity := parser.Float("", "blur-opacity", &argparse.Options{Help: "Opacity of the blur, 0..1", Default: -1.0})
	watermarkText := parser.String("", "watermark", &argparse.Options{Help: "Watermark text"})
	anonymous := parser.Flag("", "anonymous", &argparse.Options{Help: "Apply the anonymous user watermark"})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logx.NewLog()
	check(err)
	defer logger.Close()

	cfg := config.Default()
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
		check(err)
	}

	settings := cfg.Mask
	if *maskType != "" {
		settings.MaskType = mask.MaskType(*maskType)
	}
	if *position != "" {
		settings.Position = imgx.Position(*position)
	}
	if *size >= 0 {
		settings.Size = *size
	}
	if *opacity >= 0 {
		settings.Opacity = *opacity
	}
	if *blurRadius >= 0 {
		settings.Blur.Radius = *blurRadius
	}
	if *blurOpacity >= 0 {
		settings.Blur.Opacity = *blurOpacity
	}
	check(settings.Validate())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p, closeModels, err := buildPipeline(logger, cfg)
	check(err)
	defer closeModels()

	req := pipeline.Request{
		Mask:      &settings,
		Anonymous: *anonymous,
	}
	req.Image, err = os.ReadFile(*input)
	check(err)
	if *logo != "" {
		req.Logo, err = os.ReadFile(*logo)
		check(err)
	}
	if *watermarkText != "" {
		wm := watermark.DefaultSettings()
		wm.Text = *watermarkText
		req.Watermark = &wm
	}

	result := p.Process(ctx, req)
	check(result.Error)

	outFile := *output
	if outFile == "" {
		ext := filepath.Ext(*input)
		if !strings.EqualFold(ext, ".jpg") && !strings.EqualFold(ext, ".jpeg") {
			ext = ".png"
		}
		outFile = strings.TrimSuffix(*input, filepath.Ext(*input)) + "-redacted" + ext
	}
	_, err = iox.WriteFileAtomic(outFile, bytes.NewReader(result.ProcessedImage))
	check(err)
	if *thumbnail != "" {
		_, err = iox.WriteFileAtomic(*thumbnail, bytes.NewReader(result.Thumbnail))
		check(err)
	}

	fmt.Printf("%v plates, %v faces -> %v\n", result.DetectedPlates, result.DetectedFaces, outFile)
	for _, s := range p.Stats() {
		logger.Debugf("%-14v %v", s.Name, s.Average)
	}
}

// buildPipeline creates the detectors and the pipeline that cfg describes.
// Models are loaded on first use.
func buildPipeline(log logs.Log, cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	var store modelstore.Storage
	if cfg.ModelStore != "" {
		var err error
		if store, err = modelstore.Open(log, cfg.ModelStore); err != nil {
			return nil, nil, err
		}
	}
	loader := &nnload.Loader{
		Log:      log,
		Store:    store,
		CacheDir: cfg.CacheDir,
		Openers: map[string]nnload.Opener{
			".tflite":           tflite.Opener(tflite.Config{NumThreads: cfg.TFLiteThreads}),
			nnload.RemoteScheme: nnserve.Opener(nnserve.Config{Timeout: cfg.DetectionTimeout()}),
		},
	}

	var handles []*nnload.Handle
	var detectors []nn.Detector
	if !cfg.Plates.Disabled {
		pc, err := cfg.PlateConfig()
		if err != nil {
			return nil, nil, err
		}
		h := loader.Handle(cfg.Plates.Model)
		handles = append(handles, h)
		detectors = append(detectors, plate.NewDetector(log, h, pc))
	}
	if !cfg.Faces.Disabled {
		fc, err := cfg.FaceConfig()
		if err != nil {
			return nil, nil, err
		}
		h := loader.Handle(cfg.Faces.Model)
		handles = append(handles, h)
		detectors = append(detectors, face.NewDetector(log, h, fc))
	}

	options := pipeline.DefaultOptions()
	options.DetectionTimeout = cfg.DetectionTimeout()
	options.MaxImageBytes = int64(cfg.MaxImageSize)
	options.ThumbnailWidth = cfg.Thumbnail.Width
	options.ThumbnailHeight = cfg.Thumbnail.Height
	options.Mask = cfg.Mask
	options.AnonymousWatermark = cfg.AnonymousWatermark
	options.Codec.JPEGQuality = cfg.JPEGQuality
	if cfg.TurboJPEG {
		options.Codec.CompressJPEG = turbojpeg.Compress
	}

	closeModels := func() {
		for _, h := range handles {
			h.Close()
		}
	}
	return pipeline.New(log, options, detectors...), closeModels, nil
}
