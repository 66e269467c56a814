// Package pipeline turns an input photo into a redacted photo.
//
// Process runs these stages, in order:
//
//	Preprocessing        decode, and build a model input for every detector
//	Detecting            run all detectors concurrently, under a timeout
//	Compositing          mask every detected region in a single pass
//	Watermarking         optional text watermark, forced for anonymous requests
//	ThumbnailGeneration  encode the result, and a thumbnail of it
//
// A detector that fails or times out is treated as having found nothing. A failure in any
// other stage fails the whole request, and the caller gets back the original bytes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/redact/pkg/imgx"
	"github.com/cyclopcam/redact/pkg/kibi"
	"github.com/cyclopcam/redact/pkg/logx"
	"github.com/cyclopcam/redact/pkg/mask"
	"github.com/cyclopcam/redact/pkg/metrics"
	"github.com/cyclopcam/redact/pkg/nn"
	"github.com/cyclopcam/redact/pkg/perfstats"
	"github.com/cyclopcam/redact/pkg/watermark"
	"golang.org/x/sync/errgroup"
)

// Request is one image to process
type Request struct {
	Image     []byte
	Logo      []byte              // Optional logo that is placed over plates
	Mask      *mask.Settings      // If nil, Options.Mask is used
	Watermark *watermark.Settings // If nil, or Text is empty, no watermark is drawn
	Anonymous bool                // Anonymous requests always get Options.AnonymousWatermark
}

// ProcessingResult is always returned by Process.
// If Error is not nil, then ProcessedImage holds the original input bytes, and Thumbnail is nil.
type ProcessingResult struct {
	ProcessedImage []byte
	Thumbnail      []byte
	DetectedPlates int
	DetectedFaces  int
	Error          error
}

// Compositor masks detected regions (implemented by mask.Compositor)
type Compositor interface {
	Apply(img *image.NRGBA, dets []nn.Detection, settings mask.Settings, logo image.Image) (*image.NRGBA, int, error)
}

// Watermarker draws a watermark (implemented by watermark.Renderer)
type Watermarker interface {
	Render(img image.Image, settings watermark.Settings) (*image.NRGBA, error)
}

type Options struct {
	DetectionTimeout   time.Duration      // Detectors that have not finished by now are treated as having found nothing
	MaxImageBytes      int64              // Larger inputs are rejected as invalid (0 = no limit)
	ThumbnailWidth     int                // Thumbnail canvas size
	ThumbnailHeight    int                // Thumbnail canvas size
	Mask               mask.Settings      // Used when a request has no mask settings
	AnonymousWatermark watermark.Settings // Forced on anonymous requests
	Codec              imgx.Codec

	Compositor  Compositor  // If nil, a mask.Compositor is created
	Watermarker Watermarker // If nil, a watermark.Renderer is created
	OnStage     func(Stage) // Called on every stage transition (may be nil)
}

func DefaultOptions() Options {
	wm := watermark.DefaultSettings()
	wm.Text = "Sign up to remove watermark"
	wm.Position = imgx.PositionCenter
	return Options{
		DetectionTimeout:   30 * time.Second,
		ThumbnailWidth:     320,
		ThumbnailHeight:    240,
		Mask:               mask.DefaultSettings(),
		AnonymousWatermark: wm,
	}
}

// Pipeline is safe to use from multiple goroutines. The detectors are shared between requests.
type Pipeline struct {
	log       logs.Log
	detectors []nn.Detector
	options   Options
	stats     perfstats.Recorder
}

func New(log logs.Log, options Options, detectors ...nn.Detector) *Pipeline {
	if options.Compositor == nil {
		options.Compositor = mask.NewCompositor(log)
	}
	if options.Watermarker == nil {
		options.Watermarker = watermark.NewRenderer(log)
	}
	if options.DetectionTimeout <= 0 {
		options.DetectionTimeout = DefaultOptions().DetectionTimeout
	}
	if options.ThumbnailWidth <= 0 || options.ThumbnailHeight <= 0 {
		options.ThumbnailWidth = DefaultOptions().ThumbnailWidth
		options.ThumbnailHeight = DefaultOptions().ThumbnailHeight
	}
	return &Pipeline{
		log:       logx.ForComponent(log, "Pipeline"),
		detectors: detectors,
		options:   options,
	}
}

// Stats returns the time spent in each stage, over all requests so far
func (p *Pipeline) Stats() []perfstats.Summary {
	return p.stats.Summaries()
}

// Process redacts one image. It never panics, and it always returns a result.
func (p *Pipeline) Process(ctx context.Context, req Request) (result ProcessingResult) {
	stage := StageIdle
	stageStart := time.Now()
	enter := func(next Stage) {
		now := time.Now()
		if stage != StageIdle {
			elapsed := now.Sub(stageStart)
			p.stats.Add(stage.String(), elapsed)
			metrics.RecordStage(stage.String(), elapsed)
		}
		stage = next
		stageStart = now
		if p.options.OnStage != nil {
			p.options.OnStage(next)
		}
	}
	fail := func(err error) ProcessingResult {
		failed := stage
		p.log.Errorf("Failed during %v: %v", failed, err)
		enter(StageFailed)
		if errors.Is(err, imgx.ErrInvalidImage) {
			metrics.RecordRequest("invalid")
		} else {
			metrics.RecordRequest("failed")
		}
		return ProcessingResult{
			ProcessedImage: req.Image,
			Error:          &StageError{Stage: failed, Err: err},
		}
	}

	var inputs []*nn.Input
	defer func() {
		for _, in := range inputs {
			in.Release()
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			result = fail(fmt.Errorf("Panic: %v", r))
		}
	}()

	// Preprocessing
	enter(StagePreprocessing)
	if p.options.MaxImageBytes > 0 && int64(len(req.Image)) > p.options.MaxImageBytes {
		return fail(&imgx.InvalidImageError{Reason: fmt.Sprintf("%v is larger than the limit of %v",
			kibi.FormatBytes(int64(len(req.Image))), kibi.FormatBytes(p.options.MaxImageBytes))})
	}
	img, format, err := imgx.Decode(req.Image)
	if err != nil {
		return fail(err)
	}
	maskSettings := p.options.Mask
	if req.Mask != nil {
		maskSettings = *req.Mask
	}
	var logo image.Image
	if len(req.Logo) != 0 {
		if decoded, _, err := imgx.Decode(req.Logo); err != nil {
			p.log.Warnf("Ignoring logo: %v", err)
		} else {
			logo = decoded
		}
	}
	for _, d := range p.detectors {
		in, err := d.Preprocess(img)
		if err != nil {
			return fail(fmt.Errorf("Failed to preprocess for %v detector: %w", d.Kind(), err))
		}
		inputs = append(inputs, in)
	}

	// Detecting
	enter(StageDetecting)
	dets := p.detect(ctx, inputs)
	for _, in := range inputs {
		in.Release()
	}
	result.DetectedPlates = nn.CountKind(dets, nn.KindPlate)
	result.DetectedFaces = nn.CountKind(dets, nn.KindFace)

	// Compositing
	enter(StageCompositing)
	out, nLayers, err := p.options.Compositor.Apply(img, dets, maskSettings, logo)
	if err != nil {
		return fail(err)
	}
	p.log.Debugf("Composited %v layers for %v plates and %v faces", nLayers, result.DetectedPlates, result.DetectedFaces)

	// Watermarking
	if wm := p.watermarkFor(req); wm != nil {
		enter(StageWatermarking)
		if out, err = p.options.Watermarker.Render(out, *wm); err != nil {
			return fail(err)
		}
	}

	// ThumbnailGeneration
	enter(StageThumbnailGeneration)
	processed, err := p.options.Codec.Encode(out, format)
	if err != nil {
		return fail(err)
	}
	thumb := imgx.Thumbnail(out, p.options.ThumbnailWidth, p.options.ThumbnailHeight)
	thumbnail, err := p.options.Codec.Encode(thumb, imgx.FormatPNG)
	if err != nil {
		return fail(err)
	}

	enter(StageDone)
	metrics.RecordRequest("ok")
	result.ProcessedImage = processed
	result.Thumbnail = thumbnail
	return result
}

// watermarkFor returns the watermark to draw, or nil if the request gets no watermark
func (p *Pipeline) watermarkFor(req Request) *watermark.Settings {
	if req.Anonymous {
		if p.options.AnonymousWatermark.Text == "" {
			return nil
		}
		wm := p.options.AnonymousWatermark
		return &wm
	}
	if req.Watermark == nil || req.Watermark.Text == "" {
		return nil
	}
	return req.Watermark
}

// detect runs every detector concurrently, and returns the union of their detections, plates first.
// A detector that fails, panics, or runs past the detection timeout contributes nothing.
func (p *Pipeline) detect(ctx context.Context, inputs []*nn.Input) []nn.Detection {
	ctx, cancel := context.WithTimeout(ctx, p.options.DetectionTimeout)
	defer cancel()

	results := make([]nn.Result, len(p.detectors))
	g := errgroup.Group{}
	for i, d := range p.detectors {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = nn.Result{Kind: d.Kind(), Err: fmt.Errorf("Detector panic: %v", r)}
				}
			}()
			results[i] = d.Detect(ctx, inputs[i])
			return nil
		})
	}
	g.Wait()

	all := []nn.Detection{}
	for _, r := range results {
		if r.Err != nil {
			p.log.Warnf("%v detector failed, continuing without it: %v", r.Kind, r.Err)
			metrics.RecordDetectorFailure(r.Kind.String())
			continue
		}
		metrics.RecordDetections(r.Kind.String(), len(r.Detections))
		all = append(all, r.Detections...)
	}
	nn.SortByKind(all)
	return all
}
