// Package metrics provides Prometheus metrics for the redaction pipeline.
//
//   - redact_requests_total: Processed images by result (ok, failed, invalid)
//   - redact_stage_duration_seconds: Time spent in each pipeline stage
//   - redact_detections_total: Regions found, by kind (plate, face)
//   - redact_detector_failures_total: Detector runs that were downgraded to zero results
//   - redact_model_loads_total: Model load attempts by model and result
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts processed images
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redact_requests_total",
			Help: "Total number of processed images",
		},
		[]string{"result"},
	)

	// StageDuration tracks how long each pipeline stage takes
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redact_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// DetectionsTotal counts detected regions
	DetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redact_detections_total",
			Help: "Total number of detected regions",
		},
		[]string{"kind"},
	)

	// DetectorFailuresTotal counts detector runs that failed or timed out
	DetectorFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redact_detector_failures_total",
			Help: "Total number of detector failures",
		},
		[]string{"kind"},
	)

	// ModelLoadsTotal counts model load attempts
	ModelLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redact_model_loads_total",
			Help: "Total number of model load attempts",
		},
		[]string{"model", "result"},
	)
)

func successString(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordRequest records the outcome of one image
func RecordRequest(result string) {
	RequestsTotal.WithLabelValues(result).Inc()
}

// RecordStage records the duration of a pipeline stage
func RecordStage(stage string, duration time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordDetections records the number of regions found by a detector
func RecordDetections(kind string, count int) {
	DetectionsTotal.WithLabelValues(kind).Add(float64(count))
}

// RecordDetectorFailure records a detector run that produced no result
func RecordDetectorFailure(kind string) {
	DetectorFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordModelLoad records a model load attempt
func RecordModelLoad(model string, success bool) {
	ModelLoadsTotal.WithLabelValues(model, successString(success)).Inc()
}
