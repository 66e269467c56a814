package pipeline

import "fmt"

// Stage of a single Process call
type Stage int

const (
	StageIdle Stage = iota
	StagePreprocessing
	StageDetecting
	StageCompositing
	StageWatermarking
	StageThumbnailGeneration
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StagePreprocessing:
		return "preprocessing"
	case StageDetecting:
		return "detecting"
	case StageCompositing:
		return "compositing"
	case StageWatermarking:
		return "watermarking"
	case StageThumbnailGeneration:
		return "thumbnail"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// StageError is the error of a request that failed.
// Stage is the stage that was running when the failure happened.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("Pipeline failed during %v: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
