package nn

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// Engine runs a model
type Engine interface {
	// Run the model. Implementations must not retain inputs after returning.
	Run(ctx context.Context, inputs []Tensor) ([]Tensor, error)

	// Close releases the model (you MUST call this when finished, because it's often a C++ object underneath)
	Close()
}

// ModelSource hands out a loaded model, loading it first if necessary
type ModelSource interface {
	Model(ctx context.Context) (Engine, *ModelConfig, error)
}

// Detector finds one kind of sensitive region.
// Preprocess and Detect are separate so that a caller can preprocess for all detectors
// before running any of them.
type Detector interface {
	Kind() Kind
	Preprocess(img image.Image) (*Input, error)
	Detect(ctx context.Context, in *Input) Result
}

type serialEngine struct {
	lock   sync.Mutex
	engine Engine
}

// Serialize wraps an engine that is not reentrant, so that only one Run executes at a time
func Serialize(e Engine) Engine {
	return &serialEngine{engine: e}
}

func (s *serialEngine) Run(ctx context.Context, inputs []Tensor) ([]Tensor, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.engine.Run(ctx, inputs)
}

func (s *serialEngine) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.engine.Close()
}

// staticSource is a ModelSource for a model that is already loaded
type staticSource struct {
	engine Engine
	config *ModelConfig
}

func StaticModel(engine Engine, config *ModelConfig) ModelSource {
	return &staticSource{engine: engine, config: config}
}

func (s *staticSource) Model(ctx context.Context) (Engine, *ModelConfig, error) {
	return s.engine, s.config, nil
}

// RunInference runs the engine on in, but stops waiting when ctx is done.
// If we stop waiting, the input is abandoned, so that its buffer is not recycled while the engine
// may still be reading it.
func RunInference(ctx context.Context, engine Engine, in *Input) ([]Tensor, error) {
	type result struct {
		out []Tensor
		err error
	}
	done := make(chan result, 1)
	// The goroutine gets its own copy of the tensor, because Release clears in.Tensor
	inputs := []Tensor{in.Tensor}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("Inference panic: %v", r)}
			}
		}()
		out, err := engine.Run(ctx, inputs)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		in.Abandon()
		return nil, ctx.Err()
	}
}
