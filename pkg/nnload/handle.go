package nnload

import (
	"context"
	"fmt"
	"sync"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/redact/pkg/nn"
	"golang.org/x/sync/singleflight"
)

type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

type LoadFunc func(ctx context.Context) (nn.Engine, *nn.ModelConfig, error)

// Handle is a model that is loaded on first use.
// Concurrent callers share a single load. A successful load is kept until Close.
// A failed load is remembered, and the next call to Model tries again.
type Handle struct {
	name  string
	log   logs.Log
	load  LoadFunc
	group singleflight.Group

	lock    sync.Mutex
	state   State
	engine  nn.Engine
	config  *nn.ModelConfig
	lastErr error
}

func NewHandle(log logs.Log, name string, load LoadFunc) *Handle {
	return &Handle{
		name: name,
		log:  log,
		load: load,
	}
}

func (h *Handle) Name() string {
	return h.name
}

func (h *Handle) State() State {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.state
}

// Err returns the error of the most recent failed load
func (h *Handle) Err() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.lastErr
}

// Model returns the loaded model, loading it if necessary.
// If ctx is done before the load finishes, we return ctx.Err(), but the load continues for other callers.
func (h *Handle) Model(ctx context.Context) (nn.Engine, *nn.ModelConfig, error) {
	h.lock.Lock()
	if h.state == StateLoaded {
		engine, config := h.engine, h.config
		h.lock.Unlock()
		return engine, config, nil
	}
	h.lock.Unlock()

	ch := h.group.DoChan(h.name, func() (any, error) {
		h.lock.Lock()
		if h.state == StateLoaded {
			h.lock.Unlock()
			return nil, nil
		}
		h.state = StateLoading
		h.lock.Unlock()

		engine, config, err := h.load(context.WithoutCancel(ctx))

		h.lock.Lock()
		defer h.lock.Unlock()
		if err != nil {
			h.log.Errorf("Failed to load model %v: %v", h.name, err)
			h.state = StateFailed
			h.lastErr = err
			return nil, err
		}
		h.log.Infof("Loaded model %v", h.name)
		h.state = StateLoaded
		h.engine = engine
		h.config = config
		h.lastErr = nil
		return nil, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, nil, r.Err
		}
		h.lock.Lock()
		defer h.lock.Unlock()
		if h.engine == nil {
			return nil, nil, fmt.Errorf("Model %v was closed", h.name)
		}
		return h.engine, h.config, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// Close releases the model. The next call to Model will load it again.
func (h *Handle) Close() {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.engine != nil {
		h.engine.Close()
	}
	h.engine = nil
	h.config = nil
	h.state = StateUnloaded
}
