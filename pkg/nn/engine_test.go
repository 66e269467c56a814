package nn

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reentrancyCheck fails if Run is ever entered by two goroutines at once
type reentrancyCheck struct {
	active   atomic.Int32
	overlaps atomic.Int32
	runs     atomic.Int32
}

func (e *reentrancyCheck) Run(ctx context.Context, inputs []Tensor) ([]Tensor, error) {
	if e.active.Add(1) > 1 {
		e.overlaps.Add(1)
	}
	time.Sleep(time.Millisecond)
	e.runs.Add(1)
	e.active.Add(-1)
	return []Tensor{NewTensor(1, 1)}, nil
}

func (e *reentrancyCheck) Close() {}

func TestSerializeThreadSafety(t *testing.T) {
	raw := &reentrancyCheck{}
	engine := Serialize(raw)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := engine.Run(context.Background(), []Tensor{NewTensor(1, 2, 2, 3)})
			assert.NoError(t, err)
			assert.Len(t, out, 1)
		}()
	}
	wg.Wait()
	require.EqualValues(t, 16, raw.runs.Load())
	require.EqualValues(t, 0, raw.overlaps.Load())
}

type blockingEngine struct {
	release chan struct{}
}

func (e *blockingEngine) Run(ctx context.Context, inputs []Tensor) ([]Tensor, error) {
	<-e.release
	return nil, nil
}

func (e *blockingEngine) Close() {}

func TestRunInferenceTimeout(t *testing.T) {
	engine := &blockingEngine{release: make(chan struct{})}
	defer close(engine.release)
	in, err := Preprocess(solidImage(10, 10), PreprocessParams{Size: 8})
	require.NoError(t, err)
	defer in.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = RunInference(ctx, engine, in)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.True(t, in.Abandoned())
}

// readingEngine reads its whole input, slowly, after the caller has stopped waiting
type readingEngine struct {
	sum atomic.Int64
}

func (e *readingEngine) Run(ctx context.Context, inputs []Tensor) ([]Tensor, error) {
	time.Sleep(time.Millisecond)
	total := 0
	for _, v := range inputs[0].Data {
		if v != 0 {
			total++
		}
	}
	e.sum.Add(int64(total))
	return nil, nil
}

func (e *readingEngine) Close() {}

// Releasing an input right after a cancelled inference must not disturb the engine,
// which may still be reading it. Run with -race.
func TestReleaseAfterCancelledInference(t *testing.T) {
	engine := &readingEngine{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 50; i++ {
		in, err := Preprocess(solidImage(10, 10), PreprocessParams{Size: 8})
		require.NoError(t, err)
		_, err = RunInference(ctx, engine, in)
		if err != nil {
			require.ErrorIs(t, err, context.Canceled)
			require.True(t, in.Abandoned())
		}
		in.Release()
		require.Nil(t, in.Tensor.Data)
	}
	// Let the abandoned runs finish, so that the race detector sees their reads
	time.Sleep(20 * time.Millisecond)
}

type panicEngine struct{}

func (panicEngine) Run(ctx context.Context, inputs []Tensor) ([]Tensor, error) {
	panic("bad tensor")
}

func (panicEngine) Close() {}

func TestRunInferencePanic(t *testing.T) {
	in, err := Preprocess(solidImage(10, 10), PreprocessParams{Size: 8})
	require.NoError(t, err)
	defer in.Release()
	_, err = RunInference(context.Background(), panicEngine{}, in)
	require.ErrorContains(t, err, "bad tensor")
	require.False(t, in.Abandoned())
}

func TestModelUnavailableError(t *testing.T) {
	cause := errors.New("file not found")
	err := error(&ModelUnavailableError{Model: "plates", Err: cause})
	require.ErrorIs(t, err, ErrModelUnavailable)
	require.ErrorIs(t, err, cause)
}
