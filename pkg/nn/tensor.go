package nn

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Tensor is a dense float32 tensor in row major order
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

func NewTensor(shape ...int) Tensor {
	return Tensor{
		Shape: shape,
		Data:  make([]float32, NumElements(shape)),
	}
}

func NumElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Validate that len(Data) agrees with Shape
func (t Tensor) Validate() error {
	if n := NumElements(t.Shape); n != len(t.Data) {
		return fmt.Errorf("Tensor shape %v needs %v elements, but has %v", t.Shape, n, len(t.Data))
	}
	return nil
}

// Return the shape with leading dimensions of size 1 removed, but always keeping at least two dimensions.
// For example [1,N,5] becomes [N,5], and [1,1,5] becomes [1,5].
func (t Tensor) Squeezed() []int {
	s := t.Shape
	for len(s) > 2 && s[0] == 1 {
		s = s[1:]
	}
	return s
}

// Pool of input buffers, keyed by the number of elements
var inputPools sync.Map

func getBuffer(n int) []float32 {
	p, _ := inputPools.LoadOrStore(n, &sync.Pool{
		New: func() any {
			return make([]float32, n)
		},
	})
	return p.(*sync.Pool).Get().([]float32)
}

func putBuffer(b []float32) {
	if p, ok := inputPools.Load(len(b)); ok {
		p.(*sync.Pool).Put(b)
	}
}

// Input is a preprocessed model input, plus the transform needed to map results back.
// Call Release when finished with it.
type Input struct {
	Tensor    Tensor
	Transform ResizeTransform

	abandoned atomic.Bool
	released  atomic.Bool
}

// Abandon marks the input as still in use by an inference call that we have stopped waiting for.
// The buffer will not be recycled by Release.
func (in *Input) Abandon() {
	in.abandoned.Store(true)
}

func (in *Input) Abandoned() bool {
	return in.abandoned.Load()
}

// Release returns the tensor buffer to the pool. It is safe to call more than once.
func (in *Input) Release() {
	if in == nil || in.released.Swap(true) {
		return
	}
	if !in.abandoned.Load() {
		putBuffer(in.Tensor.Data)
	}
	in.Tensor.Data = nil
}
