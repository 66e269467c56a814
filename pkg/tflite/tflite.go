// Package tflite runs models on the CPU with TensorFlow Lite.
// An interpreter is not reentrant, so every Engine serializes its calls to Run.
package tflite

import (
	"context"
	"fmt"
	"runtime"

	"github.com/cyclopcam/redact/pkg/nn"
	"github.com/mattn/go-tflite"
)

type Config struct {
	NumThreads int // Zero uses the number of CPUs
}

type engine struct {
	model  *tflite.Model
	opt    *tflite.InterpreterOptions
	interp *tflite.Interpreter
}

// Open a .tflite model.
// The returned engine is already wrapped by nn.Serialize.
func Open(path string, config Config) (nn.Engine, error) {
	model := tflite.NewModelFromFile(path)
	if model == nil {
		return nil, fmt.Errorf("Failed to load TFLite model %v", path)
	}
	threads := config.NumThreads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	opt := tflite.NewInterpreterOptions()
	opt.SetNumThread(threads)
	interp := tflite.NewInterpreter(model, opt)
	if interp == nil {
		opt.Delete()
		model.Delete()
		return nil, fmt.Errorf("Failed to create TFLite interpreter for %v", path)
	}
	if status := interp.AllocateTensors(); status != tflite.OK {
		interp.Delete()
		opt.Delete()
		model.Delete()
		return nil, fmt.Errorf("Failed to allocate TFLite tensors for %v: %v", path, status)
	}
	return nn.Serialize(&engine{
		model:  model,
		opt:    opt,
		interp: interp,
	}), nil
}

// Opener adapts Open to the nnload.Opener signature
func Opener(config Config) func(path string, modelConfig *nn.ModelConfig) (nn.Engine, error) {
	return func(path string, modelConfig *nn.ModelConfig) (nn.Engine, error) {
		return Open(path, config)
	}
}

func (e *engine) Run(ctx context.Context, inputs []nn.Tensor) ([]nn.Tensor, error) {
	if len(inputs) != e.interp.GetInputTensorCount() {
		return nil, fmt.Errorf("Model has %v inputs, but %v were provided", e.interp.GetInputTensorCount(), len(inputs))
	}
	for i, in := range inputs {
		t := e.interp.GetInputTensor(i)
		if t.Type() != tflite.Float32 {
			return nil, fmt.Errorf("Input %v is %v, but only float32 inputs are supported", i, t.Type())
		}
		dst := t.Float32s()
		if len(dst) != len(in.Data) {
			return nil, fmt.Errorf("Input %v needs %v elements, but tensor %v has %v", i, len(dst), in.Shape, len(in.Data))
		}
		copy(dst, in.Data)
	}

	if status := e.interp.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("TFLite invoke failed: %v", status)
	}

	n := e.interp.GetOutputTensorCount()
	out := make([]nn.Tensor, n)
	for i := 0; i < n; i++ {
		t := e.interp.GetOutputTensor(i)
		if t.Type() != tflite.Float32 {
			return nil, fmt.Errorf("Output %v is %v, but only float32 outputs are supported", i, t.Type())
		}
		shape := make([]int, t.NumDims())
		for j := range shape {
			shape[j] = t.Dim(j)
		}
		// Float32s is a view of interpreter memory, which the next Invoke overwrites
		data := t.Float32s()
		out[i] = nn.Tensor{
			Shape: shape,
			Data:  append([]float32(nil), data...),
		}
	}
	return out, nil
}

func (e *engine) Close() {
	e.interp.Delete()
	e.opt.Delete()
	e.model.Delete()
}
