// Package inference provides the Model backends the pipeline runs
// detection models on.
package inference

import (
	"errors"
	"fmt"

	"github.com/cyclopcam/logs"

	detrack "github.com/swdee/go-detrack"
	"github.com/swdee/go-detrack/tensor"
)

var (
	// ErrUnsupportedModel is returned when a model's inputs or outputs can
	// not be run by a backend
	ErrUnsupportedModel = errors.New("unsupported model")
	// ErrInputShape is returned when the tensor passed to Infer does not
	// match the model input
	ErrInputShape = errors.New("input tensor does not match model")
)

// NewFactory returns a ModelFactory opening the configured model on the
// configured backend
func NewFactory(cfg detrack.Config, log logs.Log) (detrack.ModelFactory, error) {

	input := []int{1, 3, cfg.InputHeight, cfg.InputWidth}

	switch cfg.Backend {
	case detrack.BackendONNX:
		if err := InitONNX(cfg.ONNXRuntimeLibrary); err != nil {
			return nil, err
		}

		return func(i int) (detrack.Model, error) {
			m, err := NewONNX(cfg.Model, ONNXOptions{
				Input:   input,
				Threads: cfg.Threads,
				FP16:    cfg.FP16,
			})

			if err != nil {
				return nil, err
			}

			log.Infof("Model %d: %s on onnxruntime, input %v output %v fp16 %v",
				i, cfg.Model, input, m.OutputShape(), m.fp16)

			return m, nil
		}, nil

	case detrack.BackendOpenCV:
		return func(i int) (detrack.Model, error) {
			m, err := NewOpenCV(cfg.Model, input)

			if err != nil {
				return nil, err
			}

			log.Infof("Model %d: %s on opencv dnn, input %v", i, cfg.Model, input)

			return m, nil
		}, nil
	}

	return nil, fmt.Errorf("%w: unknown backend %q", detrack.ErrConfig, cfg.Backend)
}

// checkInput validates the tensor passed to Infer
func checkInput(in *tensor.Tensor, shape []int) error {

	if in == nil {
		return fmt.Errorf("%w: nil tensor", ErrInputShape)
	}

	if !equalShape(in.Shape, shape) || in.Len() != tensor.Elements(shape) {
		return fmt.Errorf("%w: got %v, want %v", ErrInputShape, in.Shape, shape)
	}

	return nil
}

func equalShape(a, b []int) bool {

	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
