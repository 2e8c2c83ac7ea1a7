package detrack

import "github.com/swdee/go-detrack/tensor"

// Model runs inference on a preprocessed input tensor of shape [1,3,H,W] and
// returns the raw prediction tensor.  A Model is not safe for concurrent use,
// use a Pool to run several in parallel.
type Model interface {
	Infer(in *tensor.Tensor) (*tensor.Tensor, error)
	Close() error
}

// ModelFactory opens the i'th instance of a Model
type ModelFactory func(i int) (Model, error)
