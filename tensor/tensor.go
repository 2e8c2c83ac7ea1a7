package tensor

import (
	"errors"
	"fmt"
)

// ErrShape is returned when a tensor's data length does not match the
// product of its dimensions
var ErrShape = errors.New("tensor shape does not match data length")

// Tensor is a dense float32 tensor in row major order.  It is the currency
// passed between the preprocessor, the Model and the prediction parser.
type Tensor struct {
	// Shape holds the dimensions, eg: [1, 3, 384, 640] for an NCHW input
	Shape []int
	// Data holds the values with the last dimension varying fastest
	Data []float32
}

// New wraps the given data in a Tensor, checking that the data length
// agrees with the shape
func New(shape []int, data []float32) (*Tensor, error) {

	if Elements(shape) != len(data) {
		return nil, fmt.Errorf("%w: shape %v wants %d values, got %d",
			ErrShape, shape, Elements(shape), len(data))
	}

	return &Tensor{Shape: shape, Data: data}, nil
}

// Zeros allocates a zero valued Tensor of the given shape
func Zeros(shape ...int) *Tensor {
	return &Tensor{
		Shape: append([]int(nil), shape...),
		Data:  make([]float32, Elements(shape)),
	}
}

// Elements returns the number of values a tensor of the given shape holds
func Elements(shape []int) int {

	if len(shape) == 0 {
		return 0
	}

	n := 1
	for _, d := range shape {
		n *= d
	}

	return n
}

// Dims returns the number of dimensions
func (t *Tensor) Dims() int {
	return len(t.Shape)
}

// Len returns the number of values held
func (t *Tensor) Len() int {
	return len(t.Data)
}

// At3 returns the value at index [i, j, k] of a 3 dimensional tensor
func (t *Tensor) At3(i, j, k int) float32 {
	return t.Data[(i*t.Shape[1]+j)*t.Shape[2]+k]
}

// Validate checks the data length agrees with the shape
func (t *Tensor) Validate() error {

	if Elements(t.Shape) != len(t.Data) {
		return fmt.Errorf("%w: shape %v wants %d values, got %d",
			ErrShape, t.Shape, Elements(t.Shape), len(t.Data))
	}

	return nil
}

// String describes the tensor without dumping its values
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v(len=%d)", t.Shape, len(t.Data))
}
