package inference

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/swdee/go-detrack/tensor"
)

var (
	envOnce sync.Once
	envErr  error
)

// InitONNX loads the onnxruntime shared library and initializes the runtime
// environment.  It only takes effect on the first call, an empty library
// path uses the platform default.
func InitONNX(library string) error {

	envOnce.Do(func() {
		if library != "" {
			ort.SetSharedLibraryPath(library)
		}

		if err := ort.InitializeEnvironment(); err != nil {
			envErr = fmt.Errorf("error initializing onnxruntime: %w", err)
		}
	})

	return envErr
}

// ShutdownONNX releases the onnxruntime environment once all sessions are
// closed
func ShutdownONNX() error {

	if !ort.IsInitialized() {
		return nil
	}

	return ort.DestroyEnvironment()
}

// ONNXOptions are the session settings of an ONNX model
type ONNXOptions struct {
	// Input is the [1,3,H,W] input shape, dynamic model dimensions are
	// fixed to it
	Input []int
	// Threads is the number of intra op threads, 0 keeps the default
	Threads int
	// FP16 treats the output as half precision even when the model does
	// not declare it
	FP16 bool
}

// ONNX runs a model with a single image input and single prediction output
// through an onnxruntime session
type ONNX struct {
	session     *ort.AdvancedSession
	input       *ort.Tensor[float32]
	inputShape  []int
	outputShape []int
	// output is one of output32 or output16
	output   ort.Value
	output32 *ort.Tensor[float32]
	output16 *ort.CustomDataTensor
	fp16     bool
}

// NewONNX opens an ONNX model file.  Only the first model output is read.
func NewONNX(path string, opts ONNXOptions) (*ONNX, error) {

	inputs, outputs, err := ort.GetInputOutputInfo(path)

	if err != nil {
		return nil, fmt.Errorf("error reading model %s: %w", path, err)
	}

	if len(inputs) != 1 || len(outputs) == 0 {
		return nil, fmt.Errorf("%w: want 1 input and at least 1 output, got %d and %d",
			ErrUnsupportedModel, len(inputs), len(outputs))
	}

	if inputs[0].DataType != ort.TensorElementDataTypeFloat {
		return nil, fmt.Errorf("%w: input %s is %v, want float32",
			ErrUnsupportedModel, inputs[0].Name, inputs[0].DataType)
	}

	inShape, err := resolveShape(inputs[0].Dimensions, opts.Input)

	if err != nil {
		return nil, fmt.Errorf("input %s: %w", inputs[0].Name, err)
	}

	outShape, err := resolveShape(outputs[0].Dimensions, nil)

	if err != nil {
		return nil, fmt.Errorf("output %s: %w", outputs[0].Name, err)
	}

	m := &ONNX{
		inputShape:  inShape,
		outputShape: outShape,
		fp16:        opts.FP16 || outputs[0].DataType == ort.TensorElementDataTypeFloat16,
	}

	m.input, err = ort.NewEmptyTensor[float32](toOrtShape(inShape))

	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	if m.fp16 {
		buf := make([]byte, 2*tensor.Elements(outShape))
		m.output16, err = ort.NewCustomDataTensor(toOrtShape(outShape), buf,
			ort.TensorElementDataTypeFloat16)
		if err == nil {
			m.output = m.output16
		}
	} else {
		m.output32, err = ort.NewEmptyTensor[float32](toOrtShape(outShape))
		if err == nil {
			m.output = m.output32
		}
	}

	if err != nil {
		m.Close()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()

	if err != nil {
		m.Close()
		return nil, fmt.Errorf("error creating session options: %w", err)
	}

	defer options.Destroy()

	if opts.Threads > 0 {
		if err := options.SetIntraOpNumThreads(opts.Threads); err != nil {
			m.Close()
			return nil, fmt.Errorf("error setting threads: %w", err)
		}
	}

	m.session, err = ort.NewAdvancedSession(path,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.Value{m.input}, []ort.Value{m.output}, options)

	if err != nil {
		m.Close()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return m, nil
}

// OutputShape returns the shape of the prediction tensor
func (m *ONNX) OutputShape() []int {
	return m.outputShape
}

// Infer runs the model on a preprocessed input tensor
func (m *ONNX) Infer(in *tensor.Tensor) (*tensor.Tensor, error) {

	if err := checkInput(in, m.inputShape); err != nil {
		return nil, err
	}

	copy(m.input.GetData(), in.Data)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("error running session: %w", err)
	}

	shape := append([]int(nil), m.outputShape...)

	if m.fp16 {
		return tensor.FromFloat16Bytes(shape, m.output16.GetData())
	}

	// the output buffer is reused by the next run
	data := append([]float32(nil), m.output32.GetData()...)

	return tensor.New(shape, data)
}

// Close releases the session and tensors
func (m *ONNX) Close() error {

	var err error

	if m.session != nil {
		err = m.session.Destroy()
		m.session = nil
	}

	if m.input != nil {
		m.input.Destroy()
		m.input = nil
	}

	if m.output != nil {
		m.output.Destroy()
		m.output = nil
	}

	return err
}

// resolveShape returns the fixed dimensions of a model tensor.  Dynamic
// dimensions are taken from want when given, a dynamic batch dimension
// becomes 1.
func resolveShape(dims ort.Shape, want []int) ([]int, error) {

	if want != nil && len(want) != len(dims) {
		return nil, fmt.Errorf("%w: model has %d dimensions %v, want %v",
			ErrUnsupportedModel, len(dims), dims, want)
	}

	shape := make([]int, len(dims))

	for i, d := range dims {
		switch {
		case d > 0 && want != nil && int(d) != want[i]:
			return nil, fmt.Errorf("%w: dimension %d is %d, configured %d",
				ErrUnsupportedModel, i, d, want[i])
		case d > 0:
			shape[i] = int(d)
		case want != nil:
			shape[i] = want[i]
		case i == 0:
			shape[i] = 1
		default:
			return nil, fmt.Errorf("%w: dynamic dimension %d in %v",
				ErrUnsupportedModel, i, dims)
		}
	}

	return shape, nil
}

func toOrtShape(shape []int) ort.Shape {

	s := make(ort.Shape, len(shape))

	for i, d := range shape {
		s[i] = int64(d)
	}

	return s
}
