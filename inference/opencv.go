package inference

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/swdee/go-detrack/tensor"
)

// OpenCV runs an ONNX model with the OpenCV DNN module on the CPU
type OpenCV struct {
	net        gocv.Net
	inputShape []int
}

// NewOpenCV loads an ONNX model taking input of the given [1,3,H,W] shape
func NewOpenCV(path string, input []int) (*OpenCV, error) {

	if len(input) != 4 {
		return nil, fmt.Errorf("%w: input shape %v is not [1,3,H,W]", ErrUnsupportedModel, input)
	}

	net := gocv.ReadNetFromONNX(path)

	if net.Empty() {
		return nil, fmt.Errorf("error reading model %s", path)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting backend: %w", err)
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting target: %w", err)
	}

	return &OpenCV{
		net:        net,
		inputShape: append([]int(nil), input...),
	}, nil
}

// Infer runs the model on a preprocessed input tensor
func (m *OpenCV) Infer(in *tensor.Tensor) (*tensor.Tensor, error) {

	if err := checkInput(in, m.inputShape); err != nil {
		return nil, err
	}

	blob := gocv.NewMatWithSizes(m.inputShape, gocv.MatTypeCV32F)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error accessing input blob: %w", err)
	}

	copy(data, in.Data)

	m.net.SetInput(blob, "")

	out := m.net.Forward("")
	defer out.Close()

	if out.Empty() {
		return nil, fmt.Errorf("forward pass returned no output")
	}

	outData, err := out.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error reading output: %w", err)
	}

	return tensor.New(out.Size(), append([]float32(nil), outData...))
}

// Close releases the network
func (m *OpenCV) Close() error {
	return m.net.Close()
}
