package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-detrack/postprocess/result"
	"github.com/swdee/go-detrack/tensor"
)

var canvas = result.ImgDimensions{Width: 640, Height: 384}

// anchorTensor lays out per anchor rows [cx, cy, w, h, scores...] into the
// [1, rows, N] layout the model produces
func anchorTensor(t *testing.T, anchors [][]float32) *tensor.Tensor {
	t.Helper()

	rows := len(anchors[0])
	n := len(anchors)
	data := make([]float32, rows*n)

	for a, vals := range anchors {
		require.Len(t, vals, rows)
		for r, v := range vals {
			data[r*n+a] = v
		}
	}

	tn, err := tensor.New([]int{1, rows, n}, data)
	require.NoError(t, err)
	return tn
}

func TestDetectObjects(t *testing.T) {
	yolo := NewYOLOv8(YOLOv8DefaultParams(3))

	tn := anchorTensor(t, [][]float32{
		{100, 100, 20, 40, 0.1, 0.9, 0.2},  // class 1
		{200, 100, 20, 40, 0.1, 0.2, 0.24}, // below threshold
		{300, 100, 20, 40, 0.7, 0.1, 0.3},  // class 0
		{400, 100, 20, 40, 0.1, 0.2, 0.25}, // class 2, exactly at threshold
		{50, 50, 10, 10, 0.6, 0.6, 0.6},    // tie, first class wins
	})

	boxes, err := yolo.DetectObjects(tn, canvas)
	require.NoError(t, err)
	require.Len(t, boxes, 3)

	require.Len(t, boxes[0], 2)
	require.Len(t, boxes[1], 1)
	require.Len(t, boxes[2], 1)

	b := boxes[1][0]
	assert.Equal(t, []float32{90, 80, 110, 120}, []float32{b.Xmin, b.Ymin, b.Xmax, b.Ymax})
	assert.Equal(t, float32(0.9), b.DetectorConfidence)
	assert.Equal(t, 1, b.Class)
	assert.Nil(t, b.TrackerID)

	// anchor scan order within a class
	assert.Equal(t, float32(290), boxes[0][0].Xmin)
	assert.Equal(t, float32(45), boxes[0][1].Xmin)

	// every detection gets a distinct id
	ids := map[int64]bool{}
	for _, bb := range boxes.Flatten() {
		ids[bb.DetectionID] = true
	}
	assert.Len(t, ids, 4)
}

func TestDetectObjectsClampsToCanvas(t *testing.T) {
	yolo := NewYOLOv8(YOLOv8DefaultParams(1))

	tn := anchorTensor(t, [][]float32{
		{5, 380, 20, 20, 0.9},   // leaves the canvas bottom left
		{700, 500, 20, 20, 0.9}, // entirely outside, degenerate after clamp
		{320, 192, 1000, 1000, 0.9},
		{100, 100, 0, 10, 0.9}, // zero width
	})

	boxes, err := yolo.DetectObjects(tn, canvas)
	require.NoError(t, err)
	require.Len(t, boxes[0], 2)

	b := boxes[0][0]
	assert.Equal(t, []float32{0, 370, 15, 384}, []float32{b.Xmin, b.Ymin, b.Xmax, b.Ymax})

	b = boxes[0][1]
	assert.Equal(t, []float32{0, 0, 640, 384}, []float32{b.Xmin, b.Ymin, b.Xmax, b.Ymax})
}

func TestDetectObjectsKeyPoints(t *testing.T) {
	p := YOLOv8DefaultParams(1)
	p.KeyPointsNumber = 2
	yolo := NewYOLOv8(p)

	tn := anchorTensor(t, [][]float32{
		{100, 100, 20, 40, 0.9, 95, 90, 0.8, 105, 110, 0.1},
	})

	boxes, err := yolo.DetectObjects(tn, canvas)
	require.NoError(t, err)
	require.Len(t, boxes[0], 1)
	assert.Equal(t, []result.KeyPoint{
		{X: 95, Y: 90, Visibility: 0.8},
		{X: 105, Y: 110, Visibility: 0.1},
	}, boxes[0][0].Aux)
}

func TestDetectObjectsMalformed(t *testing.T) {
	yolo := NewYOLOv8(YOLOv8DefaultParams(80))

	tests := []struct {
		name string
		t    *tensor.Tensor
	}{
		{"nil", nil},
		{"two dims", tensor.Zeros(84, 10)},
		{"batch of two", tensor.Zeros(2, 84, 10)},
		{"wrong class count", tensor.Zeros(1, 85, 10)},
		{"short data", &tensor.Tensor{Shape: []int{1, 84, 10}, Data: make([]float32, 10)}},
	}

	for _, tc := range tests {
		_, err := yolo.DetectObjects(tc.t, canvas)
		assert.ErrorIs(t, err, ErrMalformedTensor, tc.name)
	}
}

func TestDetectObjectsNoClasses(t *testing.T) {
	yolo := NewYOLOv8(YOLOv8DefaultParams(0))

	// a box only tensor has no score rows to read
	_, err := yolo.DetectObjects(tensor.Zeros(1, 4, 6), canvas)
	assert.ErrorIs(t, err, ErrMalformedTensor)
}
