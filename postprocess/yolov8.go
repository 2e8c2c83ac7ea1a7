package postprocess

import (
	"errors"
	"fmt"

	"github.com/swdee/go-detrack/postprocess/result"
	"github.com/swdee/go-detrack/tensor"
)

// ErrMalformedTensor is returned when the raw prediction tensor does not
// have the [1, 4+C, N] layout the parser was configured for
var ErrMalformedTensor = errors.New("malformed prediction tensor")

// YOLOv8 defines the struct for post processing the output of anchor free
// YOLOv8/YOLO11 style models exported with a single [1, 4+C, N] output
type YOLOv8 struct {
	// Params are the Model configuration parameters
	Params YOLOv8Params
	// idGen provides the next number for each detection ID
	idGen *result.IDGenerator
}

// YOLOv8Params defines the struct containing the YOLOv8 parameters to use
// for post processing operations
type YOLOv8Params struct {
	// BoxThreshold is the minimum class score required for an anchor to be
	// turned into a bounding box
	BoxThreshold float32
	// NMSThreshold is the Non-Maximum Suppression threshold used for defining
	// the maximum allowed Intersection Over Union (IoU) between two
	// bounding boxes of the same class for both to be kept
	NMSThreshold float32
	// ObjectClassNum is the number of different object classes the Model has
	// been trained with
	ObjectClassNum int
	// KeyPointsNumber is the number of (x, y, visibility) keypoint triples
	// following the class scores, zero for plain detection models
	KeyPointsNumber int
}

// YOLOv8DefaultParams returns an instance of YOLOv8Params configured with
// default values for the given number of classes:
// - Box Threshold: 0.25
// - NMS Threshold: 0.45
func YOLOv8DefaultParams(classes int) YOLOv8Params {
	return YOLOv8Params{
		BoxThreshold:   0.25,
		NMSThreshold:   0.45,
		ObjectClassNum: classes,
	}
}

// NewYOLOv8 returns an instance of the YOLOv8 post processor
func NewYOLOv8(p YOLOv8Params) *YOLOv8 {
	return &YOLOv8{
		Params: p,
		idGen:  result.NewIDGenerator(),
	}
}

// rows returns the expected size of the second tensor dimension
func (y *YOLOv8) rows() int {
	return 4 + y.Params.ObjectClassNum + 3*y.Params.KeyPointsNumber
}

// CheckShape validates the raw output tensor layout
func (y *YOLOv8) CheckShape(t *tensor.Tensor) error {

	if t == nil {
		return fmt.Errorf("%w: nil tensor", ErrMalformedTensor)
	}

	if y.Params.ObjectClassNum < 1 || y.Params.KeyPointsNumber < 0 {
		return fmt.Errorf("%w: parser configured for %d classes and %d keypoints",
			ErrMalformedTensor, y.Params.ObjectClassNum, y.Params.KeyPointsNumber)
	}

	if t.Dims() != 3 || t.Shape[0] != 1 {
		return fmt.Errorf("%w: expected [1, %d, N], got %v",
			ErrMalformedTensor, y.rows(), t.Shape)
	}

	if t.Shape[1] != y.rows() {
		return fmt.Errorf("%w: expected %d rows for %d classes and %d keypoints, got %v",
			ErrMalformedTensor, y.rows(), y.Params.ObjectClassNum,
			y.Params.KeyPointsNumber, t.Shape)
	}

	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedTensor, err)
	}

	return nil
}

// DetectObjects converts the raw prediction tensor into per class bounding
// boxes in canvas coordinates.  No NMS is applied, boxes within a class are
// in anchor scan order.
func (y *YOLOv8) DetectObjects(t *tensor.Tensor,
	canvas result.ImgDimensions) (result.ClassBoxes, error) {

	if err := y.CheckShape(t); err != nil {
		return nil, err
	}

	classes := y.Params.ObjectClassNum
	anchors := t.Shape[2]
	boxes := result.NewClassBoxes(classes)

	// row r of anchor n lives at Data[r*anchors+n]
	data := t.Data
	at := func(row, n int) float32 {
		return data[row*anchors+n]
	}

	for n := 0; n < anchors; n++ {

		// argmax over class scores, first seen wins on ties
		classID := 0
		maxScore := at(4, n)

		for c := 1; c < classes; c++ {
			if s := at(4+c, n); s > maxScore {
				maxScore = s
				classID = c
			}
		}

		if !(maxScore >= y.Params.BoxThreshold) {
			continue
		}

		cx, cy := at(0, n), at(1, n)
		w, h := at(2, n), at(3, n)

		xmin := cx - w/2
		ymin := cy - h/2

		box, ok := result.NewBbox(
			result.Clamp(xmin, 0, canvas.Width),
			result.Clamp(ymin, 0, canvas.Height),
			result.Clamp(xmin+w, 0, canvas.Width),
			result.Clamp(ymin+h, 0, canvas.Height),
			classID, maxScore,
		)

		if !ok {
			// degenerate geometry is expected noise
			continue
		}

		if y.Params.KeyPointsNumber > 0 {
			box.Aux = make([]result.KeyPoint, y.Params.KeyPointsNumber)
			base := 4 + classes

			for k := range box.Aux {
				box.Aux[k] = result.KeyPoint{
					X:          at(base+k*3, n),
					Y:          at(base+k*3+1, n),
					Visibility: at(base+k*3+2, n),
				}
			}
		}

		box.DetectionID = y.idGen.GetNext()
		boxes[classID] = append(boxes[classID], box)
	}

	return boxes, nil
}
