package result

import (
	"fmt"

	"github.com/chewxy/math32"
)

// KeyPoint is a single point annotation attached to a box, eg: a pose
// keypoint.  Visibility is the model's confidence the point is visible.
type KeyPoint struct {
	X, Y       float32
	Visibility float32
}

// Bbox defines the attributes of a single object detected or tracked, with
// corner coordinates in whatever space the current pipeline stage works in
type Bbox struct {
	Xmin, Ymin, Xmax, Ymax float32
	// Class is the index into the class taxonomy the model was trained on
	Class int
	// DetectorConfidence is the class score from the detection model
	DetectorConfidence float32
	// TrackerConfidence is the confidence reported by the tracker, zero when
	// the box was never tracked
	TrackerConfidence float32
	// TrackerID is the persistent identity assigned by the tracker, nil until
	// a tracking stage has run
	TrackerID *int64
	// DetectionID is a unique ID assigned to the detection when it was parsed
	DetectionID int64
	// Aux is an optional per point payload, eg: pose keypoints
	Aux []KeyPoint
}

// NewBbox returns a box with the given corners.  ok is false when the
// geometry is degenerate (zero or negative width or height) and the box must
// be dropped.
func NewBbox(xmin, ymin, xmax, ymax float32, class int, conf float32) (Bbox, bool) {

	if !(xmax > xmin) || !(ymax > ymin) {
		return Bbox{}, false
	}

	return Bbox{
		Xmin:               xmin,
		Ymin:               ymin,
		Xmax:               xmax,
		Ymax:               ymax,
		Class:              class,
		DetectorConfidence: conf,
	}, true
}

// Width of the box
func (b Bbox) Width() float32 {
	return b.Xmax - b.Xmin
}

// Height of the box
func (b Bbox) Height() float32 {
	return b.Ymax - b.Ymin
}

// Area of the box
func (b Bbox) Area() float32 {
	return b.Width() * b.Height()
}

// Center returns the center point of the box
func (b Bbox) Center() (float32, float32) {
	return b.Xmin + b.Width()/2, b.Ymin + b.Height()/2
}

// Tracked reports whether a tracker identity has been assigned
func (b Bbox) Tracked() bool {
	return b.TrackerID != nil
}

// ClampTo restricts the box corners to lie within [0,dims.Width] x
// [0,dims.Height]
func (b Bbox) ClampTo(dims ImgDimensions) Bbox {
	b.Xmin = Clamp(b.Xmin, 0, dims.Width)
	b.Ymin = Clamp(b.Ymin, 0, dims.Height)
	b.Xmax = Clamp(b.Xmax, 0, dims.Width)
	b.Ymax = Clamp(b.Ymax, 0, dims.Height)
	return b
}

func (b Bbox) String() string {
	id := "-"
	if b.TrackerID != nil {
		id = fmt.Sprintf("%d", *b.TrackerID)
	}
	return fmt.Sprintf("class=%d id=%s det=%.2f trk=%.2f [%.1f,%.1f,%.1f,%.1f]",
		b.Class, id, b.DetectorConfidence, b.TrackerConfidence,
		b.Xmin, b.Ymin, b.Xmax, b.Ymax)
}

// Clamp restricts val to the range [min, max]
func Clamp(val, min, max float32) float32 {
	return math32.Min(math32.Max(val, min), max)
}

// IoU returns the intersection over union of two boxes, or 0 when they do
// not overlap
func IoU(a, b Bbox) float32 {

	iw := math32.Min(a.Xmax, b.Xmax) - math32.Max(a.Xmin, b.Xmin)
	ih := math32.Min(a.Ymax, b.Ymax) - math32.Max(a.Ymin, b.Ymin)

	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := a.Area() + b.Area() - inter

	if union <= 0 {
		return 0
	}

	return inter / union
}
