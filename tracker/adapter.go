package tracker

import (
	"fmt"
	"sync"

	"github.com/swdee/go-detrack/postprocess/result"
)

// Adapter connects class grouped detection boxes to a Tracker.  Boxes are
// flattened into observations, the tracker is run once per frame and the
// returned tracks are converted back into boxes regrouped by class.
type Adapter struct {
	// mu serializes access to the stateful tracker
	mu      sync.Mutex
	tracker Tracker
	classes int
	// ids assigns detection IDs to boxes that arrive without one
	ids *result.IDGenerator
}

// NewAdapter returns an Adapter around the tracker for a taxonomy of the
// given number of classes
func NewAdapter(tr Tracker, classes int) *Adapter {
	return &Adapter{
		tracker: tr,
		classes: classes,
		ids:     result.NewIDGenerator(),
	}
}

// Classes returns the taxonomy size the adapter regroups into
func (a *Adapter) Classes() int {
	return a.classes
}

// Reset clears the tracker state
func (a *Adapter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tracker.Reset()
}

// Update tracks the boxes of a single frame.  Boxes must be in the
// coordinate space of canvas, which tracked boxes are clamped to.  The
// returned boxes carry the tracker's identity and confidence along with the
// detector confidence and aux data of the detection each track matched.
// Boxes without a DetectionID are assigned one on a copy, boxes is not
// modified.
func (a *Adapter) Update(boxes result.ClassBoxes, canvas result.ImgDimensions) (result.ClassBoxes, error) {

	if len(boxes) > a.classes {
		return nil, fmt.Errorf("%w: got %d class groups, taxonomy has %d",
			ErrUnknownClass, len(boxes), a.classes)
	}

	boxes = boxes.Clone()

	// index detections so their payload can be recovered from tracks
	detections := make(map[int64]result.Bbox, boxes.Count())

	for c := range boxes {
		for i := range boxes[c] {
			if boxes[c][i].DetectionID == 0 {
				boxes[c][i].DetectionID = a.ids.GetNext()
			}
			detections[boxes[c][i].DetectionID] = boxes[c][i]
		}
	}

	a.mu.Lock()
	tracks, err := a.tracker.Predict(Flatten(boxes))
	a.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("error updating tracker: %w", err)
	}

	flat := make([]result.Bbox, 0, len(tracks))

	for _, tr := range tracks {

		b, ok := TrackToBbox(tr, canvas)

		if !ok {
			// predicted entirely outside the canvas
			continue
		}

		if det, found := detections[tr.DetectionID]; found {
			b.DetectorConfidence = det.DetectorConfidence
			b.Aux = det.Aux
		}

		flat = append(flat, b)
	}

	return Regroup(flat, a.classes)
}

// Flatten converts class grouped boxes into tracker observations.  The class
// ID of each observation is the index of the group the box was in.
func Flatten(boxes result.ClassBoxes) []Observation {

	obs := make([]Observation, 0, boxes.Count())

	for c, list := range boxes {
		for _, b := range list {
			obs = append(obs, Observation{
				Geometry:    XyahFromCorners(b.Xmin, b.Ymin, b.Xmax, b.Ymax),
				ClassID:     c,
				Confidence:  b.DetectorConfidence,
				DetectionID: b.DetectionID,
			})
		}
	}

	return obs
}

// TrackToBbox converts a track into a box clamped to canvas.  ok is false
// when nothing of the box remains inside the canvas.
func TrackToBbox(tr Track, canvas result.ImgDimensions) (b result.Bbox, ok bool) {

	xmin, ymin, xmax, ymax := tr.Geometry.Corners()
	id := tr.ID

	b = result.Bbox{
		Xmin:              xmin,
		Ymin:              ymin,
		Xmax:              xmax,
		Ymax:              ymax,
		Class:             tr.ClassID,
		TrackerConfidence: tr.Confidence,
		TrackerID:         &id,
		DetectionID:       tr.DetectionID,
	}.ClampTo(canvas)

	return b, b.Width() > 0 && b.Height() > 0
}

// Regroup groups flat boxes by their class into a taxonomy of the given size
func Regroup(flat []result.Bbox, classes int) (result.ClassBoxes, error) {

	out := result.NewClassBoxes(classes)

	for _, b := range flat {
		if b.Class < 0 || b.Class >= classes {
			return nil, fmt.Errorf("%w: class %d, taxonomy has %d classes",
				ErrUnknownClass, b.Class, classes)
		}
		out[b.Class] = append(out[b.Class], b)
	}

	return out, nil
}
