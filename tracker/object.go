package tracker

import "errors"

// ErrUnknownClass is returned when a track or box references a class ID
// outside the taxonomy.  It indicates a configuration error rather than a
// bad frame.
var ErrUnknownClass = errors.New("class id outside of taxonomy")

// Observation is a single detection handed to a Tracker
type Observation struct {
	// Geometry of the detected box
	Geometry Xyah
	// ClassID is opaque to the tracker apart from keeping associations
	// within the same class
	ClassID int
	// Confidence is the detector's score
	Confidence float32
	// DetectionID is echoed back on the Track the observation was
	// associated with
	DetectionID int64
}

// Track is an identity stable object returned by a Tracker
type Track struct {
	// ID is the persistent track identity
	ID int64
	// Geometry is the tracker's estimate of the box
	Geometry Xyah
	// Confidence is the tracker's confidence in the track
	Confidence float32
	// ClassID is the class of the observations the track follows
	ClassID int
	// DetectionID is the ID of the observation matched in this frame
	DetectionID int64
}

// Tracker is a stateful multi object tracker.  Predict must be called once
// per frame, in frame order, and is not safe for concurrent use.
type Tracker interface {
	Predict(observations []Observation) ([]Track, error)
	Reset()
}
