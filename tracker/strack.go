package tracker

import (
	"fmt"
)

// STrackState represents the state of a tracked object
type STrackState int

const (
	// Object is newly detected
	New STrackState = 0
	// Object is currently being tracked
	Tracked STrackState = 1
	// Object has been lost
	Lost STrackState = 2
	// Object has been removed
	Removed STrackState = 3
)

// String returns the name of the state
func (s STrackState) String() string {
	switch s {
	case New:
		return "new"
	case Tracked:
		return "tracked"
	case Lost:
		return "lost"
	case Removed:
		return "removed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// STrack represents a single track of an object
type STrack struct {
	// Kalman filter shared by the tracker
	kf *KalmanFilter
	// Kalman state estimate
	kstate KalmanState
	// Bounding box of the tracked object
	rect Rect
	// Current state of the track
	state STrackState
	// Whether the track is activated
	isActivated bool
	// Detection score
	score float32
	// Unique ID for the track
	trackID int
	// Current frame ID
	frameID int
	// Frame ID when the track started
	startFrameID int
	// ID of the last associated detection
	detectionID int64
	// classID of the observations being followed
	classID int
}

// newSTrack creates an unactivated STrack from an observation
func newSTrack(obs Observation, kf *KalmanFilter) *STrack {
	return &STrack{
		kf:          kf,
		rect:        RectFromXyah(obs.Geometry),
		state:       New,
		score:       obs.Confidence,
		detectionID: obs.DetectionID,
		classID:     obs.ClassID,
	}
}

// GetRect returns the bounding box of the tracked object
func (s *STrack) GetRect() Rect {
	return s.rect
}

// GetSTrackState returns the current state of the track
func (s *STrack) GetSTrackState() STrackState {
	return s.state
}

// IsActivated returns whether the track is activated
func (s *STrack) IsActivated() bool {
	return s.isActivated
}

// GetScore returns the detection score
func (s *STrack) GetScore() float32 {
	return s.score
}

// GetTrackID returns the unique ID for the track
func (s *STrack) GetTrackID() int {
	return s.trackID
}

// GetFrameID returns the frame the track was last updated in
func (s *STrack) GetFrameID() int {
	return s.frameID
}

// GetStartFrameID returns the frame ID when the track started
func (s *STrack) GetStartFrameID() int {
	return s.startFrameID
}

// GetDetectionID returns the ID of the last associated detection
func (s *STrack) GetDetectionID() int64 {
	return s.detectionID
}

// GetClassID returns the class of the track
func (s *STrack) GetClassID() int {
	return s.classID
}

// Track returns the public view of the STrack
func (s *STrack) Track() Track {
	return Track{
		ID:          int64(s.trackID),
		Geometry:    s.rect.Xyah(),
		Confidence:  s.score,
		ClassID:     s.GetClassID(),
		DetectionID: s.detectionID,
	}
}

// Activate initializes the track with the given frame ID and track ID
func (s *STrack) Activate(frameID, trackID int) {

	s.kstate = s.kf.Initiate(s.rect.Xyah())
	s.updateRect()

	s.state = Tracked

	// tracks born after the first frame need a second detection before
	// they are reported, unless the tracker confirms them itself
	if frameID == 1 {
		s.isActivated = true
	}

	s.trackID = trackID
	s.frameID = frameID
	s.startFrameID = frameID
}

// ReActivate resumes a lost track with a new detection
func (s *STrack) ReActivate(det *STrack, frameID int) error {

	if err := s.kf.Update(&s.kstate, det.rect.Xyah()); err != nil {
		return fmt.Errorf("error reactivating track %d: %w", s.trackID, err)
	}

	s.updateRect()

	s.state = Tracked
	s.isActivated = true
	s.score = det.score
	s.detectionID = det.detectionID
	s.frameID = frameID

	return nil
}

// Predict predicts the next state of the track
func (s *STrack) Predict() {
	if s.state != Tracked {
		// lost tracks do not keep growing in height
		s.kstate.Mean.SetVec(7, 0)
	}

	s.kf.Predict(&s.kstate)
}

// Update updates the track with a new detection
func (s *STrack) Update(det *STrack, frameID int) error {

	if err := s.kf.Update(&s.kstate, det.rect.Xyah()); err != nil {
		return fmt.Errorf("error updating track %d: %w", s.trackID, err)
	}

	s.updateRect()

	s.state = Tracked
	s.isActivated = true
	s.score = det.score
	s.detectionID = det.detectionID
	s.frameID = frameID

	return nil
}

// MarkAsLost marks the track as lost
func (s *STrack) MarkAsLost() {
	s.state = Lost
}

// MarkAsRemoved marks the track as removed
func (s *STrack) MarkAsRemoved() {
	s.state = Removed
}

// updateRect updates the bounding box from the Kalman state mean
func (s *STrack) updateRect() {
	m := s.kstate.Mean
	s.rect = RectFromXyah(Xyah{
		float32(m.AtVec(0)), float32(m.AtVec(1)), float32(m.AtVec(2)), float32(m.AtVec(3)),
	})
}
