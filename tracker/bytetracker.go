package tracker

import (
	"errors"
	"fmt"
)

// Config holds the tuning parameters of the BYTETracker
type Config struct {
	// FrameRate of the video source
	FrameRate int `json:"frame_rate"`
	// TrackBuffer is the number of frames, at 30 FPS, a lost track is kept
	// for before being removed
	TrackBuffer int `json:"track_buffer"`
	// TrackThresh splits detections into the high and low score sets
	TrackThresh float32 `json:"track_thresh"`
	// HighThresh is the minimum score for a detection to start a new track
	HighThresh float32 `json:"high_thresh"`
	// ReportNew reports tracks from the frame they start on.  When false a
	// track born after the first frame is only reported once a second
	// detection confirms it.
	ReportNew bool `json:"report_new"`
	// MatchThresh is the maximum IoU distance of the first association
	MatchThresh float32 `json:"match_thresh"`
	// StdWeightPosition and StdWeightVelocity are the Kalman filter noise
	// weights relative to box height
	StdWeightPosition float64 `json:"std_weight_position"`
	StdWeightVelocity float64 `json:"std_weight_velocity"`
}

// DefaultConfig returns the tracker settings used for 30 FPS video
func DefaultConfig() Config {
	return Config{
		FrameRate:         30,
		TrackBuffer:       10,
		TrackThresh:       0.25,
		HighThresh:        0.25,
		ReportNew:         true,
		MatchThresh:       0.8,
		StdWeightPosition: 1.0 / 20,
		StdWeightVelocity: 1.0 / 160,
	}
}

// Validate checks the configuration values are usable
func (c Config) Validate() error {

	var errs []error

	if c.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("frame_rate must be positive, got %d", c.FrameRate))
	}

	if c.TrackBuffer < 0 {
		errs = append(errs, fmt.Errorf("track_buffer must not be negative, got %d", c.TrackBuffer))
	}

	for name, v := range map[string]float32{
		"track_thresh": c.TrackThresh,
		"high_thresh":  c.HighThresh,
		"match_thresh": c.MatchThresh,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %g", name, v))
		}
	}

	if c.StdWeightPosition <= 0 || c.StdWeightVelocity <= 0 {
		errs = append(errs, errors.New("kalman filter weights must be positive"))
	}

	return errors.Join(errs...)
}

// BYTETracker represents the BYTE Tracker
type BYTETracker struct {
	// Threshold for tracking objects
	trackThresh float32
	// High threshold for tracking objects
	highThresh float32
	// reportNew activates new tracks immediately
	reportNew bool
	// Matching threshold for associations
	matchThresh float32
	// Maximum time an object can be lost before being remove
	maxTimeLost int
	// Kalman filter shared by all tracks
	kf *KalmanFilter
	// Current frame ID
	frameID int
	// Counter for assigning unique track IDs
	trackIDCount int
	// List of currently tracked objects
	trackedStracks []*STrack
	// List of lost objects
	lostStracks []*STrack
}

// NewBYTETracker initializes and returns a new BYTETracker with the default
// Kalman filter weights
func NewBYTETracker(frameRate int, trackBuffer int, trackThresh float32,
	highThresh float32, matchThresh float32) *BYTETracker {

	cfg := DefaultConfig()
	cfg.FrameRate = frameRate
	cfg.TrackBuffer = trackBuffer
	cfg.TrackThresh = trackThresh
	cfg.HighThresh = highThresh
	cfg.MatchThresh = matchThresh

	return NewBYTETrackerFromConfig(cfg)
}

// NewBYTETrackerFromConfig returns a new BYTETracker using the given settings
func NewBYTETrackerFromConfig(cfg Config) *BYTETracker {
	return &BYTETracker{
		trackThresh: cfg.TrackThresh,
		highThresh:  cfg.HighThresh,
		reportNew:   cfg.ReportNew,
		matchThresh: cfg.MatchThresh,
		maxTimeLost: int(float32(cfg.FrameRate) / 30.0 * float32(cfg.TrackBuffer)),
		kf:          NewKalmanFilter(cfg.StdWeightPosition, cfg.StdWeightVelocity),
	}
}

// Reset clears the tracked data and resets everything
func (bt *BYTETracker) Reset() {
	bt.frameID = 0
	bt.trackIDCount = 0
	bt.trackedStracks = nil
	bt.lostStracks = nil
}

// Predict associates the observations of a new frame with the existing
// tracks and returns the active tracks
func (bt *BYTETracker) Predict(observations []Observation) ([]Track, error) {

	stracks, err := bt.Update(observations)

	if err != nil {
		return nil, err
	}

	tracks := make([]Track, len(stracks))

	for i, s := range stracks {
		tracks[i] = s.Track()
	}

	return tracks, nil
}

// Update updates the tracker with new detections
func (bt *BYTETracker) Update(observations []Observation) ([]*STrack, error) {

	// Step 1: Get detections
	bt.frameID++

	var detStracks, detLowStracks []*STrack

	for _, obs := range observations {

		strack := newSTrack(obs, bt.kf)

		if obs.Confidence >= bt.trackThresh {
			detStracks = append(detStracks, strack)
		} else {
			detLowStracks = append(detLowStracks, strack)
		}
	}

	// create lists of existing STrack
	var activeStracks, nonActiveStracks []*STrack

	for _, trackedStrack := range bt.trackedStracks {
		if !trackedStrack.IsActivated() {
			nonActiveStracks = append(nonActiveStracks, trackedStrack)
		} else {
			activeStracks = append(activeStracks, trackedStrack)
		}
	}

	strackPool := jointStracks(activeStracks, bt.lostStracks)

	// predict current pose by KF
	for _, strack := range strackPool {
		strack.Predict()
	}

	// Step 2: First association, with IoU
	var currentTrackedStracks, remainTrackedStracks, remainDetStracks, refindStracks []*STrack

	matchesIdx, unmatchTrackIdx, unmatchDetectionIdx, err := assign(
		iouDistance(strackPool, detStracks),
		len(strackPool), len(detStracks), bt.matchThresh,
	)

	if err != nil {
		return nil, fmt.Errorf("error in first association: %w", err)
	}

	for _, matchIdx := range matchesIdx {

		track := strackPool[matchIdx[0]]
		det := detStracks[matchIdx[1]]

		if track.GetSTrackState() == Tracked {
			if err := track.Update(det, bt.frameID); err != nil {
				return nil, fmt.Errorf("error in first association: %w", err)
			}
			currentTrackedStracks = append(currentTrackedStracks, track)
		} else {
			if err := track.ReActivate(det, bt.frameID); err != nil {
				return nil, fmt.Errorf("error in first association: %w", err)
			}
			refindStracks = append(refindStracks, track)
		}
	}

	for _, unmatchIdx := range unmatchDetectionIdx {
		remainDetStracks = append(remainDetStracks, detStracks[unmatchIdx])
	}

	for _, unmatchIdx := range unmatchTrackIdx {
		if strackPool[unmatchIdx].GetSTrackState() == Tracked {
			remainTrackedStracks = append(remainTrackedStracks, strackPool[unmatchIdx])
		}
	}

	// Step 3: Second association, using low score dets
	var currentLostStracks []*STrack

	matchesIdx, unmatchTrackIdx, _, err = assign(
		iouDistance(remainTrackedStracks, detLowStracks),
		len(remainTrackedStracks), len(detLowStracks), 0.5,
	)

	if err != nil {
		return nil, fmt.Errorf("error in second association: %w", err)
	}

	for _, matchIdx := range matchesIdx {

		track := remainTrackedStracks[matchIdx[0]]
		det := detLowStracks[matchIdx[1]]

		if err := track.Update(det, bt.frameID); err != nil {
			return nil, fmt.Errorf("error in second association: %w", err)
		}
		currentTrackedStracks = append(currentTrackedStracks, track)
	}

	for _, unmatchTrack := range unmatchTrackIdx {
		track := remainTrackedStracks[unmatchTrack]
		if track.GetSTrackState() != Lost {
			track.MarkAsLost()
			currentLostStracks = append(currentLostStracks, track)
		}
	}

	// Step 4: Init new stracks
	var currentRemovedStracks []*STrack

	matchesIdx, unmatchUnconfirmedIdx, unmatchDetectionIdx, err := assign(
		iouDistance(nonActiveStracks, remainDetStracks),
		len(nonActiveStracks), len(remainDetStracks), 0.7,
	)

	if err != nil {
		return nil, fmt.Errorf("error in unconfirmed association: %w", err)
	}

	for _, matchIdx := range matchesIdx {
		track := nonActiveStracks[matchIdx[0]]

		if err := track.Update(remainDetStracks[matchIdx[1]], bt.frameID); err != nil {
			return nil, fmt.Errorf("error in unconfirmed association: %w", err)
		}
		currentTrackedStracks = append(currentTrackedStracks, track)
	}

	for _, unmatchIdx := range unmatchUnconfirmedIdx {
		track := nonActiveStracks[unmatchIdx]
		track.MarkAsRemoved()
		currentRemovedStracks = append(currentRemovedStracks, track)
	}

	for _, unmatchIdx := range unmatchDetectionIdx {
		track := remainDetStracks[unmatchIdx]
		if track.GetScore() < bt.highThresh {
			continue
		}
		bt.trackIDCount++
		track.Activate(bt.frameID, bt.trackIDCount)
		if bt.reportNew {
			track.isActivated = true
		}
		currentTrackedStracks = append(currentTrackedStracks, track)
	}

	// Step 5: Update state
	for _, lostStrack := range bt.lostStracks {
		if bt.frameID-lostStrack.GetFrameID() > bt.maxTimeLost {
			lostStrack.MarkAsRemoved()
			currentRemovedStracks = append(currentRemovedStracks, lostStrack)
		}
	}

	bt.trackedStracks = jointStracks(currentTrackedStracks, refindStracks)
	bt.lostStracks = subStracks(jointStracks(subStracks(bt.lostStracks, bt.trackedStracks), currentLostStracks), currentRemovedStracks)

	bt.trackedStracks, bt.lostStracks = removeDuplicateStracks(bt.trackedStracks, bt.lostStracks)

	var outputStracks []*STrack
	for _, track := range bt.trackedStracks {
		if track.IsActivated() {
			outputStracks = append(outputStracks, track)
		}
	}

	return outputStracks, nil
}

// jointStracks combines two lists of tracks, avoiding duplicates
func jointStracks(aTlist []*STrack, bTlist []*STrack) []*STrack {

	exists := make(map[int]bool, len(aTlist)+len(bTlist))
	res := make([]*STrack, 0, len(aTlist)+len(bTlist))

	for _, track := range aTlist {
		exists[track.GetTrackID()] = true
		res = append(res, track)
	}

	for _, track := range bTlist {
		tid := track.GetTrackID()

		if !exists[tid] {
			exists[tid] = true
			res = append(res, track)
		}
	}

	return res
}

// subStracks returns the tracks of aTlist not present in bTlist, keeping the
// order of aTlist
func subStracks(aTlist []*STrack, bTlist []*STrack) []*STrack {

	remove := make(map[int]bool, len(bTlist))
	for _, track := range bTlist {
		remove[track.GetTrackID()] = true
	}

	var res []*STrack
	for _, track := range aTlist {
		if !remove[track.GetTrackID()] {
			res = append(res, track)
		}
	}

	return res
}

// removeDuplicateStracks drops near identical tracks that exist in both
// lists, keeping whichever has been tracked the longest
func removeDuplicateStracks(aStracks, bStracks []*STrack) (aRes, bRes []*STrack) {

	dist := iouDistance(aStracks, bStracks)

	aDup := make([]bool, len(aStracks))
	bDup := make([]bool, len(bStracks))

	for i := range dist {
		for j := range dist[i] {
			if dist[i][j] >= 0.15 {
				continue
			}

			timep := aStracks[i].GetFrameID() - aStracks[i].GetStartFrameID()
			timeq := bStracks[j].GetFrameID() - bStracks[j].GetStartFrameID()

			if timep > timeq {
				bDup[j] = true
			} else {
				aDup[i] = true
			}
		}
	}

	for i, dup := range aDup {
		if !dup {
			aRes = append(aRes, aStracks[i])
		}
	}

	for i, dup := range bDup {
		if !dup {
			bRes = append(bRes, bStracks[i])
		}
	}

	return aRes, bRes
}
