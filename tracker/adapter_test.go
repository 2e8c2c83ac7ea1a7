package tracker

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-detrack/postprocess/result"
)

// echoTracker returns every observation as a track with an ID derived from
// the detection ID
type echoTracker struct {
	resets int
	fail   error
}

func (e *echoTracker) Predict(obs []Observation) ([]Track, error) {
	if e.fail != nil {
		return nil, e.fail
	}

	tracks := make([]Track, len(obs))

	for i, o := range obs {
		tracks[i] = Track{
			ID:          o.DetectionID * 100,
			Geometry:    o.Geometry,
			Confidence:  o.Confidence / 2,
			ClassID:     o.ClassID,
			DetectionID: o.DetectionID,
		}
	}

	return tracks, nil
}

func (e *echoTracker) Reset() {
	e.resets++
}

func box(xmin, ymin, xmax, ymax float32, class int, conf float32, id int64) result.Bbox {
	return result.Bbox{
		Xmin: xmin, Ymin: ymin, Xmax: xmax, Ymax: ymax,
		Class:              class,
		DetectorConfidence: conf,
		DetectionID:        id,
	}
}

func TestAdapterStableIdentity(t *testing.T) {

	adapter := NewAdapter(NewBYTETrackerFromConfig(DefaultConfig()), 2)
	canvas := result.ImgDimensions{Width: 640, Height: 480}

	var ids []int64

	for frame := 0; frame < 3; frame++ {
		boxes := result.NewClassBoxes(2)
		boxes[1] = append(boxes[1], box(100, 120, 180, 300, 1, 0.9, 0))

		tracked, err := adapter.Update(boxes, canvas)
		require.NoError(t, err)
		require.Len(t, tracked[1], 1, "frame %d", frame)
		require.Empty(t, tracked[0])

		b := tracked[1][0]
		require.True(t, b.Tracked())

		ids = append(ids, *b.TrackerID)

		assert.InDelta(t, 0.9, b.DetectorConfidence, 1e-6)
		assert.InDelta(t, 0.9, b.TrackerConfidence, 1e-6)
		assert.InDelta(t, 100, b.Xmin, 0.5)
		assert.InDelta(t, 300, b.Ymax, 0.5)
	}

	assert.Equal(t, []int64{ids[0], ids[0], ids[0]}, ids)
}

func TestAdapterRegroupRoundTrip(t *testing.T) {

	boxes := result.NewClassBoxes(3)
	boxes[0] = append(boxes[0], box(10, 10, 50, 50, 0, 0.8, 1), box(60, 60, 90, 120, 0, 0.7, 2))
	boxes[2] = append(boxes[2], box(200, 100, 260, 220, 2, 0.95, 3))
	boxes[2][0].Aux = []result.KeyPoint{{X: 210, Y: 110, Visibility: 0.9}}

	adapter := NewAdapter(&echoTracker{}, 3)

	tracked, err := adapter.Update(boxes, result.ImgDimensions{Width: 640, Height: 480})
	require.NoError(t, err)
	require.Len(t, tracked, 3)

	for c := range boxes {
		require.Len(t, tracked[c], len(boxes[c]), "class %d", c)

		for i, want := range boxes[c] {
			got := tracked[c][i]

			assert.Equal(t, want.DetectionID*100, *got.TrackerID)
			assert.Equal(t, c, got.Class)
			assert.InDelta(t, want.DetectorConfidence, got.DetectorConfidence, 1e-6)
			assert.InDelta(t, want.DetectorConfidence/2, got.TrackerConfidence, 1e-6)
			assert.InDelta(t, want.Xmin, got.Xmin, 1e-3)
			assert.InDelta(t, want.Ymin, got.Ymin, 1e-3)
			assert.InDelta(t, want.Xmax, got.Xmax, 1e-3)
			assert.InDelta(t, want.Ymax, got.Ymax, 1e-3)

			if diff := cmp.Diff(want.Aux, got.Aux); diff != "" {
				t.Errorf("aux mismatch (-want +got):\n%s", diff)
			}
		}
	}
}

func TestAdapterClampsToCanvas(t *testing.T) {

	boxes := result.NewClassBoxes(1)
	boxes[0] = append(boxes[0],
		box(600, 400, 700, 520, 0, 0.9, 1),
		box(700, 500, 800, 600, 0, 0.9, 2),
	)

	tracked, err := NewAdapter(&echoTracker{}, 1).Update(boxes, result.ImgDimensions{Width: 640, Height: 480})
	require.NoError(t, err)

	// the second box lies fully outside the canvas and is dropped
	require.Len(t, tracked[0], 1)
	assert.InDelta(t, 640, tracked[0][0].Xmax, 1e-3)
	assert.InDelta(t, 480, tracked[0][0].Ymax, 1e-3)
}

func TestAdapterAssignsDetectionIDs(t *testing.T) {

	boxes := result.NewClassBoxes(1)
	boxes[0] = append(boxes[0], box(0, 0, 10, 10, 0, 0.9, 0), box(20, 20, 40, 40, 0, 0.9, 0))

	tracked, err := NewAdapter(&echoTracker{}, 1).Update(boxes, result.ImgDimensions{Width: 100, Height: 100})
	require.NoError(t, err)
	require.Len(t, tracked[0], 2)

	assert.NotZero(t, tracked[0][0].DetectionID)
	assert.NotEqual(t, tracked[0][0].DetectionID, tracked[0][1].DetectionID)

	// the caller's boxes are left untouched
	assert.Zero(t, boxes[0][0].DetectionID)
	assert.Zero(t, boxes[0][1].DetectionID)
}

func TestAdapterKeepsEveryDetection(t *testing.T) {

	canvas := result.ImgDimensions{Width: 640, Height: 480}

	t.Run("low confidence", func(t *testing.T) {
		adapter := NewAdapter(NewBYTETrackerFromConfig(DefaultConfig()), 1)

		var ids []int64

		for frame := 0; frame < 3; frame++ {
			boxes := result.NewClassBoxes(1)
			boxes[0] = append(boxes[0], box(40, 40, 120, 200, 0, 0.4, 0))

			tracked, err := adapter.Update(boxes, canvas)
			require.NoError(t, err)
			require.Len(t, tracked[0], 1, "frame %d", frame)

			ids = append(ids, *tracked[0][0].TrackerID)
			assert.InDelta(t, 0.4, tracked[0][0].DetectorConfidence, 1e-6)
		}

		assert.Equal(t, []int64{ids[0], ids[0], ids[0]}, ids)
	})

	t.Run("late arrival", func(t *testing.T) {
		adapter := NewAdapter(NewBYTETrackerFromConfig(DefaultConfig()), 1)

		tracked, err := adapter.Update(result.NewClassBoxes(1), canvas)
		require.NoError(t, err)
		require.Empty(t, tracked[0])

		boxes := result.NewClassBoxes(1)
		boxes[0] = append(boxes[0], box(300, 100, 380, 260, 0, 0.9, 0))

		tracked, err = adapter.Update(boxes, canvas)
		require.NoError(t, err)
		require.Len(t, tracked[0], 1)
		assert.True(t, tracked[0][0].Tracked())
	})
}

func TestAdapterErrors(t *testing.T) {

	canvas := result.ImgDimensions{Width: 100, Height: 100}

	t.Run("too many classes", func(t *testing.T) {
		_, err := NewAdapter(&echoTracker{}, 1).Update(result.NewClassBoxes(2), canvas)
		assert.ErrorIs(t, err, ErrUnknownClass)
	})

	t.Run("tracker failure", func(t *testing.T) {
		fail := errors.New("boom")
		boxes := result.NewClassBoxes(1)
		boxes[0] = append(boxes[0], box(0, 0, 10, 10, 0, 0.9, 1))

		_, err := NewAdapter(&echoTracker{fail: fail}, 1).Update(boxes, canvas)
		assert.ErrorIs(t, err, fail)
	})

	t.Run("regroup unknown class", func(t *testing.T) {
		_, err := Regroup([]result.Bbox{box(0, 0, 1, 1, 5, 0.5, 1)}, 3)
		assert.ErrorIs(t, err, ErrUnknownClass)
	})
}

func TestAdapterReset(t *testing.T) {
	tr := &echoTracker{}
	adapter := NewAdapter(tr, 1)
	adapter.Reset()
	assert.Equal(t, 1, tr.resets)
}

func TestAdapterConcurrentUpdates(t *testing.T) {

	adapter := NewAdapter(NewBYTETrackerFromConfig(DefaultConfig()), 1)
	canvas := result.ImgDimensions{Width: 640, Height: 480}

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			boxes := result.NewClassBoxes(1)
			boxes[0] = append(boxes[0], box(10, 10, 100, 100, 0, 0.9, 0))
			_, err := adapter.Update(boxes, canvas)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()
}

func TestTrail(t *testing.T) {

	trail := NewTrail(2)

	id := int64(4)
	frame := func(x float32) result.ClassBoxes {
		b := box(x, 0, x+10, 10, 0, 0.9, 1)
		b.TrackerID = &id
		return result.ClassBoxes{{b, box(0, 0, 5, 5, 0, 0.9, 2)}}
	}

	trail.Add(frame(0))
	trail.Add(frame(10))
	trail.Add(frame(20))

	points := trail.Points(id)
	require.Len(t, points, 2)
	assert.Equal(t, 15, points[0].X)
	assert.Equal(t, 25, points[1].X)

	// history expires once the track has been absent for longer than size
	for i := 0; i < 3; i++ {
		trail.Add(result.NewClassBoxes(1))
	}
	assert.Nil(t, trail.Points(id))
}
