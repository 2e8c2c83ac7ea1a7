package tracker

import (
	"image"
	"sync"

	"github.com/swdee/go-detrack/postprocess/result"
)

// Trail keeps a history of the center points of tracked boxes used for
// drawing the path an object has taken
type Trail struct {
	// size is the maximum number of most recent points to keep per track
	size int
	// history of points per tracker ID
	history map[int64][]image.Point
	// lastSeen is the frame each tracker ID was last added in
	lastSeen map[int64]int
	// frame counts calls to Add
	frame int
	sync.Mutex
}

// NewTrail returns a new trail history keeping at most size points per track
func NewTrail(size int) *Trail {
	return &Trail{
		size:     size,
		history:  make(map[int64][]image.Point),
		lastSeen: make(map[int64]int),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.history = make(map[int64][]image.Point)
	t.lastSeen = make(map[int64]int)
	t.frame = 0
}

// Add records the centers of the tracked boxes of a frame.  Untracked boxes
// are ignored.  History of tracks missing for more than size frames is
// discarded.
func (t *Trail) Add(boxes result.ClassBoxes) {
	t.Lock()
	defer t.Unlock()

	t.frame++

	for _, list := range boxes {
		for _, b := range list {
			if !b.Tracked() {
				continue
			}

			id := *b.TrackerID
			x, y := b.Center()
			points := append(t.history[id], image.Pt(int(x), int(y)))

			if len(points) > t.size {
				points = points[len(points)-t.size:]
			}

			t.history[id] = points
			t.lastSeen[id] = t.frame
		}
	}

	for id, seen := range t.lastSeen {
		if t.frame-seen > t.size {
			delete(t.history, id)
			delete(t.lastSeen, id)
		}
	}
}

// Points returns a copy of the point history for a tracker ID
func (t *Trail) Points(id int64) []image.Point {
	t.Lock()
	defer t.Unlock()

	points := t.history[id]

	if len(points) == 0 {
		return nil
	}

	return append([]image.Point(nil), points...)
}
