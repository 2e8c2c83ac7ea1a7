package postprocess

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-detrack/postprocess/result"
)

func box(class int, conf, xmin, ymin, xmax, ymax float32) result.Bbox {
	return result.Bbox{Xmin: xmin, Ymin: ymin, Xmax: xmax, Ymax: ymax,
		Class: class, DetectorConfidence: conf}
}

func TestNMSPerClassIsolation(t *testing.T) {
	boxes := result.NewClassBoxes(2)
	boxes[0] = []result.Bbox{box(0, 0.8, 10, 10, 50, 50)}
	boxes[1] = []result.Bbox{box(1, 0.9, 10, 10, 50, 50)}

	out := NMS(boxes, 0.5)
	assert.Len(t, out[0], 1)
	assert.Len(t, out[1], 1)

	same := result.NewClassBoxes(1)
	same[0] = []result.Bbox{
		box(0, 0.7, 10, 10, 50, 50),
		box(0, 0.9, 10, 10, 50, 50),
	}

	out = NMS(same, 0.5)
	require.Len(t, out[0], 1)
	assert.Equal(t, float32(0.9), out[0][0].DetectorConfidence)
}

func TestNMSOrderAndThreshold(t *testing.T) {
	boxes := result.NewClassBoxes(1)
	boxes[0] = []result.Bbox{
		box(0, 0.5, 200, 200, 240, 240),
		box(0, 0.9, 0, 0, 10, 10),
		box(0, 0.8, 5, 0, 15, 10), // IoU 1/3 with the first
		box(0, 0.7, 1, 0, 11, 10), // IoU 0.818 with the first
	}

	out := NMS(boxes, 0.45)
	require.Len(t, out[0], 3)
	assert.Equal(t, []float32{0.9, 0.8, 0.5}, []float32{
		out[0][0].DetectorConfidence,
		out[0][1].DetectorConfidence,
		out[0][2].DetectorConfidence,
	})

	// IoU equal to threshold is kept
	out = NMS(boxes, 1.0/3)
	assert.Len(t, out[0], 3)
}

func TestNMSStableOnTies(t *testing.T) {
	boxes := result.NewClassBoxes(1)
	boxes[0] = []result.Bbox{
		box(0, 0.9, 0, 0, 10, 10),
		box(0, 0.9, 100, 0, 110, 10),
		box(0, 0.9, 200, 0, 210, 10),
	}
	boxes[0][0].DetectionID = 1
	boxes[0][1].DetectionID = 2
	boxes[0][2].DetectionID = 3

	out := NMS(boxes, 0.5)
	require.Len(t, out[0], 3)
	for i, b := range out[0] {
		assert.Equal(t, int64(i+1), b.DetectionID)
	}
}

func randomBoxes(r *rand.Rand, n int) []result.Bbox {
	out := make([]result.Bbox, n)
	for i := range out {
		x := r.Float32() * 600
		y := r.Float32() * 340
		w := 5 + r.Float32()*60
		h := 5 + r.Float32()*60
		out[i] = box(0, r.Float32(), x, y, x+w, y+h)
		out[i].DetectionID = int64(i)
	}
	return out
}

func TestNMSIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for _, n := range []int{10, 40, 300} {
		boxes := result.NewClassBoxes(1)
		boxes[0] = randomBoxes(r, n)

		once := NMS(boxes, 0.45)
		twice := NMS(once, 0.45)

		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("n=%d second NMS changed result (-once +twice):\n%s", n, diff)
		}
	}
}

func TestNMSIndexedMatchesGreedy(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for _, thresh := range []float32{0.1, 0.45, 0.7} {
		sorted := sortByConfidence(randomBoxes(r, 500))

		greedy := nmsGreedy(sorted, thresh)
		indexed := nmsIndexed(sorted, thresh)

		if diff := cmp.Diff(greedy, indexed); diff != "" {
			t.Errorf("threshold %v indexed NMS differs (-greedy +indexed):\n%s", thresh, diff)
		}
	}
}
