package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/swdee/go-detrack/postprocess/result"
)

func TestRemapRoundTrip(t *testing.T) {
	scaled := result.ImgDimensions{Width: 640, Height: 360}
	original := result.ImgDimensions{Width: 1920, Height: 1080}

	boxes := result.NewClassBoxes(2)
	boxes[1] = []result.Bbox{{
		Xmin: 12.5, Ymin: 33.25, Xmax: 140.75, Ymax: 359.5, Class: 1,
		Aux: []result.KeyPoint{{X: 20, Y: 40, Visibility: 0.9}},
	}}

	toOriginal := NewRemapper(scaled, original)
	up := toOriginal.Remap(boxes)

	assert.InDelta(t, 37.5, up[1][0].Xmin, 1e-3)
	assert.InDelta(t, 1078.5, up[1][0].Ymax, 1e-3)
	assert.InDelta(t, 60, up[1][0].Aux[0].X, 1e-3)
	// input untouched
	assert.Equal(t, float32(20), boxes[1][0].Aux[0].X)

	back := toOriginal.Inverse().Remap(up)
	in, out := boxes[1][0], back[1][0]

	for i, pair := range [][2]float32{
		{in.Xmin, out.Xmin}, {in.Ymin, out.Ymin},
		{in.Xmax, out.Xmax}, {in.Ymax, out.Ymax},
		{in.Aux[0].X, out.Aux[0].X}, {in.Aux[0].Y, out.Aux[0].Y},
	} {
		assert.InEpsilon(t, pair[0], pair[1], 1e-3, "coordinate %d", i)
	}
}

func TestRatioRemapper(t *testing.T) {
	r := RatioRemapper(1.0 / 3)
	b := r.Box(result.Bbox{Xmin: 10, Ymin: 20, Xmax: 30, Ymax: 40})
	assert.InDelta(t, 30, b.Xmin, 1e-4)
	assert.InDelta(t, 120, b.Ymax, 1e-4)
}
