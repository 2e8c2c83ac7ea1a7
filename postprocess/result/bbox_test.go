package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBboxDropsDegenerate(t *testing.T) {
	_, ok := NewBbox(10, 10, 10, 20, 0, 0.9)
	assert.False(t, ok, "zero width")

	_, ok = NewBbox(10, 20, 30, 5, 0, 0.9)
	assert.False(t, ok, "negative height")

	b, ok := NewBbox(1, 2, 3, 4, 5, 0.5)
	require.True(t, ok)
	assert.Equal(t, 5, b.Class)
	assert.False(t, b.Tracked())
}

func TestIoU(t *testing.T) {
	a := Bbox{Xmin: 0, Ymin: 0, Xmax: 10, Ymax: 10}
	b := Bbox{Xmin: 5, Ymin: 0, Xmax: 15, Ymax: 10}
	c := Bbox{Xmin: 20, Ymin: 20, Xmax: 30, Ymax: 30}
	touching := Bbox{Xmin: 10, Ymin: 0, Xmax: 20, Ymax: 10}

	assert.InDelta(t, 1.0, IoU(a, a), 1e-6)
	assert.InDelta(t, 50.0/150.0, IoU(a, b), 1e-6)
	assert.Equal(t, float32(0), IoU(a, c))
	assert.Equal(t, float32(0), IoU(a, touching))
}

func TestClampTo(t *testing.T) {
	b := Bbox{Xmin: -5, Ymin: -1, Xmax: 700, Ymax: 300}
	c := b.ClampTo(ImgDimensions{Width: 640, Height: 360})
	assert.Equal(t, Bbox{Xmin: 0, Ymin: 0, Xmax: 640, Ymax: 300}, c)
}

func TestClassBoxes(t *testing.T) {
	cb := NewClassBoxes(3)
	cb[0] = append(cb[0], Bbox{Class: 0})
	cb[2] = append(cb[2], Bbox{Class: 2, Aux: []KeyPoint{{X: 1}}}, Bbox{Class: 2})

	assert.Equal(t, 3, cb.Count())
	assert.Len(t, cb.Flatten(), 3)

	clone := cb.Clone()
	clone[2][0].Aux[0].X = 99
	assert.Equal(t, float32(1), cb[2][0].Aux[0].X)
}

func TestImgDimensionsScale(t *testing.T) {
	d := NewImgDimensions(640, 360).Scale(0.5)
	assert.Equal(t, ImgDimensions{Width: 320, Height: 180}, d)
	assert.False(t, d.Empty())
	assert.True(t, ImgDimensions{}.Empty())
}
