package render

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-detrack/postprocess/result"
	"github.com/swdee/go-detrack/tracker"
)

func trackedBox(id int64, xmin, ymin, xmax, ymax float32) result.Bbox {
	return result.Bbox{
		Xmin: xmin, Ymin: ymin, Xmax: xmax, Ymax: ymax,
		DetectorConfidence: 0.87,
		TrackerConfidence:  0.5,
		TrackerID:          &id,
	}
}

func TestLegend(t *testing.T) {

	b := trackedBox(7, 0, 0, 10, 10)
	assert.Equal(t, "person 7 87% 50%", Legend("person", b))

	b.TrackerID = nil
	assert.Equal(t, "person - 87%", Legend("person", b))
}

func TestLabelName(t *testing.T) {

	opts := DefaultOptions([]string{"person", "car"})

	assert.Equal(t, "car", opts.labelName(1))
	assert.Equal(t, "class5", opts.labelName(5))
	assert.Equal(t, "class-1", opts.labelName(-1))
}

func TestBoxColor(t *testing.T) {

	a := trackedBox(1, 0, 0, 1, 1)
	b := trackedBox(1+int64(len(classColors)), 0, 0, 1, 1)
	assert.Equal(t, BoxColor(a), BoxColor(b))

	untracked := result.Bbox{Class: 2}
	assert.Equal(t, classColors[2], BoxColor(untracked))
}

func TestPoseShapes(t *testing.T) {

	points := make([]result.KeyPoint, keyPointsTotal)
	for i := range points {
		points[i] = result.KeyPoint{X: float32(i), Y: float32(i), Visibility: 1}
	}

	limbs, joints := poseShapes(points)
	assert.Len(t, limbs, len(skeleton)/2)
	assert.Len(t, joints, keyPointsTotal)

	// hide the nose, removing the limbs joined to it
	points[0].Visibility = 0.1
	limbs, joints = poseShapes(points)
	assert.Len(t, joints, keyPointsTotal-1)
	assert.Less(t, len(limbs), len(skeleton)/2)

	// non pose point sets have no skeleton
	limbs, joints = poseShapes(points[:3])
	assert.Empty(t, limbs)
	assert.Len(t, joints, 2)
}

func TestTrailPath(t *testing.T) {

	trail := tracker.NewTrail(10)
	style := DefaultTrailStyle()
	b := trackedBox(3, 10, 10, 20, 20)

	_, _, _, ok := trailPath(trail, b, style)
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		b.Xmin += 2
		b.Xmax += 2
		boxes := result.ClassBoxes{{b}}
		trail.Add(boxes)
	}

	points, lineClr, circleClr, ok := trailPath(trail, b, style)
	require.True(t, ok)
	assert.Len(t, points, 3)
	assert.Equal(t, style.LineColor, lineClr)
	assert.Equal(t, BoxColor(b), circleClr)

	_, _, _, ok = trailPath(nil, b, style)
	assert.False(t, ok)
}

func TestGGAnnotate(t *testing.T) {

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	g, err := NewGG(DefaultOptions([]string{"person"}))
	require.NoError(t, err)

	b := trackedBox(0, 8, 8, 40, 40)
	out, err := g.Annotate(img, result.ClassBoxes{{b}})
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), out.Bounds())

	// legend background is painted at the top left of the box
	r, gr, bl, _ := out.At(9, 9).RGBA()
	assert.Equal(t, uint32(LegendRed.R)*0x101, r)
	assert.Equal(t, uint32(0), gr)
	assert.Equal(t, uint32(0), bl)

	// the source image is left untouched
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(9, 9))
}

func TestGGNoLegend(t *testing.T) {

	opts := DefaultOptions(nil)
	opts.LegendSize = 0

	g, err := NewGG(opts)
	require.NoError(t, err)
	assert.Nil(t, g.face)

	_, err = g.Annotate(nil, nil)
	assert.ErrorIs(t, err, ErrNoImage)
}
