package render

import (
	"image"
	"image/color"

	"github.com/swdee/go-detrack/postprocess/result"
	"github.com/swdee/go-detrack/tracker"
)

// TrailStyle defines the parameters used for rendering the trail style
type TrailStyle struct {
	// LineSame defines if the color of the trail line should be the
	// same color as that of the bounding box.  If set to false then use
	// the color specified at LineColor
	LineSame      bool
	LineColor     color.RGBA
	LineThickness int
	// CircleSame defines if the color of the midpoint circle should be the
	// same color as that of the bounding box.  If set to false then use
	// the color specified at CircleColor
	CircleSame   bool
	CircleColor  color.RGBA
	CircleRadius int
}

// DefaultTrailStyle returns default trail style settings
func DefaultTrailStyle() TrailStyle {
	return TrailStyle{
		LineSame:      false,
		LineColor:     Yellow,
		LineThickness: 1,
		CircleSame:    true,
		CircleColor:   Pink,
		CircleRadius:  3,
	}
}

// trailPath returns the trail points of a tracked box along with the line
// and circle colors to draw it with.  ok is false when there is no trail
// long enough to draw.
func trailPath(trail *tracker.Trail, b result.Bbox, style TrailStyle) (points []image.Point,
	lineClr, circleClr color.RGBA, ok bool) {

	if trail == nil || !b.Tracked() {
		return nil, lineClr, circleClr, false
	}

	points = trail.Points(*b.TrackerID)

	if len(points) <= 2 {
		return nil, lineClr, circleClr, false
	}

	objClr := BoxColor(b)
	lineClr, circleClr = objClr, objClr

	if !style.LineSame {
		lineClr = style.LineColor
	}

	if !style.CircleSame {
		circleClr = style.CircleColor
	}

	return points, lineClr, circleClr, true
}
