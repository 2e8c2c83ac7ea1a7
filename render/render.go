// Package render draws detection and tracking results onto frames.
package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/swdee/go-detrack/postprocess/result"
	"github.com/swdee/go-detrack/tracker"
)

// ErrNoImage is returned when annotating a nil image
var ErrNoImage = errors.New("no image to annotate")

// Renderer annotates a frame with the boxes found in it.  Boxes are in the
// pixel space of img.  The returned image may be a copy.
type Renderer interface {
	Annotate(img image.Image, boxes result.ClassBoxes) (image.Image, error)
}

// Options are the drawing settings shared by all renderers
type Options struct {
	// Labels are the class names used in legends
	Labels []string
	// LegendSize is the height in pixels of the legend drawn at the top of
	// each box, 0 disables legends
	LegendSize int
	// LineThickness of the box outline
	LineThickness int
	// Trail draws the path of tracked boxes when set
	Trail *tracker.Trail
	// TrailStyle of the trail lines
	TrailStyle TrailStyle
	// KeyPoints draws pose keypoints carried by boxes
	KeyPoints bool
}

// DefaultOptions returns options drawing legends of 14 pixels
func DefaultOptions(labels []string) Options {
	return Options{
		Labels:        labels,
		LegendSize:    14,
		LineThickness: 1,
		TrailStyle:    DefaultTrailStyle(),
		KeyPoints:     true,
	}
}

// labelName returns the class name or a placeholder when unknown
func (o Options) labelName(class int) string {
	if class < 0 || class >= len(o.Labels) {
		return fmt.Sprintf("class%d", class)
	}
	return o.Labels[class]
}

// Legend returns the text drawn above a box, the class name, tracker ID and
// the detector and tracker confidence as percentages.  Untracked boxes show
// "-" instead of an ID and omit the tracker confidence.
func Legend(name string, b result.Bbox) string {
	if !b.Tracked() {
		return fmt.Sprintf("%s - %.0f%%", name, 100*b.DetectorConfidence)
	}

	return fmt.Sprintf("%s %d %.0f%% %.0f%%", name, *b.TrackerID,
		100*b.DetectorConfidence, 100*b.TrackerConfidence)
}

// box returns the integer pixel rectangle of a box
func box(b result.Bbox) image.Rectangle {
	return image.Rect(int(b.Xmin), int(b.Ymin), int(b.Xmax), int(b.Ymax))
}
