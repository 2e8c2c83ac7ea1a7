package render

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/swdee/go-detrack/postprocess/result"
)

// CV is a Renderer drawing with OpenCV
type CV struct {
	opts Options
	font Font
}

// NewCV returns an OpenCV renderer
func NewCV(opts Options) *CV {
	return &CV{
		opts: opts,
		font: FontForHeight(opts.LegendSize),
	}
}

// Annotate draws the boxes onto a copy of img
func (c *CV) Annotate(img image.Image, boxes result.ClassBoxes) (image.Image, error) {

	if img == nil {
		return nil, ErrNoImage
	}

	mat, err := gocv.ImageToMatRGB(img)

	if err != nil {
		return nil, fmt.Errorf("error converting image to mat: %w", err)
	}

	defer mat.Close()

	c.Draw(&mat, boxes)

	out, err := mat.ToImage()

	if err != nil {
		return nil, fmt.Errorf("error converting mat to image: %w", err)
	}

	return out, nil
}

// Draw renders the boxes directly onto a Mat
func (c *CV) Draw(img *gocv.Mat, boxes result.ClassBoxes) {

	type legend struct {
		rect    image.Rectangle
		text    string
		textPos image.Point
	}

	var legends []legend

	for class, list := range boxes {
		for _, b := range list {

			rect := box(b)
			gocv.Rectangle(img, rect, BoxColor(b), c.opts.LineThickness)

			if c.opts.KeyPoints {
				c.drawKeyPoints(img, b)
			}

			c.drawTrail(img, b)

			if c.opts.LegendSize <= 0 {
				continue
			}

			text := Legend(c.opts.labelName(class), b)
			textSize := gocv.GetTextSize(text, c.font.Face, c.font.Scale, c.font.Thickness)

			legends = append(legends, legend{
				rect: image.Rect(rect.Min.X, rect.Min.Y,
					rect.Min.X+textSize.X+2*c.font.LeftPad, rect.Min.Y+c.opts.LegendSize),
				text:    text,
				textPos: image.Pt(rect.Min.X+c.font.LeftPad, rect.Min.Y+c.opts.LegendSize-c.font.TopPad-1),
			})
		}
	}

	// draw all precalculated legends so they are the top most layer on the
	// image and don't get overlapped by other boxes
	for _, l := range legends {
		gocv.Rectangle(img, l.rect, LegendRed, -1)

		gocv.PutTextWithParams(img, l.text, l.textPos,
			c.font.Face, c.font.Scale, c.font.Color, c.font.Thickness,
			c.font.LineType, false)
	}
}

func (c *CV) drawKeyPoints(img *gocv.Mat, b result.Bbox) {

	limbs, joints := poseShapes(b.Aux)

	for _, l := range limbs {
		gocv.Line(img, l.from, l.to, l.clr, c.opts.LineThickness)
	}

	for _, j := range joints {
		gocv.Circle(img, j.at, 3, j.clr, -1)
	}
}

func (c *CV) drawTrail(img *gocv.Mat, b result.Bbox) {

	style := c.opts.TrailStyle
	points, lineClr, circleClr, ok := trailPath(c.opts.Trail, b, style)

	if !ok {
		return
	}

	for i := 1; i < len(points); i++ {
		gocv.Line(img, points[i-1], points[i], lineClr, style.LineThickness)
	}

	gocv.Circle(img, points[len(points)-1], style.CircleRadius, circleClr, -1)
}
