package render

import (
	"fmt"
	"image"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"

	"github.com/swdee/go-detrack/postprocess/result"
)

// GG is a pure Go Renderer drawing with the gg 2D graphics library
type GG struct {
	opts Options
	// face is the legend font, nil when legends are disabled
	face font.Face
	// mu guards face which holds glyph caches
	mu sync.Mutex
}

// NewGG returns a GG renderer using the monospaced Go font for legends
func NewGG(opts Options) (*GG, error) {

	g := &GG{opts: opts}

	if opts.LegendSize <= 0 {
		return g, nil
	}

	f, err := opentype.Parse(gomono.TTF)

	if err != nil {
		return nil, fmt.Errorf("error parsing legend font: %w", err)
	}

	// leave a pixel of the legend box free around the text
	size := float64(opts.LegendSize - 1)
	if size < 1 {
		size = 1
	}

	g.face, err = opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("error creating legend font face: %w", err)
	}

	return g, nil
}

// Annotate draws the boxes, keypoints, trails and legends onto a copy of img
func (g *GG) Annotate(img image.Image, boxes result.ClassBoxes) (image.Image, error) {

	if img == nil {
		return nil, ErrNoImage
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	dc := gg.NewContextForImage(img)
	lw := float64(g.opts.LineThickness)

	for _, list := range boxes {
		for _, b := range list {
			clr := BoxColor(b)

			dc.SetColor(clr)
			dc.SetLineWidth(lw)
			dc.DrawRectangle(float64(b.Xmin), float64(b.Ymin), float64(b.Width()), float64(b.Height()))
			dc.Stroke()

			if g.opts.KeyPoints {
				g.drawKeyPoints(dc, b)
			}

			g.drawTrail(dc, b)
		}
	}

	// legends are drawn last so they are the top most layer
	if g.face != nil {
		dc.SetFontFace(g.face)
		ascent := float64(g.face.Metrics().Ascent.Ceil())
		h := float64(g.opts.LegendSize)

		for class, list := range boxes {
			for _, b := range list {
				text := Legend(g.opts.labelName(class), b)
				w, _ := dc.MeasureString(text)

				x := float64(b.Xmin)
				y := float64(b.Ymin)

				dc.SetColor(LegendRed)
				dc.DrawRectangle(x, y, w+4, h)
				dc.Fill()

				dc.SetColor(White)
				dc.DrawString(text, x+2, y+ascent)
			}
		}
	}

	return dc.Image(), nil
}

func (g *GG) drawKeyPoints(dc *gg.Context, b result.Bbox) {

	limbs, joints := poseShapes(b.Aux)

	dc.SetLineWidth(float64(g.opts.LineThickness))

	for _, l := range limbs {
		dc.SetColor(l.clr)
		dc.DrawLine(float64(l.from.X), float64(l.from.Y), float64(l.to.X), float64(l.to.Y))
		dc.Stroke()
	}

	for _, j := range joints {
		dc.SetColor(j.clr)
		dc.DrawCircle(float64(j.at.X), float64(j.at.Y), 3)
		dc.Fill()
	}
}

func (g *GG) drawTrail(dc *gg.Context, b result.Bbox) {

	style := g.opts.TrailStyle
	points, lineClr, circleClr, ok := trailPath(g.opts.Trail, b, style)

	if !ok {
		return
	}

	dc.SetColor(lineClr)
	dc.SetLineWidth(float64(style.LineThickness))

	for i := 1; i < len(points); i++ {
		dc.DrawLine(float64(points[i-1].X), float64(points[i-1].Y),
			float64(points[i].X), float64(points[i].Y))
		dc.Stroke()
	}

	last := points[len(points)-1]
	dc.SetColor(circleClr)
	dc.DrawCircle(float64(last.X), float64(last.Y), float64(style.CircleRadius))
	dc.Fill()
}
