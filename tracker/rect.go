package tracker

import "github.com/chewxy/math32"

// Xyah (center x, center y, aspect ratio, height) is the box geometry the
// Kalman filter's motion model works in.  Aspect ratio is width/height.
type Xyah [4]float32

// XyahFromCorners converts corner coordinates into Xyah format
func XyahFromCorners(xmin, ymin, xmax, ymax float32) Xyah {
	w := xmax - xmin
	h := ymax - ymin
	return Xyah{xmin + w/2, ymin + h/2, w / h, h}
}

// Width returns the width, aspect ratio times height
func (g Xyah) Width() float32 {
	return g[2] * g[3]
}

// Corners converts back into (xmin, ymin, xmax, ymax)
func (g Xyah) Corners() (xmin, ymin, xmax, ymax float32) {
	w := g.Width()
	xmin = g[0] - w/2
	ymin = g[1] - g[3]/2
	return xmin, ymin, xmin + w, ymin + g[3]
}

// Rect is a rectangle in top, left, width, height format
type Rect struct {
	X, Y, W, H float32
}

// RectFromXyah creates a Rect from Xyah format
func RectFromXyah(g Xyah) Rect {
	xmin, ymin, _, _ := g.Corners()
	return Rect{X: xmin, Y: ymin, W: g.Width(), H: g[3]}
}

// TLX returns the top-left x coordinate of the rectangle
func (r Rect) TLX() float32 {
	return r.X
}

// TLY returns the top-left y coordinate of the rectangle
func (r Rect) TLY() float32 {
	return r.Y
}

// BRX returns the bottom-right x coordinate of the rectangle
func (r Rect) BRX() float32 {
	return r.X + r.W
}

// BRY returns the bottom-right y coordinate of the rectangle
func (r Rect) BRY() float32 {
	return r.Y + r.H
}

// Xyah converts the rectangle to Xyah format
func (r Rect) Xyah() Xyah {
	return Xyah{r.X + r.W/2, r.Y + r.H/2, r.W / r.H, r.H}
}

// IoU calculates the Intersection over Union with another rectangle treating
// the coordinates as inclusive pixel indices, so adjacent boxes one pixel
// apart still overlap
func (r Rect) IoU(o Rect) float32 {

	iw := math32.Min(r.BRX(), o.BRX()) - math32.Max(r.X, o.X) + 1

	if iw <= 0 {
		return 0
	}

	ih := math32.Min(r.BRY(), o.BRY()) - math32.Max(r.Y, o.Y) + 1

	if ih <= 0 {
		return 0
	}

	union := (r.W+1)*(r.H+1) + (o.W+1)*(o.H+1) - iw*ih

	return iw * ih / union
}
