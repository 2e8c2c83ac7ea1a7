package postprocess

import "github.com/swdee/go-detrack/postprocess/result"

// Remapper maps box coordinates between the scaled (canvas) space and the
// original frame's pixel space
type Remapper struct {
	// ScaleX and ScaleY multiply x and y coordinates respectively
	ScaleX float32
	ScaleY float32
}

// NewRemapper returns a Remapper from the space the scaled image occupies in
// the canvas to the original image space
func NewRemapper(scaled, original result.ImgDimensions) Remapper {
	return Remapper{
		ScaleX: original.Width / scaled.Width,
		ScaleY: original.Height / scaled.Height,
	}
}

// RatioRemapper returns a Remapper undoing a letterbox scale ratio
func RatioRemapper(ratio float32) Remapper {
	return Remapper{ScaleX: 1 / ratio, ScaleY: 1 / ratio}
}

// Inverse returns the Remapper for the opposite direction
func (r Remapper) Inverse() Remapper {
	return Remapper{ScaleX: 1 / r.ScaleX, ScaleY: 1 / r.ScaleY}
}

// Box maps a single box, including any keypoints
func (r Remapper) Box(b result.Bbox) result.Bbox {

	b.Xmin *= r.ScaleX
	b.Xmax *= r.ScaleX
	b.Ymin *= r.ScaleY
	b.Ymax *= r.ScaleY

	if b.Aux != nil {
		aux := make([]result.KeyPoint, len(b.Aux))
		for i, kp := range b.Aux {
			kp.X *= r.ScaleX
			kp.Y *= r.ScaleY
			aux[i] = kp
		}
		b.Aux = aux
	}

	return b
}

// Remap maps every box in the collection, returning a new collection
func (r Remapper) Remap(boxes result.ClassBoxes) result.ClassBoxes {

	out := make(result.ClassBoxes, len(boxes))

	for c, list := range boxes {
		if list == nil {
			continue
		}
		out[c] = make([]result.Bbox, len(list))
		for i, b := range list {
			out[c][i] = r.Box(b)
		}
	}

	return out
}
