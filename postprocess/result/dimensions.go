package result

import "fmt"

// ImgDimensions describes the width and height of an image or of the region
// a scaled image occupies within a canvas
type ImgDimensions struct {
	Width  float32
	Height float32
}

// NewImgDimensions is a convenience constructor from integer pixel sizes
func NewImgDimensions(width, height int) ImgDimensions {
	return ImgDimensions{Width: float32(width), Height: float32(height)}
}

// Scale returns new dimensions multiplied by ratio
func (d ImgDimensions) Scale(ratio float32) ImgDimensions {
	return ImgDimensions{
		Width:  d.Width * ratio,
		Height: d.Height * ratio,
	}
}

// Empty reports whether the dimensions have zero area
func (d ImgDimensions) Empty() bool {
	return d.Width <= 0 || d.Height <= 0
}

func (d ImgDimensions) String() string {
	return fmt.Sprintf("%gx%g", d.Width, d.Height)
}
