package render

import (
	"image/color"

	"gocv.io/x/gocv"
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad int
	TopPad  int
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   2,
		TopPad:    1,
	}
}

// FontForHeight returns the default font scaled so text fits a legend box of
// the given pixel height
func FontForHeight(height int) Font {

	f := DefaultFont()

	if height <= 2 {
		return f
	}

	size := gocv.GetTextSize("Ag", f.Face, 1.0, f.Thickness)

	if size.Y > 0 {
		f.Scale = float64(height-2*f.TopPad) / float64(size.Y)
	}

	return f
}
