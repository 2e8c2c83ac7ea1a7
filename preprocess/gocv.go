package preprocess

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// GocvFilter resizes using OpenCV
type GocvFilter struct {
	Interpolation gocv.InterpolationFlags
}

func (f GocvFilter) Resize(src image.Image, width, height int) (image.Image, error) {

	mat, err := gocv.ImageToMatRGB(src)

	if err != nil {
		return nil, fmt.Errorf("error converting image to Mat: %w", err)
	}

	defer mat.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	if err := ResizeMat(mat, &dst, width, height, f.Interpolation); err != nil {
		return nil, err
	}

	return dst.ToImage()
}

// ResizeMat scales src into dest at exactly width x height
func ResizeMat(src gocv.Mat, dest *gocv.Mat, width, height int,
	interp gocv.InterpolationFlags) error {

	if src.Empty() {
		return ErrEmptyImage
	}

	gocv.Resize(src, dest, image.Pt(width, height), 0, 0, interp)

	return nil
}
