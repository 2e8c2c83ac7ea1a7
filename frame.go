package detrack

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// BufferToImage wraps a raw RGB frame buffer into an image.  The buffer holds
// width*height*3 bytes, row major with no padding between rows.  Extra bytes
// past the frame are ignored.
func BufferToImage(buf []byte, width, height int) (*image.RGBA, error) {

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid frame size %dx%d", ErrBufferTooSmall, width, height)
	}

	need := width * height * 3

	if len(buf) < need {
		return nil, fmt.Errorf("%w: got %d bytes, need %d for %dx%d",
			ErrBufferTooSmall, len(buf), need, width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	pix := img.Pix

	for i, j := 0, 0; i < need; i, j = i+3, j+4 {
		pix[j] = buf[i]
		pix[j+1] = buf[i+1]
		pix[j+2] = buf[i+2]
		pix[j+3] = 0xff
	}

	return img, nil
}

// ImageToBuffer converts an image into a raw RGB frame buffer of
// width*height*3 bytes
func ImageToBuffer(img image.Image) []byte {

	b := img.Bounds()

	rgba, ok := img.(*image.RGBA)

	if !ok || rgba.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	n := b.Dx() * b.Dy()
	buf := make([]byte, n*3)

	for i, j := 0, 0; i < len(buf); i, j = i+3, j+4 {
		buf[i] = rgba.Pix[j]
		buf[i+1] = rgba.Pix[j+1]
		buf[i+2] = rgba.Pix[j+2]
	}

	return buf
}
