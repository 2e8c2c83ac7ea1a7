package preprocess

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/swdee/go-detrack/postprocess/result"
	"github.com/swdee/go-detrack/tensor"
)

var (
	// ErrEmptyImage is returned for a source image with zero area
	ErrEmptyImage = errors.New("source image has zero area")
	// ErrChannels is returned for a source image that is not three channel
	// color, eg: grayscale or alpha only
	ErrChannels = errors.New("source image is not RGB")
)

// PadValue is the normalized gray the canvas is filled with before the
// scaled image is copied in.  It must match the padding the model saw when
// it was trained.
const PadValue = float32(0.5)

// Letterbox scales an arbitrary sized image into a fixed size canvas whilst
// maintaining its aspect ratio and converts it into a normalized NCHW tensor
type Letterbox struct {
	// width and height of the canvas, the model's input tensor size
	width  int
	height int
	// filter used to resize the source image
	filter Filter
}

// NewLetterbox returns a Letterbox for the given canvas size.  If filter is
// nil then NearestNeighbor is used.
func NewLetterbox(width, height int, filter Filter) *Letterbox {

	if filter == nil {
		filter = NearestNeighbor
	}

	return &Letterbox{
		width:  width,
		height: height,
		filter: filter,
	}
}

// Width returns the canvas width
func (l *Letterbox) Width() int {
	return l.width
}

// Height returns the canvas height
func (l *Letterbox) Height() int {
	return l.height
}

// Canvas returns the canvas dimensions
func (l *Letterbox) Canvas() result.ImgDimensions {
	return result.NewImgDimensions(l.width, l.height)
}

// Ratio returns the scale factor applied to a source image of the given size
func (l *Letterbox) Ratio(srcWidth, srcHeight int) float32 {
	return math32.Min(float32(l.width)/float32(srcWidth),
		float32(l.height)/float32(srcHeight))
}

// ScaledSize returns the integer size a source image of the given size
// occupies within the canvas
func (l *Letterbox) ScaledSize(srcWidth, srcHeight int) (int, int) {

	ratio := l.Ratio(srcWidth, srcHeight)

	w := int(math32.Round(float32(srcWidth) * ratio))
	h := int(math32.Round(float32(srcHeight) * ratio))

	// a very thin source can round down to nothing
	return clampInt(w, 1, l.width), clampInt(h, 1, l.height)
}

// Process resizes img and converts it into a [1,3,H,W] tensor, returning
// the dimensions the scaled image occupies inside the canvas
func (l *Letterbox) Process(img image.Image) (*tensor.Tensor, result.ImgDimensions, error) {

	scaled, dims, err := l.Resize(img)

	if err != nil {
		return nil, dims, err
	}

	return l.ToTensor(scaled), dims, nil
}

// Resize validates img and scales it to the letterbox size without padding
func (l *Letterbox) Resize(img image.Image) (image.Image, result.ImgDimensions, error) {

	if err := CheckImage(img); err != nil {
		return nil, result.ImgDimensions{}, err
	}

	b := img.Bounds()
	w, h := l.ScaledSize(b.Dx(), b.Dy())

	scaled, err := l.filter.Resize(img, w, h)

	if err != nil {
		return nil, result.ImgDimensions{}, fmt.Errorf("error resizing image: %w", err)
	}

	return scaled, result.NewImgDimensions(w, h), nil
}

// ToTensor copies a scaled image flush against the top left of a gray
// canvas and normalizes the 8-bit channel values into [0,1]
func (l *Letterbox) ToTensor(scaled image.Image) *tensor.Tensor {

	t := tensor.Zeros(1, 3, l.height, l.width)

	for i := range t.Data {
		t.Data[i] = PadValue
	}

	plane := l.width * l.height
	b := scaled.Bounds()
	w := min(b.Dx(), l.width)
	h := min(b.Dy(), l.height)

	put := func(x, y int, r, g, bl uint8) {
		off := y*l.width + x
		t.Data[off] = float32(r) / 255
		t.Data[plane+off] = float32(g) / 255
		t.Data[2*plane+off] = float32(bl) / 255
	}

	switch src := scaled.(type) {
	case *image.RGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride:]
			for x := 0; x < w; x++ {
				p := row[(x+b.Min.X-src.Rect.Min.X)*4:]
				put(x, y, p[0], p[1], p[2])
			}
		}

	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride:]
			for x := 0; x < w; x++ {
				p := row[(x+b.Min.X-src.Rect.Min.X)*4:]
				put(x, y, p[0], p[1], p[2])
			}
		}

	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBAModel.Convert(scaled.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				put(x, y, c.R, c.G, c.B)
			}
		}
	}

	return t
}

// CheckImage rejects images with zero area or without three color channels
func CheckImage(img image.Image) error {

	if img == nil || img.Bounds().Empty() {
		return ErrEmptyImage
	}

	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model, color.AlphaModel,
		color.Alpha16Model, color.CMYKModel:
		return fmt.Errorf("%w: color model %T", ErrChannels, img)
	}

	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
