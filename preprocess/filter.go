package preprocess

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

// Filter resizes an image to exactly width x height pixels
type Filter interface {
	Resize(src image.Image, width, height int) (image.Image, error)
}

// DrawFilter resizes using one of the golang.org/x/image/draw interpolators
type DrawFilter struct {
	Interpolator draw.Interpolator
}

// NearestNeighbor is the default deterministic filter
var NearestNeighbor = DrawFilter{Interpolator: draw.NearestNeighbor}

func (f DrawFilter) Resize(src image.Image, width, height int) (image.Image, error) {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	f.Interpolator.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// ImagingFilter resizes using github.com/disintegration/imaging
type ImagingFilter struct {
	Filter imaging.ResampleFilter
}

func (f ImagingFilter) Resize(src image.Image, width, height int) (image.Image, error) {
	return imaging.Resize(src, width, height, f.Filter), nil
}

// filters maps the names accepted in configuration to their filter
var filters = map[string]Filter{
	"nearest":    NearestNeighbor,
	"bilinear":   DrawFilter{Interpolator: draw.ApproxBiLinear},
	"catmullrom": DrawFilter{Interpolator: draw.CatmullRom},
	"box":        ImagingFilter{Filter: imaging.Box},
	"linear":     ImagingFilter{Filter: imaging.Linear},
	"lanczos":    ImagingFilter{Filter: imaging.Lanczos},
	"cv-nearest": GocvFilter{Interpolation: gocv.InterpolationNearestNeighbor},
	"cv-linear":  GocvFilter{Interpolation: gocv.InterpolationLinear},
	"cv-area":    GocvFilter{Interpolation: gocv.InterpolationArea},
}

// FilterByName returns the named resize filter.  An empty name selects
// nearest neighbor.
func FilterByName(name string) (Filter, error) {

	if name == "" {
		return NearestNeighbor, nil
	}

	f, ok := filters[strings.ToLower(name)]

	if !ok {
		return nil, fmt.Errorf("unknown resize filter %q, expected one of %s",
			name, strings.Join(FilterNames(), ", "))
	}

	return f, nil
}

// FilterNames lists the names accepted by FilterByName in sorted order
func FilterNames() []string {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
