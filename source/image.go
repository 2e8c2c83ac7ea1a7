package source

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// LoadImage reads an image file, applying any EXIF orientation
func LoadImage(path string) (image.Image, error) {

	img, err := imaging.Open(path, imaging.AutoOrientation(true))

	if err != nil {
		return nil, fmt.Errorf("error opening image %s: %w", path, err)
	}

	return img, nil
}

// SaveImage writes an image, the format is taken from the file extension
func SaveImage(path string, img image.Image) error {

	if err := imaging.Save(img, path, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("error saving image %s: %w", path, err)
	}

	return nil
}

// IsImage reports whether path names an image file that LoadImage can read
func IsImage(path string) bool {
	_, err := imaging.FormatFromFilename(path)
	return err == nil
}

// ImageOutputPath returns the path the annotated copy of an image is saved
// to, the input with its extension replaced by ".out.jpg"
func ImageOutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".out.jpg"
}

// VideoOutputPath returns the path the annotated copy of a video is encoded
// to, the input with ".out.mkv" appended
func VideoOutputPath(input string) string {
	return input + ".out.mkv"
}
