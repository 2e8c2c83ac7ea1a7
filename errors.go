package detrack

import (
	"errors"

	"github.com/swdee/go-detrack/postprocess"
	"github.com/swdee/go-detrack/preprocess"
	"github.com/swdee/go-detrack/tracker"
)

var (
	// ErrConfig is returned when configuration values are missing or invalid
	ErrConfig = errors.New("invalid configuration")
	// ErrBufferTooSmall is returned when a raw frame buffer holds fewer than
	// width*height*3 bytes
	ErrBufferTooSmall = errors.New("frame buffer too small")
	// ErrTaxonomy is returned when the model output does not match the number
	// of classes in the taxonomy
	ErrTaxonomy = errors.New("model output does not match taxonomy")
	// ErrPoolClosed is returned when getting a model from a closed Pool
	ErrPoolClosed = errors.New("model pool closed")
)

// IsConfigError reports whether err means the pipeline is misconfigured and
// processing can not continue
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfig) ||
		errors.Is(err, ErrTaxonomy) ||
		errors.Is(err, tracker.ErrUnknownClass)
}

// IsFrameError reports whether err only affects the current frame, which can
// be dropped before continuing with the next
func IsFrameError(err error) bool {
	return errors.Is(err, ErrBufferTooSmall) ||
		errors.Is(err, postprocess.ErrMalformedTensor) ||
		errors.Is(err, preprocess.ErrEmptyImage) ||
		errors.Is(err, preprocess.ErrChannels)
}
