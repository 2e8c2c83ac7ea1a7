// Package source reads frames from video files, capture devices and image
// files, and writes annotated frames back out.
package source

import (
	"context"
	"time"
)

// Frame is a single decoded video frame.  Data holds Width*Height*3 bytes
// of RGB, row major with no padding between rows.
type Frame struct {
	// Seq is the 1 based position of the frame in the stream
	Seq uint64
	// TraceID identifies the frame in log lines
	TraceID string
	// Timestamp is when the frame was decoded
	Timestamp time.Time
	// PTS is the presentation timestamp within the stream
	PTS    time.Duration
	Width  int
	Height int
	Data   []byte
	// release returns Data to the pool it came from
	release func()
}

// Release hands the frame buffer back for reuse.  Data must not be used
// afterwards.
func (f *Frame) Release() {
	if f.release != nil {
		f.release()
		f.release = nil
	}
	f.Data = nil
}

// FrameSource produces the frames of a stream in order.  The frame channel
// is closed at the end of the stream or when ctx is cancelled, after which
// at most one error is readable from the error channel.
type FrameSource interface {
	Frames(ctx context.Context) (<-chan Frame, <-chan error)
}

// packRows copies an RGB image with rows of stride bytes into a buffer with
// no row padding
func packRows(dst, src []byte, width, height, stride int) []byte {

	row := width * 3
	need := row * height

	if cap(dst) < need {
		dst = make([]byte, need)
	}

	dst = dst[:need]

	if stride == row {
		copy(dst, src)
		return dst
	}

	for y := 0; y < height; y++ {
		copy(dst[y*row:(y+1)*row], src[y*stride:y*stride+row])
	}

	return dst
}
