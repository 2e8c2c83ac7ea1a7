package source

import (
	"context"
	"fmt"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// CaptureSource reads frames with OpenCV from a video file, stream URL or
// a camera device index such as "0"
type CaptureSource struct {
	device string
	log    logs.Log
	// Buffer is the number of frames queued ahead of the consumer
	Buffer int
}

// NewCaptureSource returns a source reading from device
func NewCaptureSource(device string, log logs.Log) *CaptureSource {
	return &CaptureSource{
		device: device,
		log:    log,
		Buffer: 4,
	}
}

// Frames starts reading and returns the captured frames
func (c *CaptureSource) Frames(ctx context.Context) (<-chan Frame, <-chan error) {

	frames := make(chan Frame, c.Buffer)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(frames)

		if err := c.read(ctx, frames); err != nil {
			errs <- err
		}
	}()

	return frames, errs
}

func (c *CaptureSource) read(ctx context.Context, frames chan<- Frame) error {

	video, err := gocv.OpenVideoCapture(c.device)

	if err != nil {
		return fmt.Errorf("error opening capture %s: %w", c.device, err)
	}

	defer video.Close()

	img := gocv.NewMat()
	defer img.Close()

	rgb := gocv.NewMat()
	defer rgb.Close()

	var seq uint64
	var pool *BufferPool

	for {
		if ok := video.Read(&img); !ok {
			// reached last video frame
			c.log.Infof("Captured %d frames from %s", seq, c.device)
			return nil
		}

		if img.Empty() {
			continue
		}

		gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)

		width, height := rgb.Cols(), rgb.Rows()

		if pool == nil || pool.Size() != width*height*3 {
			pool = NewBufferPool(width * height * 3)
		}

		data := pool.Get()
		copy(data, rgb.ToBytes())

		seq++
		p := pool

		frame := Frame{
			Seq:       seq,
			TraceID:   uuid.New().String(),
			Timestamp: time.Now(),
			PTS:       time.Duration(video.Get(gocv.VideoCapturePosMsec) * float64(time.Millisecond)),
			Width:     width,
			Height:    height,
			Data:      data,
			release: func() {
				p.Put(data)
			},
		}

		select {
		case frames <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
