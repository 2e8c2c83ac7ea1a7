package source

import (
	"fmt"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// SinkOptions are the settings of an encoded video output
type SinkOptions struct {
	// Path of the Matroska file to write
	Path   string
	Width  int
	Height int
	// FPS is the frame rate written into the stream
	FPS int
	// Display adds a live preview window next to the file output
	Display bool
}

// GstSink encodes raw RGB frames to an H.264 Matroska file
//
// Pipeline structure:
//
//	appsrc → [tee →] queue → videoconvert → x264enc → matroskamux → filesink
//	         [tee →  queue → videoconvert → autovideosink]
type GstSink struct {
	opts     SinkOptions
	log      logs.Log
	pipeline *gst.Pipeline
	src      *app.Source
	frames   int
	closed   bool
}

// NewGstSink creates and starts the encoding pipeline
func NewGstSink(opts SinkOptions, log logs.Log) (*GstSink, error) {

	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid output size %dx%d", opts.Width, opts.Height)
	}

	if opts.FPS <= 0 {
		opts.FPS = 30
	}

	initGst()

	s := &GstSink{opts: opts, log: log}

	if err := s.createPipeline(); err != nil {
		return nil, err
	}

	if err := s.pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, fmt.Errorf("error starting output pipeline: %w", err)
	}

	log.Infof("Writing %dx%d video to %s", opts.Width, opts.Height, opts.Path)

	return s, nil
}

func (s *GstSink) createPipeline() error {

	var err error

	s.pipeline, err = gst.NewPipeline("")

	if err != nil {
		return fmt.Errorf("error creating output pipeline: %w", err)
	}

	s.src, err = app.NewAppSrc()

	if err != nil {
		return fmt.Errorf("error creating appsrc: %w", err)
	}

	s.src.SetCaps(gst.NewCapsFromString(fmt.Sprintf(
		"video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/1",
		s.opts.Width, s.opts.Height, s.opts.FPS)))
	s.src.SetProperty("format", gst.FormatTime)
	// block pushes instead of queueing frames without limit
	s.src.SetProperty("block", true)

	encode, err := elements("queue", "videoconvert", "x264enc", "matroskamux", "filesink")

	if err != nil {
		return err
	}

	encode[4].SetProperty("location", s.opts.Path)

	if err := s.pipeline.AddMany(append([]*gst.Element{s.src.Element}, encode...)...); err != nil {
		return fmt.Errorf("error adding encoder elements: %w", err)
	}

	if err := gst.ElementLinkMany(encode...); err != nil {
		return fmt.Errorf("error linking encoder elements: %w", err)
	}

	if !s.opts.Display {
		if err := s.src.Link(encode[0]); err != nil {
			return fmt.Errorf("error linking appsrc: %w", err)
		}
		return nil
	}

	display, err := elements("tee", "queue", "videoconvert", "autovideosink")

	if err != nil {
		return err
	}

	// the preview must not hold back encoding
	display[3].SetProperty("sync", false)

	if err := s.pipeline.AddMany(display...); err != nil {
		return fmt.Errorf("error adding display elements: %w", err)
	}

	if err := gst.ElementLinkMany(append([]*gst.Element{s.src.Element}, display...)...); err != nil {
		return fmt.Errorf("error linking display elements: %w", err)
	}

	if err := display[0].Link(encode[0]); err != nil {
		return fmt.Errorf("error linking tee: %w", err)
	}

	return nil
}

// elements creates one element of each named factory
func elements(factories ...string) ([]*gst.Element, error) {

	out := make([]*gst.Element, len(factories))

	for i, name := range factories {
		e, err := gst.NewElement(name)

		if err != nil {
			return nil, fmt.Errorf("error creating %s: %w", name, err)
		}

		out[i] = e
	}

	return out, nil
}

// Write encodes a raw RGB frame buffer of Width*Height*3 bytes
func (s *GstSink) Write(buf []byte) error {

	if s.closed {
		return fmt.Errorf("sink closed")
	}

	if need := s.opts.Width * s.opts.Height * 3; len(buf) != need {
		return fmt.Errorf("frame buffer has %d bytes, need %d", len(buf), need)
	}

	frameDur := time.Second / time.Duration(s.opts.FPS)

	buffer := gst.NewBufferFromBytes(buf)
	buffer.SetPresentationTimestamp(time.Duration(s.frames) * frameDur)
	buffer.SetDuration(frameDur)

	if ret := s.src.PushBuffer(buffer); ret != gst.FlowOK {
		return fmt.Errorf("%w: push buffer returned %v", ErrStream, ret)
	}

	s.frames++

	return nil
}

// Frames returns the number of frames written
func (s *GstSink) Frames() int {
	return s.frames
}

// Close ends the stream, waits for the encoder to finish the file and
// releases the pipeline
func (s *GstSink) Close() error {

	if s.closed {
		return nil
	}

	s.closed = true

	defer func() {
		if err := s.pipeline.SetState(gst.StateNull); err != nil {
			s.log.Warnf("Error stopping output pipeline: %v", err)
		}
	}()

	if ret := s.src.EndStream(); ret != gst.FlowOK {
		return fmt.Errorf("%w: end of stream returned %v", ErrStream, ret)
	}

	bus := s.pipeline.GetPipelineBus()
	deadline := time.Now().Add(30 * time.Second)

	for time.Now().Before(deadline) {

		msg := bus.TimedPop(100 * time.Millisecond)

		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			s.log.Infof("Wrote %d frames to %s", s.frames, s.opts.Path)
			return nil

		case gst.MessageError:
			gerr := msg.ParseError()
			return fmt.Errorf("%w: %s", ErrStream, gerr.Error())
		}
	}

	return fmt.Errorf("%w: timed out finishing %s", ErrStream, s.opts.Path)
}
