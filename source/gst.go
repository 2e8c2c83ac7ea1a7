package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// ErrStream is returned when the media pipeline reports an error
var ErrStream = errors.New("stream error")

var gstOnce sync.Once

// initGst initializes GStreamer once per process
func initGst() {
	gstOnce.Do(func() {
		gst.Init(nil)
	})
}

// GstSource decodes a video file with GStreamer
//
// Pipeline structure:
//
//	filesrc → decodebin → videoconvert → capsfilter(RGB) → appsink
//
// The frame size is taken from the caps of the first decoded sample.
type GstSource struct {
	path string
	log  logs.Log
	// Buffer is the number of decoded frames queued ahead of the consumer.
	// When the queue is full decoding blocks, no frames are dropped.
	Buffer int

	frames  atomic.Uint64
	pool    *BufferPool
	poolMu  sync.Mutex
	elapsed time.Time
}

// NewGstSource returns a source decoding the video file at path
func NewGstSource(path string, log logs.Log) *GstSource {
	return &GstSource{
		path:   path,
		log:    log,
		Buffer: 4,
	}
}

// FrameCount returns the number of frames decoded so far
func (s *GstSource) FrameCount() uint64 {
	return s.frames.Load()
}

// Frames starts decoding and returns the decoded frames
func (s *GstSource) Frames(ctx context.Context) (<-chan Frame, <-chan error) {

	frames := make(chan Frame, s.Buffer)
	errs := make(chan error, 1)

	pipeline, sink, err := s.createPipeline()

	if err != nil {
		errs <- err
		close(frames)
		close(errs)
		return frames, errs
	}

	done := make(chan struct{})

	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return s.onNewSample(sink, frames, done)
		},
	})

	s.elapsed = time.Now()

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		errs <- fmt.Errorf("error starting pipeline: %w", err)
		close(frames)
		close(errs)
		return frames, errs
	}

	go func() {
		err := monitorBus(ctx, pipeline, s.log)

		// release any callback blocked on a full queue before stopping the
		// streaming threads
		close(done)

		if serr := pipeline.SetState(gst.StateNull); serr != nil {
			s.log.Warnf("Error stopping pipeline: %v", serr)
		}

		s.log.Infof("Decoded %d frames from %s in %v", s.FrameCount(), s.path,
			time.Since(s.elapsed).Round(time.Millisecond))

		close(frames)

		if err != nil {
			errs <- err
		}

		close(errs)
	}()

	return frames, errs
}

func (s *GstSource) createPipeline() (*gst.Pipeline, *app.Sink, error) {

	initGst()

	pipeline, err := gst.NewPipeline("")

	if err != nil {
		return nil, nil, fmt.Errorf("error creating pipeline: %w", err)
	}

	src, err := gst.NewElement("filesrc")

	if err != nil {
		return nil, nil, fmt.Errorf("error creating filesrc: %w", err)
	}

	src.SetProperty("location", s.path)

	decode, err := gst.NewElement("decodebin")

	if err != nil {
		return nil, nil, fmt.Errorf("error creating decodebin: %w", err)
	}

	convert, err := gst.NewElement("videoconvert")

	if err != nil {
		return nil, nil, fmt.Errorf("error creating videoconvert: %w", err)
	}

	caps, err := gst.NewElement("capsfilter")

	if err != nil {
		return nil, nil, fmt.Errorf("error creating capsfilter: %w", err)
	}

	caps.SetProperty("caps", gst.NewCapsFromString("video/x-raw,format=RGB"))

	sink, err := app.NewAppSink()

	if err != nil {
		return nil, nil, fmt.Errorf("error creating appsink: %w", err)
	}

	// process every frame as fast as possible
	sink.SetProperty("sync", false)
	sink.SetProperty("drop", false)

	if err := pipeline.AddMany(src, decode, convert, caps, sink.Element); err != nil {
		return nil, nil, fmt.Errorf("error adding elements: %w", err)
	}

	if err := src.Link(decode); err != nil {
		return nil, nil, fmt.Errorf("error linking filesrc: %w", err)
	}

	if err := gst.ElementLinkMany(convert, caps, sink.Element); err != nil {
		return nil, nil, fmt.Errorf("error linking elements: %w", err)
	}

	// decodebin pads appear once the container has been parsed, only the
	// video pad is linked
	decode.Connect("pad-added", func(self *gst.Element, pad *gst.Pad) {

		sinkPad := convert.GetStaticPad("sink")

		if sinkPad.IsLinked() {
			return
		}

		if ret := pad.Link(sinkPad); ret != gst.PadLinkOK {
			s.log.Debugf("Skipping decodebin pad %s: %v", pad.GetName(), ret)
			return
		}

		s.log.Debugf("Linked decodebin pad %s", pad.GetName())
	})

	return pipeline, sink, nil
}

// onNewSample copies a decoded sample into a Frame and queues it
func (s *GstSource) onNewSample(sink *app.Sink, frames chan<- Frame, done <-chan struct{}) gst.FlowReturn {

	sample := sink.PullSample()

	if sample == nil {
		return gst.FlowEOS
	}

	width, height, err := sampleSize(sample)

	if err != nil {
		s.log.Errorf("Dropping sample: %v", err)
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()

	if buffer == nil {
		s.log.Warnf("Dropping sample without buffer")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()

	if len(data) < width*height*3 {
		buffer.Unmap()
		s.log.Warnf("Dropping short sample of %d bytes for %dx%d", len(data), width, height)
		return gst.FlowOK
	}

	pool := s.bufferPool(width * height * 3)

	// rows of RGB samples are padded to 4 byte boundaries
	frameData := packRows(pool.Get(), data, width, height, len(data)/height)
	buffer.Unmap()

	frame := Frame{
		Seq:       s.frames.Add(1),
		TraceID:   uuid.New().String(),
		Timestamp: time.Now(),
		PTS:       buffer.PresentationTimestamp(),
		Width:     width,
		Height:    height,
		Data:      frameData,
		release: func() {
			pool.Put(frameData)
		},
	}

	select {
	case frames <- frame:
		return gst.FlowOK
	case <-done:
		return gst.FlowFlushing
	}
}

// bufferPool returns the frame buffer pool, replacing it when the frame
// size changes
func (s *GstSource) bufferPool(size int) *BufferPool {

	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	if s.pool == nil || s.pool.Size() != size {
		s.pool = NewBufferPool(size)
	}

	return s.pool
}

// sampleSize reads the frame size from the caps of a sample
func sampleSize(sample *gst.Sample) (int, int, error) {

	caps := sample.GetCaps()

	if caps == nil || caps.GetSize() == 0 {
		return 0, 0, errors.New("sample has no caps")
	}

	st := caps.GetStructureAt(0)

	w, err := st.GetValue("width")

	if err != nil {
		return 0, 0, fmt.Errorf("sample caps have no width: %w", err)
	}

	h, err := st.GetValue("height")

	if err != nil {
		return 0, 0, fmt.Errorf("sample caps have no height: %w", err)
	}

	width, wok := w.(int)
	height, hok := h.(int)

	if !wok || !hok || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid sample size %v x %v", w, h)
	}

	return width, height, nil
}

// monitorBus watches the pipeline bus until the end of the stream, an error
// or ctx is cancelled
func monitorBus(ctx context.Context, pipeline *gst.Pipeline, log logs.Log) error {

	bus := pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			log.Debugf("Context cancelled, stopping pipeline")
			return ctx.Err()
		default:
		}

		msg := bus.TimedPop(50 * time.Millisecond)

		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			log.Debugf("End of stream")
			return nil

		case gst.MessageError:
			gerr := msg.ParseError()
			log.Errorf("Pipeline error: %v (%s)", gerr.Error(), gerr.DebugString())
			return fmt.Errorf("%w: %s", ErrStream, gerr.Error())

		case gst.MessageWarning:
			gerr := msg.ParseWarning()
			log.Warnf("Pipeline warning: %v", gerr.Error())

		case gst.MessageStateChanged:
			if msg.Source() == pipeline.GetName() {
				old, current := msg.ParseStateChanged()
				log.Debugf("Pipeline state changed from %v to %v", old, current)
			}
		}
	}
}
