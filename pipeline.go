package detrack

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/cyclopcam/logs"

	"github.com/swdee/go-detrack/postprocess"
	"github.com/swdee/go-detrack/postprocess/result"
	"github.com/swdee/go-detrack/preprocess"
	"github.com/swdee/go-detrack/render"
	"github.com/swdee/go-detrack/tensor"
	"github.com/swdee/go-detrack/timing"
	"github.com/swdee/go-detrack/tracker"
)

// Result is the outcome of running a single frame through the Pipeline
type Result struct {
	// Boxes are the detections in the original frame's pixel space
	Boxes result.ClassBoxes
	// Scaled is the area the resized frame occupies in the model canvas
	Scaled result.ImgDimensions
	// Original is the size of the source frame
	Original result.ImgDimensions
	// Annotated is the frame with boxes drawn on it, nil when the Pipeline
	// has no Renderer
	Annotated image.Image
	// Times are the stage durations of this frame
	Times timing.FrameTimes
}

// Pipeline runs the per frame stages of preprocessing, inference, box
// extraction, NMS, tracking, coordinate remapping and annotation.  Frames
// of a video must be processed in order by a single goroutine as the
// tracker depends on the previous frame.  With tracking disabled
// independent images can be processed concurrently, each with its own Model.
type Pipeline struct {
	cfg       Config
	log       logs.Log
	labels    Taxonomy
	letterbox *preprocess.Letterbox
	parser    *postprocess.YOLOv8
	// adapter is nil when tracking is disabled
	adapter *tracker.Adapter
	trail   *tracker.Trail
	times   *timing.AggregatedTimes

	mu       sync.RWMutex
	renderer render.Renderer
	// allowed restricts results to the classes set, nil allows all
	allowed []bool
}

// Option customises a Pipeline
type Option func(p *Pipeline)

// WithTracker replaces the default BYTETracker with tr.  It has no effect
// when tracking is disabled.
func WithTracker(tr tracker.Tracker) Option {
	return func(p *Pipeline) {
		if p.adapter != nil {
			p.adapter = tracker.NewAdapter(tr, p.labels.Len())
		}
	}
}

// WithoutTracking disables tracking regardless of the configuration, used
// for still images
func WithoutTracking() Option {
	return func(p *Pipeline) {
		p.adapter = nil
		p.trail = nil
	}
}

// WithRenderer sets the Renderer used to annotate frames
func WithRenderer(r render.Renderer) Option {
	return func(p *Pipeline) {
		p.renderer = r
	}
}

// NewPipeline returns a Pipeline for models trained on labels
func NewPipeline(cfg Config, labels Taxonomy, log logs.Log, opts ...Option) (*Pipeline, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if labels.Len() == 0 {
		return nil, fmt.Errorf("%w: empty label list", ErrTaxonomy)
	}

	filter, err := preprocess.FilterByName(cfg.Filter)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	params := postprocess.YOLOv8DefaultParams(labels.Len())
	params.BoxThreshold = cfg.ConfThreshold
	params.NMSThreshold = cfg.NMSThreshold
	params.KeyPointsNumber = cfg.KeyPoints

	p := &Pipeline{
		cfg:       cfg,
		log:       log,
		labels:    labels,
		letterbox: preprocess.NewLetterbox(cfg.InputWidth, cfg.InputHeight, filter),
		parser:    postprocess.NewYOLOv8(params),
		times:     timing.NewAggregatedTimes(),
	}

	if cfg.Tracking {
		p.adapter = tracker.NewAdapter(tracker.NewBYTETrackerFromConfig(TrackerConfig(cfg)), labels.Len())

		if cfg.TrailLength > 0 {
			p.trail = tracker.NewTrail(cfg.TrailLength)
		}
	}

	for _, opt := range opts {
		opt(p)
	}

	log.Infof("%d classes, input %dx%d, conf %.2f, nms %.2f, tracking %v",
		labels.Len(), cfg.InputWidth, cfg.InputHeight, cfg.ConfThreshold,
		cfg.NMSThreshold, p.Tracking())

	return p, nil
}

// TrackerConfig returns the tracker settings of cfg with the score
// thresholds lowered to the detector confidence threshold.  Tracked boxes
// replace the detector output, so a detection the tracker would not start
// or keep a track for would otherwise vanish.
func TrackerConfig(cfg Config) tracker.Config {
	tc := cfg.Tracker
	tc.TrackThresh = min(tc.TrackThresh, cfg.ConfThreshold)
	tc.HighThresh = min(tc.HighThresh, cfg.ConfThreshold)
	return tc
}

// Labels returns the class names of the Pipeline
func (p *Pipeline) Labels() Taxonomy {
	return p.labels
}

// Tracking reports whether the Pipeline tracks objects across frames
func (p *Pipeline) Tracking() bool {
	return p.adapter != nil
}

// Trail returns the track history of the Pipeline, nil when there is none
func (p *Pipeline) Trail() *tracker.Trail {
	return p.trail
}

// Times returns the aggregated stage durations of recorded frames
func (p *Pipeline) Times() *timing.AggregatedTimes {
	return p.times
}

// Record adds the stage durations of a processed frame to the aggregated
// times.  It is separate from processing so callers can add the time taken
// to encode the result first.
func (p *Pipeline) Record(ft timing.FrameTimes) {
	p.times.Push(ft)
}

// RenderOptions returns the drawing options matching the Pipeline's
// configuration
func (p *Pipeline) RenderOptions() render.Options {
	opts := render.DefaultOptions(p.labels)
	opts.LegendSize = p.cfg.LegendSize
	opts.Trail = p.trail
	opts.KeyPoints = p.cfg.KeyPoints > 0
	return opts
}

// SetRenderer sets the Renderer used to annotate frames, nil disables
// annotation
func (p *Pipeline) SetRenderer(r render.Renderer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renderer = r
}

// LimitClasses restricts results to the named classes, an empty list
// removes the restriction
func (p *Pipeline) LimitClasses(names []string) error {

	var allowed []bool

	for _, name := range names {
		name = strings.TrimSpace(name)

		if name == "" {
			continue
		}

		idx, ok := p.labels.Index(name)

		if !ok {
			return fmt.Errorf("%w: unknown class %q", ErrConfig, name)
		}

		if allowed == nil {
			allowed = make([]bool, p.labels.Len())
		}

		allowed[idx] = true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowed = allowed

	return nil
}

// Reset clears the tracker and trail history, used when a new video starts
func (p *Pipeline) Reset() {

	if p.adapter != nil {
		p.adapter.Reset()
	}

	if p.trail != nil {
		p.trail.Reset()
	}

	p.log.Debugf("Pipeline reset")
}

// ProcessBuffer runs a raw RGB frame buffer of width*height*3 bytes through
// the Pipeline using model m
func (p *Pipeline) ProcessBuffer(m Model, buf []byte, width, height int) (*Result, error) {

	var ft timing.FrameTimes
	t := timing.Start()

	img, err := BufferToImage(buf, width, height)

	if err != nil {
		return nil, err
	}

	t.Record(&ft, timing.FrameToBuffer)

	return p.process(m, img, ft)
}

// Process runs a single frame through the Pipeline using model m
func (p *Pipeline) Process(m Model, img image.Image) (*Result, error) {
	return p.process(m, img, timing.FrameTimes{})
}

func (p *Pipeline) process(m Model, img image.Image, ft timing.FrameTimes) (*Result, error) {

	t := timing.Start()

	resized, scaled, err := p.letterbox.Resize(img)

	if err != nil {
		return nil, fmt.Errorf("error preprocessing frame: %w", err)
	}

	t.Record(&ft, timing.BufferResize)

	input := p.letterbox.ToTensor(resized)

	t.Record(&ft, timing.BufferToTensor)

	output, err := m.Infer(input)

	if err != nil {
		return nil, fmt.Errorf("error running inference: %w", err)
	}

	t.Record(&ft, timing.ForwardPass)

	boxes, err := p.parser.DetectObjects(output, scaled)

	if err != nil {
		return nil, p.parseError(output, err)
	}

	p.limit(boxes)

	t.Record(&ft, timing.BboxExtraction)

	boxes = postprocess.NMS(boxes, p.parser.Params.NMSThreshold)

	t.Record(&ft, timing.NMS)

	if p.adapter != nil {
		boxes, err = p.adapter.Update(boxes, scaled)

		if err != nil {
			return nil, err
		}

		t.Record(&ft, timing.Tracking)
	}

	b := img.Bounds()
	original := result.NewImgDimensions(b.Dx(), b.Dy())
	boxes = postprocess.NewRemapper(scaled, original).Remap(boxes)

	t.Record(&ft, timing.Remap)

	res := &Result{
		Boxes:    boxes,
		Scaled:   scaled,
		Original: original,
	}

	if p.trail != nil {
		p.trail.Add(boxes)
	}

	p.mu.RLock()
	renderer := p.renderer
	p.mu.RUnlock()

	if renderer != nil {
		res.Annotated, err = renderer.Annotate(img, boxes)

		if err != nil {
			return nil, fmt.Errorf("error annotating frame: %w", err)
		}
	}

	t.Record(&ft, timing.Annotation)

	res.Times = ft

	return res, nil
}

// limit drops the boxes of classes that are not allowed
func (p *Pipeline) limit(boxes result.ClassBoxes) {

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.allowed == nil {
		return
	}

	for c := range boxes {
		if c >= len(p.allowed) || !p.allowed[c] {
			boxes[c] = nil
		}
	}
}

// parseError marks a malformed output as a taxonomy mismatch when the
// tensor is well formed apart from its number of class rows
func (p *Pipeline) parseError(output *tensor.Tensor, err error) error {

	if !errors.Is(err, postprocess.ErrMalformedTensor) || output == nil {
		return err
	}

	rows := 4 + p.labels.Len() + 3*p.cfg.KeyPoints

	if output.Dims() == 3 && output.Shape[0] == 1 && output.Shape[1] != rows &&
		output.Validate() == nil {
		return fmt.Errorf("%w: model has %d output rows, %d labels expect %d: %w",
			ErrTaxonomy, output.Shape[1], p.labels.Len(), rows, err)
	}

	return err
}
