package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"

	detrack "github.com/swdee/go-detrack"
	"github.com/swdee/go-detrack/inference"
	"github.com/swdee/go-detrack/preprocess"
	"github.com/swdee/go-detrack/render"
	"github.com/swdee/go-detrack/server"
	"github.com/swdee/go-detrack/source"
	"github.com/swdee/go-detrack/timing"
)

// options are the command line settings
type options struct {
	input    string
	config   string
	model    string
	backend  string
	labels   string
	filter   string
	conf     float64
	nms      float64
	noTrack  bool
	renderer string
	capture  bool
	display  bool
	serve    string
	cpus     string
	limit    string
	plot     string
	html     string
	pool     int
}

func main() {

	parser := argparse.NewParser("detrack", "Detect and track objects in images and video")
	input := parser.String("i", "input", &argparse.Options{Help: "Image, directory of images, video file or capture device", Required: true})
	config := parser.String("c", "config", &argparse.Options{Help: "JSON config file"})
	model := parser.String("m", "model", &argparse.Options{Help: "ONNX model file, overrides config"})
	backend := parser.Selector("b", "backend", []string{"onnx", "opencv"}, &argparse.Options{Help: "Inference backend, overrides config"})
	labels := parser.String("l", "labels", &argparse.Options{Help: "Text file of class labels, overrides config"})
	filter := parser.Selector("f", "filter", preprocess.FilterNames(), &argparse.Options{Help: "Resize filter, overrides config"})
	conf := parser.Float("", "conf", &argparse.Options{Help: "Confidence threshold, overrides config", Default: -1.0})
	nms := parser.Float("", "nms", &argparse.Options{Help: "NMS IoU threshold, overrides config", Default: -1.0})
	noTrack := parser.Flag("", "no-track", &argparse.Options{Help: "Disable object tracking on video"})
	renderer := parser.Selector("r", "renderer", []string{"gg", "cv"}, &argparse.Options{Help: "Annotation renderer", Default: "gg"})
	capture := parser.Flag("", "capture", &argparse.Options{Help: "Read video with OpenCV instead of GStreamer"})
	display := parser.Flag("d", "display", &argparse.Options{Help: "Show a live preview of the annotated video"})
	serve := parser.String("s", "serve", &argparse.Options{Help: "HTTP address to stream annotated video and stats on, eg: localhost:8080"})
	cpus := parser.String("", "cpus", &argparse.Options{Help: "Cores to pin the process to, eg: 0-3"})
	limit := parser.String("x", "limit", &argparse.Options{Help: "Comma delimited list of labels to restrict results to"})
	plot := parser.String("", "plot", &argparse.Options{Help: "Write a PNG chart of the frame times of a video"})
	html := parser.String("", "html", &argparse.Options{Help: "Write an HTML chart of the frame times of a video"})
	pool := parser.Int("p", "pool", &argparse.Options{Help: "Number of models used for a directory of images, overrides config", Default: 0})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating log: %v\n", err)
		os.Exit(1)
	}

	opts := options{
		input:    *input,
		config:   *config,
		model:    *model,
		backend:  *backend,
		labels:   *labels,
		filter:   *filter,
		conf:     *conf,
		nms:      *nms,
		noTrack:  *noTrack,
		renderer: *renderer,
		capture:  *capture,
		display:  *display,
		serve:    *serve,
		cpus:     *cpus,
		limit:    *limit,
		plot:     *plot,
		html:     *html,
		pool:     *pool,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, opts, logger)
	stop()

	if err != nil {
		logger.Errorf("%v", err)
		logger.Close()
		os.Exit(1)
	}

	logger.Close()
}

// loadConfig reads the config file and applies the command line overrides
func loadConfig(opts options) (detrack.Config, error) {

	cfg := detrack.DefaultConfig()

	if opts.config != "" {
		var err error
		if cfg, err = detrack.LoadConfig(opts.config); err != nil {
			return cfg, err
		}
	}

	if opts.model != "" {
		cfg.Model = opts.model
	}

	if opts.backend != "" {
		cfg.Backend = detrack.Backend(opts.backend)
	}

	if opts.labels != "" {
		cfg.LabelsFile = opts.labels
	}

	if opts.filter != "" {
		cfg.Filter = opts.filter
	}

	if opts.conf >= 0 {
		cfg.ConfThreshold = float32(opts.conf)
	}

	if opts.nms >= 0 {
		cfg.NMSThreshold = float32(opts.nms)
	}

	if opts.noTrack {
		cfg.Tracking = false
	}

	if opts.pool > 0 {
		cfg.PoolSize = opts.pool
	}

	return cfg, cfg.Validate()
}

func run(ctx context.Context, opts options, log logs.Log) error {

	if opts.cpus != "" {
		mask, err := detrack.ParseCoreMask(opts.cpus)

		if err != nil {
			return err
		}

		if prev, err := detrack.GetCPUAffinity(); err == nil {
			log.Infof("Pinning to CPU mask %#x, was %#x", mask, prev)
		}

		if err := detrack.SetCPUAffinity(mask); err != nil {
			log.Warnf("Failed to set CPU affinity: %v", err)
		}
	}

	cfg, err := loadConfig(opts)

	if err != nil {
		return err
	}

	labels, err := cfg.Taxonomy()

	if err != nil {
		return err
	}

	factory, err := inference.NewFactory(cfg, detrack.NewPrefixLogger(log, "inference:"))

	if err != nil {
		return err
	}

	if cfg.Backend == detrack.BackendONNX {
		defer inference.ShutdownONNX()
	}

	info, err := os.Stat(opts.input)

	switch {
	case err == nil && info.IsDir():
		return runImages(ctx, cfg, labels, factory, opts, log)
	case source.IsImage(opts.input):
		return runImage(cfg, labels, factory, opts, log)
	default:
		return runVideo(ctx, cfg, labels, factory, opts, log)
	}
}

// newPipeline creates a Pipeline with the selected renderer
func newPipeline(cfg detrack.Config, labels detrack.Taxonomy, opts options,
	log logs.Log, extra ...detrack.Option) (*detrack.Pipeline, error) {

	pipe, err := detrack.NewPipeline(cfg, labels, detrack.NewPrefixLogger(log, "pipeline:"), extra...)

	if err != nil {
		return nil, err
	}

	if opts.limit != "" {
		if err := pipe.LimitClasses(strings.Split(opts.limit, ",")); err != nil {
			return nil, err
		}
	}

	var r render.Renderer

	switch opts.renderer {
	case "cv":
		r = render.NewCV(pipe.RenderOptions())
	default:
		if r, err = render.NewGG(pipe.RenderOptions()); err != nil {
			return nil, err
		}
	}

	pipe.SetRenderer(r)

	return pipe, nil
}

// runImage detects objects in a single image and saves the annotated copy
func runImage(cfg detrack.Config, labels detrack.Taxonomy, factory detrack.ModelFactory,
	opts options, log logs.Log) error {

	pipe, err := newPipeline(cfg, labels, opts, log, detrack.WithoutTracking())

	if err != nil {
		return err
	}

	model, err := factory(0)

	if err != nil {
		return err
	}

	defer model.Close()

	return processImage(pipe, model, opts.input, log)
}

// runImages processes every image in a directory in parallel using a pool
// of models
func runImages(ctx context.Context, cfg detrack.Config, labels detrack.Taxonomy,
	factory detrack.ModelFactory, opts options, log logs.Log) error {

	entries, err := os.ReadDir(opts.input)

	if err != nil {
		return fmt.Errorf("error reading directory: %w", err)
	}

	var files []string

	for _, e := range entries {
		name := e.Name()

		if e.IsDir() || !source.IsImage(name) || strings.Contains(name, ".out.") {
			continue
		}

		files = append(files, filepath.Join(opts.input, name))
	}

	sort.Strings(files)

	if len(files) == 0 {
		return fmt.Errorf("no images found in %s", opts.input)
	}

	pipe, err := newPipeline(cfg, labels, opts, log, detrack.WithoutTracking())

	if err != nil {
		return err
	}

	pool, err := detrack.NewPool(min(cfg.PoolSize, len(files)), factory)

	if err != nil {
		return err
	}

	defer pool.Close()

	log.Infof("Processing %d images with %d models", len(files), pool.Size())

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, file := range files {

		if ctx.Err() != nil {
			break
		}

		model, err := pool.Get()

		if err != nil {
			return err
		}

		wg.Add(1)

		go func(file string, model detrack.Model) {
			defer wg.Done()
			defer pool.Return(model)

			if err := processImage(pipe, model, file, log); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(file, model)
	}

	wg.Wait()

	if err := pipe.Times().Summary(os.Stdout, false); err != nil {
		return err
	}

	return errors.Join(errs...)
}

func processImage(pipe *detrack.Pipeline, model detrack.Model, file string, log logs.Log) error {

	img, err := source.LoadImage(file)

	if err != nil {
		return err
	}

	res, err := pipe.Process(model, img)

	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	pipe.Record(res.Times)

	out := source.ImageOutputPath(file)

	if err := source.SaveImage(out, res.Annotated); err != nil {
		return err
	}

	log.Infof("%s: %d objects in %.2fms, saved %s", file, res.Boxes.Count(),
		timing.Millis(res.Times.Total()), out)

	logBoxes(log, pipe.Labels(), res)

	return nil
}

// logBoxes writes the boxes of a frame to the debug log
func logBoxes(log logs.Log, labels detrack.Taxonomy, res *detrack.Result) {
	for class, list := range res.Boxes {
		for _, b := range list {
			log.Debugf("  %s %v", labels.Name(class), b)
		}
	}
}

// runVideo tracks objects through a video and encodes the annotated frames
func runVideo(ctx context.Context, cfg detrack.Config, labels detrack.Taxonomy,
	factory detrack.ModelFactory, opts options, log logs.Log) error {

	pipe, err := newPipeline(cfg, labels, opts, log)

	if err != nil {
		return err
	}

	model, err := factory(0)

	if err != nil {
		return err
	}

	defer model.Close()

	// stops the source and server when returning early on error
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var srv *server.Server

	if opts.serve != "" {
		srv = server.New(pipe.Times(), detrack.NewPrefixLogger(log, "server:"))

		go func() {
			if err := srv.ListenAndServe(ctx, opts.serve); err != nil {
				log.Errorf("%v", err)
			}
		}()
	}

	var src source.FrameSource

	if opts.capture {
		src = source.NewCaptureSource(opts.input, detrack.NewPrefixLogger(log, "capture:"))
	} else {
		src = source.NewGstSource(opts.input, detrack.NewPrefixLogger(log, "gst:"))
	}

	frames, errs := src.Frames(ctx)

	var sink *source.GstSink
	sinkLog := detrack.NewPrefixLogger(log, "sink:")
	fps := cfg.Tracker.FrameRate

	defer func() {
		if sink != nil {
			if err := sink.Close(); err != nil {
				log.Errorf("Error closing output: %v", err)
			}
		}
	}()

	for frame := range frames {

		res, err := pipe.ProcessBuffer(model, frame.Data, frame.Width, frame.Height)
		frame.Release()

		if err != nil {
			if detrack.IsConfigError(err) {
				return err
			}

			log.Warnf("Dropping frame %d [%s]: %v", frame.Seq, frame.TraceID, err)
			continue
		}

		if sink == nil {
			sink, err = source.NewGstSink(source.SinkOptions{
				Path:    source.VideoOutputPath(opts.input),
				Width:   frame.Width,
				Height:  frame.Height,
				FPS:     fps,
				Display: opts.display,
			}, sinkLog)

			if err != nil {
				return err
			}
		}

		if err := writeFrame(sink, res); err != nil {
			return err
		}

		pipe.Record(res.Times)

		log.Debugf("Frame %d [%s]: %d objects in %.2fms", frame.Seq, frame.TraceID,
			res.Boxes.Count(), timing.Millis(res.Times.Total()))

		if srv != nil {
			if err := srv.Publish(res.Annotated); err != nil {
				log.Warnf("%v", err)
			}
		}
	}

	if err := <-errs; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return report(pipe.Times(), opts)
}

// writeFrame encodes the annotated frame, timing the conversion back into
// a raw buffer
func writeFrame(sink *source.GstSink, res *detrack.Result) error {

	t := timing.Start()

	buf := detrack.ImageToBuffer(res.Annotated)

	res.Times.Set(timing.BufferToFrame, t.Stop())

	return sink.Write(buf)
}

// report prints the timing summary and writes the optional charts
func report(times *timing.AggregatedTimes, opts options) error {

	fmt.Println()

	if err := times.Summary(os.Stdout, true); err != nil {
		return err
	}

	if opts.plot != "" {
		if err := times.WritePlot(opts.plot, true); err != nil {
			return err
		}
	}

	if opts.html != "" {
		f, err := os.Create(opts.html)

		if err != nil {
			return fmt.Errorf("error creating %s: %w", opts.html, err)
		}

		defer f.Close()

		if err := times.WriteHTML(f, true); err != nil {
			return err
		}
	}

	return nil
}
