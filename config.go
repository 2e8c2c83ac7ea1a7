package detrack

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/swdee/go-detrack/preprocess"
	"github.com/swdee/go-detrack/tracker"
)

// Backend names the inference engine a Model runs on
type Backend string

const (
	// BackendONNX runs models with ONNX Runtime
	BackendONNX Backend = "onnx"
	// BackendOpenCV runs models with the OpenCV DNN module
	BackendOpenCV Backend = "opencv"
)

// Config holds the settings of a detection and tracking run.  It is loaded
// from a JSON file and individual fields can be overridden from the command
// line.
type Config struct {
	// Model is the path to the ONNX model file
	Model string `json:"model"`
	// Backend selects the inference engine
	Backend Backend `json:"backend"`
	// ONNXRuntimeLibrary is the path to the onnxruntime shared library, when
	// empty the platform default is used
	ONNXRuntimeLibrary string `json:"onnxruntime_library,omitempty"`
	// Threads is the number of intra op threads of the inference engine, 0
	// leaves the engine default
	Threads int `json:"threads"`
	// FP16 is set when the model produces half precision outputs
	FP16 bool `json:"fp16"`

	// InputWidth and InputHeight are the model's input canvas size
	InputWidth  int `json:"input_width"`
	InputHeight int `json:"input_height"`
	// Filter is the resize filter name used when letterboxing
	Filter string `json:"filter"`

	// LabelsFile is a text file with one class name per line.  Classes is
	// used instead when LabelsFile is empty, and COCO labels when both are.
	LabelsFile string   `json:"labels_file,omitempty"`
	Classes    []string `json:"classes,omitempty"`
	// KeyPoints is the number of keypoints per detection of pose models
	KeyPoints int `json:"keypoints"`

	// ConfThreshold is the minimum class score to keep a detection
	ConfThreshold float32 `json:"conf_threshold"`
	// NMSThreshold is the IoU above which overlapping boxes are suppressed
	NMSThreshold float32 `json:"nms_threshold"`

	// Tracking enables the tracker for video input
	Tracking bool `json:"tracking"`
	// Tracker holds the tracker settings
	Tracker tracker.Config `json:"tracker"`
	// TrailLength is the number of points drawn behind tracked objects, 0
	// disables trails
	TrailLength int `json:"trail_length"`

	// LegendSize is the height in pixels of box legends, 0 disables legends
	LegendSize int `json:"legend_size"`
	// PoolSize is the number of models used to process images in parallel
	PoolSize int `json:"pool_size"`
}

// DefaultConfig returns a Config for a COCO trained YOLOv8 model
func DefaultConfig() Config {
	return Config{
		Model:         "yolov8s.onnx",
		Backend:       BackendONNX,
		InputWidth:    640,
		InputHeight:   384,
		Filter:        "nearest",
		ConfThreshold: 0.25,
		NMSThreshold:  0.45,
		Tracking:      true,
		Tracker:       tracker.DefaultConfig(),
		TrailLength:   30,
		LegendSize:    14,
		PoolSize:      1,
	}
}

// LoadConfig reads a JSON config file over the defaults, so the file only
// needs the fields that differ
func LoadConfig(path string) (Config, error) {

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)

	if err != nil {
		return cfg, fmt.Errorf("error reading config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: error parsing %s: %w", ErrConfig, path, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration is usable.  All problems found are
// reported together.
func (c Config) Validate() error {

	var errs []error

	if c.Model == "" {
		errs = append(errs, errors.New("model path is required"))
	}

	switch c.Backend {
	case BackendONNX, BackendOpenCV:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}

	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		errs = append(errs, fmt.Errorf("input size must be positive, got %dx%d",
			c.InputWidth, c.InputHeight))
	}

	if _, err := preprocess.FilterByName(c.Filter); err != nil {
		errs = append(errs, err)
	}

	if c.ConfThreshold < 0 || c.ConfThreshold > 1 {
		errs = append(errs, fmt.Errorf("conf_threshold must be within [0, 1], got %g", c.ConfThreshold))
	}

	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		errs = append(errs, fmt.Errorf("nms_threshold must be within [0, 1], got %g", c.NMSThreshold))
	}

	if c.KeyPoints < 0 {
		errs = append(errs, fmt.Errorf("keypoints must not be negative, got %d", c.KeyPoints))
	}

	if c.LegendSize < 0 || c.TrailLength < 0 || c.Threads < 0 {
		errs = append(errs, errors.New("legend_size, trail_length and threads must not be negative"))
	}

	if c.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("pool_size must be at least 1, got %d", c.PoolSize))
	}

	if c.Tracking {
		if err := c.Tracker.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tracker: %w", err))
		}
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrConfig, errors.Join(errs...))
}

// Taxonomy returns the class names from the labels file, the inline classes
// or COCO, in that order of preference
func (c Config) Taxonomy() (Taxonomy, error) {

	if c.LabelsFile != "" {
		return LoadLabels(c.LabelsFile)
	}

	if len(c.Classes) > 0 {
		return Taxonomy(c.Classes), nil
	}

	return COCOLabels, nil
}
