// Package timing records how long each stage of the frame pipeline took and
// aggregates those records over a run.
package timing

import (
	"fmt"
	"strings"
	"time"
)

// Stage identifies a single step of the per frame pipeline
type Stage int

const (
	FrameToBuffer Stage = iota
	BufferResize
	BufferToTensor
	ForwardPass
	BboxExtraction
	NMS
	Tracking
	Remap
	Annotation
	BufferToFrame
	numStages
)

var stageNames = [numStages]string{
	"frame_to_buffer",
	"buffer_resize",
	"buffer_to_tensor",
	"forward_pass",
	"bbox_extraction",
	"nms",
	"tracking",
	"remap",
	"annotation",
	"buffer_to_frame",
}

// String returns the snake case name of the stage
func (s Stage) String() string {
	if s < 0 || s >= numStages {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Stages returns all stages in pipeline order
func Stages() []Stage {
	stages := make([]Stage, numStages)
	for i := range stages {
		stages[i] = Stage(i)
	}
	return stages
}

// FrameTimes holds the duration of every stage for a single frame.  Stages
// that did not run, such as tracking on still images, stay zero.
type FrameTimes struct {
	FrameToBuffer  time.Duration `json:"frame_to_buffer"`
	BufferResize   time.Duration `json:"buffer_resize"`
	BufferToTensor time.Duration `json:"buffer_to_tensor"`
	ForwardPass    time.Duration `json:"forward_pass"`
	BboxExtraction time.Duration `json:"bbox_extraction"`
	NMS            time.Duration `json:"nms"`
	Tracking       time.Duration `json:"tracking"`
	Remap          time.Duration `json:"remap"`
	Annotation     time.Duration `json:"annotation"`
	BufferToFrame  time.Duration `json:"buffer_to_frame"`
}

// Uniform returns a FrameTimes with every stage set to d
func Uniform(d time.Duration) FrameTimes {
	var ft FrameTimes
	for _, s := range Stages() {
		ft.Set(s, d)
	}
	return ft
}

func (ft *FrameTimes) field(s Stage) *time.Duration {
	switch s {
	case FrameToBuffer:
		return &ft.FrameToBuffer
	case BufferResize:
		return &ft.BufferResize
	case BufferToTensor:
		return &ft.BufferToTensor
	case ForwardPass:
		return &ft.ForwardPass
	case BboxExtraction:
		return &ft.BboxExtraction
	case NMS:
		return &ft.NMS
	case Tracking:
		return &ft.Tracking
	case Remap:
		return &ft.Remap
	case Annotation:
		return &ft.Annotation
	case BufferToFrame:
		return &ft.BufferToFrame
	}
	panic(fmt.Sprintf("timing: unknown stage %d", int(s)))
}

// Set records the duration of a stage
func (ft *FrameTimes) Set(s Stage, d time.Duration) {
	*ft.field(s) = d
}

// Get returns the duration of a stage
func (ft FrameTimes) Get(s Stage) time.Duration {
	return *ft.field(s)
}

// Total is the sum of all stage durations
func (ft FrameTimes) Total() time.Duration {
	var total time.Duration
	for _, s := range Stages() {
		total += ft.Get(s)
	}
	return total
}

// String returns the non zero stages in milliseconds, for logging
func (ft FrameTimes) String() string {
	var sb strings.Builder

	for _, s := range Stages() {
		d := ft.Get(s)
		if d == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s=%.2fms ", s, Millis(d))
	}

	fmt.Fprintf(&sb, "total=%.2fms", Millis(ft.Total()))
	return sb.String()
}

// Millis converts a duration to fractional milliseconds
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Timer measures the elapsed time of a stage
type Timer struct {
	start time.Time
}

// Start returns a running Timer
func Start() Timer {
	return Timer{start: time.Now()}
}

// Stop returns the time elapsed since the Timer was started
func (t Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// Record sets the stage on ft to the time elapsed and restarts the Timer so
// consecutive stages can be measured with one Timer
func (t *Timer) Record(ft *FrameTimes, s Stage) {
	now := time.Now()
	ft.Set(s, now.Sub(t.start))
	t.start = now
}
