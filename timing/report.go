package timing

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoSamples is returned when a report is requested before any frame times
// have been recorded
var ErrNoSamples = errors.New("no frame times recorded")

// WritePlot saves a PNG, SVG or PDF line chart, selected by the file
// extension, with the duration of every stage that ran per frame
func (a *AggregatedTimes) WritePlot(path string, ignoreFirst bool) error {

	samples := a.Samples(ignoreFirst)

	if len(samples) == 0 {
		return ErrNoSamples
	}

	p := plot.New()
	p.Title.Text = "Frame stage times"
	p.X.Label.Text = "frame"
	p.Y.Label.Text = "ms"

	for i, s := range activeStages(samples) {
		pts := make(plotter.XYs, len(samples))

		for n, ft := range samples {
			pts[n] = plotter.XY{X: float64(n), Y: Millis(ft.Get(s))}
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("error creating %s line: %w", s, err)
		}

		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.String(), line)
	}

	p.Legend.Top = true

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("error saving plot %s: %w", path, err)
	}

	return nil
}

// WriteHTML renders an interactive line chart of the stage times per frame
func (a *AggregatedTimes) WriteHTML(w io.Writer, ignoreFirst bool) error {

	samples := a.Samples(ignoreFirst)

	if len(samples) == 0 {
		return ErrNoSamples
	}

	frames := make([]int, len(samples))
	for i := range frames {
		frames[i] = i
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Frame timings", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Frame stage times", Subtitle: fmt.Sprintf("frames=%d", len(samples))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ms"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
	)
	line.SetXAxis(frames)

	for _, s := range activeStages(samples) {
		data := make([]opts.LineData, len(samples))

		for n, ft := range samples {
			data[n] = opts.LineData{Value: Millis(ft.Get(s))}
		}

		line.AddSeries(s.String(), data)
	}

	return line.Render(w)
}

// activeStages returns the stages with a non zero duration in any sample
func activeStages(samples []FrameTimes) []Stage {
	var stages []Stage

	for _, s := range Stages() {
		for _, ft := range samples {
			if ft.Get(s) != 0 {
				stages = append(stages, s)
				break
			}
		}
	}

	return stages
}
