package timing

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"gonum.org/v1/gonum/stat"
)

// AggregatedTimes collects the FrameTimes of a run.  The first frame is
// usually dominated by warm up costs, so every statistic can exclude it.
// It is safe for concurrent use.
type AggregatedTimes struct {
	mu      sync.RWMutex
	samples []FrameTimes
}

// NewAggregatedTimes returns an empty collection
func NewAggregatedTimes() *AggregatedTimes {
	return &AggregatedTimes{}
}

// Push appends the times of a frame
func (a *AggregatedTimes) Push(ft FrameTimes) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples = append(a.samples, ft)
}

// Len returns the number of frames pushed
func (a *AggregatedTimes) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.samples)
}

// Samples returns a copy of the recorded frames
func (a *AggregatedTimes) Samples(ignoreFirst bool) []FrameTimes {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]FrameTimes(nil), a.window(ignoreFirst)...)
}

// window returns the samples statistics are computed over, caller must hold
// the lock
func (a *AggregatedTimes) window(ignoreFirst bool) []FrameTimes {
	if ignoreFirst && len(a.samples) > 0 {
		return a.samples[1:]
	}
	return a.samples
}

// Average returns the per stage mean.  A zero FrameTimes is returned when
// there are no samples.
func (a *AggregatedTimes) Average(ignoreFirst bool) FrameTimes {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var avg FrameTimes
	samples := a.window(ignoreFirst)

	if len(samples) == 0 {
		return avg
	}

	for _, s := range Stages() {
		var sum time.Duration
		for _, ft := range samples {
			sum += ft.Get(s)
		}
		avg.Set(s, sum/time.Duration(len(samples)))
	}

	return avg
}

// Min returns the per stage minimum, each stage independently of the others
func (a *AggregatedTimes) Min(ignoreFirst bool) FrameTimes {
	return a.reduce(ignoreFirst, func(cur, v time.Duration) bool { return v < cur })
}

// Max returns the per stage maximum, each stage independently of the others
func (a *AggregatedTimes) Max(ignoreFirst bool) FrameTimes {
	return a.reduce(ignoreFirst, func(cur, v time.Duration) bool { return v > cur })
}

// reduce picks per stage the sample value for which better reports true
// against the current pick
func (a *AggregatedTimes) reduce(ignoreFirst bool, better func(cur, v time.Duration) bool) FrameTimes {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out FrameTimes
	samples := a.window(ignoreFirst)

	if len(samples) == 0 {
		return out
	}

	for _, s := range Stages() {
		pick := samples[0].Get(s)
		for _, ft := range samples[1:] {
			if v := ft.Get(s); better(pick, v) {
				pick = v
			}
		}
		out.Set(s, pick)
	}

	return out
}

// Percentile returns the p quantile of a single stage.  p is clamped to
// [0, 1], NaN is treated as 0.
func (a *AggregatedTimes) Percentile(s Stage, p float64, ignoreFirst bool) time.Duration {
	values := a.stageValues(s, ignoreFirst)

	if len(values) == 0 {
		return 0
	}

	switch {
	case !(p >= 0):
		p = 0
	case p > 1:
		p = 1
	}

	sort.Float64s(values)
	return time.Duration(stat.Quantile(p, stat.Empirical, values, nil))
}

// StdDev returns the sample standard deviation of a single stage
func (a *AggregatedTimes) StdDev(s Stage, ignoreFirst bool) time.Duration {
	values := a.stageValues(s, ignoreFirst)

	if len(values) < 2 {
		return 0
	}

	return time.Duration(stat.StdDev(values, nil))
}

// stageValues returns the durations of a stage as nanoseconds
func (a *AggregatedTimes) stageValues(s Stage, ignoreFirst bool) []float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	samples := a.window(ignoreFirst)
	values := make([]float64, len(samples))

	for i, ft := range samples {
		values[i] = float64(ft.Get(s))
	}

	return values
}

// Summary writes a table of the average, minimum, maximum and 95th
// percentile of every stage in milliseconds
func (a *AggregatedTimes) Summary(w io.Writer, ignoreFirst bool) error {

	avg := a.Average(ignoreFirst)
	minT := a.Min(ignoreFirst)
	maxT := a.Max(ignoreFirst)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "stage\tavg ms\tmin ms\tmax ms\tp95 ms\t\n")

	for _, s := range Stages() {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t\n", s,
			Millis(avg.Get(s)), Millis(minT.Get(s)), Millis(maxT.Get(s)),
			Millis(a.Percentile(s, 0.95, ignoreFirst)))
	}

	fmt.Fprintf(tw, "total\t%.2f\t%.2f\t%.2f\t\t\n",
		Millis(avg.Total()), Millis(minT.Total()), Millis(maxT.Total()))

	fmt.Fprintf(tw, "frames\t%d\t\t\t\t\n", len(a.Samples(ignoreFirst)))

	return tw.Flush()
}
