package renderer

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultFrameHistory is the number of frame times kept by a new tracer
const DefaultFrameHistory = 120

// FrameStats keeps a bounded history of recent frame times
type FrameStats struct {
	samples []float64 // Frame times in seconds, ring buffer
	next    int       // Index the next sample is written to
	full    bool      // Whether the ring has wrapped
	total   int       // Frames recorded since creation or Reset
	last    time.Duration
}

// FrameSummary is a point-in-time view of FrameStats
type FrameSummary struct {
	Count  int           // Frames recorded in total
	Window int           // Frames the aggregates below are computed over
	Last   time.Duration // Most recent frame time
	Min    time.Duration // Fastest frame in the window
	Max    time.Duration // Slowest frame in the window
	Mean   time.Duration // Mean frame time in the window
	StdDev time.Duration // Sample standard deviation in the window
}

// NewFrameStats creates frame statistics keeping up to history samples
func NewFrameStats(history int) *FrameStats {
	if history < 1 {
		history = 1
	}
	return &FrameStats{samples: make([]float64, history)}
}

// Add records a frame time
func (fs *FrameStats) Add(d time.Duration) {
	fs.samples[fs.next] = d.Seconds()
	fs.next++
	if fs.next == len(fs.samples) {
		fs.next = 0
		fs.full = true
	}
	fs.total++
	fs.last = d
}

// Reset discards all recorded frame times
func (fs *FrameStats) Reset() {
	fs.next = 0
	fs.full = false
	fs.total = 0
	fs.last = 0
}

// window returns the recorded samples, oldest first
func (fs *FrameStats) window() []float64 {
	if !fs.full {
		return fs.samples[:fs.next]
	}
	w := make([]float64, 0, len(fs.samples))
	w = append(w, fs.samples[fs.next:]...)
	return append(w, fs.samples[:fs.next]...)
}

// Summary computes aggregates over the recorded window
func (fs *FrameStats) Summary() FrameSummary {
	w := fs.window()
	summary := FrameSummary{
		Count:  fs.total,
		Window: len(w),
		Last:   fs.last,
	}
	if len(w) == 0 {
		return summary
	}

	summary.Min = seconds(floats.Min(w))
	summary.Max = seconds(floats.Max(w))
	if len(w) == 1 {
		summary.Mean = seconds(w[0])
		return summary
	}

	mean, std := stat.MeanStdDev(w, nil)
	summary.Mean = seconds(mean)
	summary.StdDev = seconds(std)
	return summary
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
