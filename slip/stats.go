package slip

import (
	"bytes"
	"fmt"
	"math"
)

// WindowStats holds the spans completed since the last checkpoint (or since
// enable).
type WindowStats struct {
	Count   uint64
	Elapsed Tick    // summed span length in ticks
	Min     float64 // shortest span in microseconds, +Inf when Count is 0
	Max     float64 // longest span in microseconds
}

// LifetimeStats holds the windows folded in by checkpoints.
type LifetimeStats struct {
	Count uint64
	Total float64 // microseconds
	Min   float64 // microseconds, +Inf when no window has been folded
	Max   float64 // microseconds
}

// Stats is the record kept for a flat tag entry or a call tree node.
type Stats struct {
	Window   WindowStats
	Lifetime LifetimeStats
}

func newStats() Stats {
	return Stats{
		Window:   WindowStats{Min: math.Inf(1)},
		Lifetime: LifetimeStats{Min: math.Inf(1)},
	}
}

// Average returns the mean lifetime span length in microseconds, or 0 if no
// span has been folded.
func (s Stats) Average() float64 {
	if s.Lifetime.Count == 0 {
		return 0
	}
	return s.Lifetime.Total / float64(s.Lifetime.Count)
}

// MinTime returns the lifetime minimum in microseconds, or 0 if no span has
// been folded.
func (s Stats) MinTime() float64 {
	if s.Lifetime.Count == 0 || math.IsInf(s.Lifetime.Min, 1) {
		return 0
	}
	return s.Lifetime.Min
}

func (s Stats) String() string {
	var b bytes.Buffer

	b.WriteString("[statistics]\n")
	b.WriteString(fmt.Sprintf("window count: %d\n", s.Window.Count))
	b.WriteString(fmt.Sprintf("window elapsed: %d ticks\n", s.Window.Elapsed))
	b.WriteString(fmt.Sprintf("lifetime count: %d\n", s.Lifetime.Count))
	b.WriteString(fmt.Sprintf("lifetime total: %fus\n", s.Lifetime.Total))
	b.WriteString(fmt.Sprintf("lifetime avg: %fus\n", s.Average()))

	return b.String()
}

// record adds one completed span to the window.
func (s *Stats) record(elapsed Tick, us float64) {
	w := &s.Window
	w.Elapsed += elapsed
	if us > w.Max {
		w.Max = us
	}
	if us < w.Min {
		w.Min = us
	}
	w.Count++
}

// fold adds the window to the lifetime totals. The window is left untouched.
func (s *Stats) fold(clock Clock) {
	w, l := &s.Window, &s.Lifetime

	l.Total += clock.Microseconds(w.Elapsed)
	if w.Min < l.Min {
		l.Min = w.Min
	}
	if w.Max > l.Max {
		l.Max = w.Max
	}
	l.Count += w.Count
}

func (s *Stats) resetWindow() {
	s.Window = WindowStats{Min: math.Inf(1)}
}
