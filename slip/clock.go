package slip

import (
	"time"

	"github.com/zoobzio/clockz"
)

// Tick is an opaque monotonic timestamp. Only differences between ticks of
// the same [Clock] are meaningful.
type Tick int64

// Clock supplies timestamps to a [Tracker].
type Clock interface {
	// Now returns the current tick.
	Now() Tick
	// Microseconds converts a tick difference to microseconds.
	Microseconds(d Tick) float64
}

type tickClock struct {
	clock      clockz.Clock
	origin     time.Time
	resolution time.Duration
}

// NewClock returns a [Clock] counting ticks of the given resolution on top of
// c. A resolution <= 0 means one tick per nanosecond.
//
// Ticks are measured from the moment NewClock is called, so a
// [clockz.NewFakeClock] advanced by 100ms yields 100000 ticks at
// microsecond resolution.
func NewClock(c clockz.Clock, resolution time.Duration) Clock {
	if resolution <= 0 {
		resolution = time.Nanosecond
	}
	return &tickClock{
		clock:      c,
		origin:     c.Now(),
		resolution: resolution,
	}
}

// DefaultClock returns a nanosecond [Clock] backed by [clockz.RealClock].
func DefaultClock() Clock {
	return NewClock(clockz.RealClock, time.Nanosecond)
}

func (c *tickClock) Now() Tick {
	return Tick(c.clock.Since(c.origin) / c.resolution)
}

func (c *tickClock) Microseconds(d Tick) float64 {
	return float64(d) * float64(c.resolution) / float64(time.Microsecond)
}
