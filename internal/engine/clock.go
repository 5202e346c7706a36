package engine

import (
	"sync/atomic"
	"time"
)

// Clock is the monotonic logical clock that assigns decision seq numbers.
//
// Decisions are ordered by seq, never by wall-clock timestamp. Timestamps
// are recorded for humans; seq is the order of the log.
//
// Thread-safety: Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start.
// Used when restoring so new decisions continue after the last logged seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued seq without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// systemNow is the default wall clock for record timestamps.
func systemNow() time.Time {
	return time.Now().UTC()
}
