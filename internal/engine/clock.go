package engine

import "sync/atomic"

// Clock is the monotonic cycle counter. Cycle numbers start at 1 and never
// repeat within a run; they are the only notion of time the simulation has.
//
// Thread-safety: safe for concurrent use (atomic operations). Only the
// simulation goroutine advances it; participants read it.
type Clock struct {
	cycle atomic.Int64
}

// NewClock creates a clock at cycle 0 (nothing run yet).
func NewClock() *Clock {
	return &Clock{}
}

// Next advances to and returns the next cycle number.
func (c *Clock) Next() int64 {
	return c.cycle.Add(1)
}

// Current returns the last cycle started, without advancing.
func (c *Clock) Current() int64 {
	return c.cycle.Load()
}
