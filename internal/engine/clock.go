package engine

import "sync/atomic"

// Clock is the engine's logical clock. Every invocation and completion is
// stamped with a strictly increasing seq; wall-clock time is never used for
// ordering.
//
// Clock is safe for concurrent use, though only the engine's writer
// goroutine advances it.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start, so the next seq is start+1.
// Used when reopening a store to continue after its last recorded seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last seq handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Reset moves the clock back to seq. The engine calls it when a commit fails
// so the seqs it stamped are reused and the log has no gaps.
func (c *Clock) Reset(seq int64) {
	c.seq.Store(seq)
}
