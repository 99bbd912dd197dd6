package engine

import "sync/atomic"

// Clock stamps passes with a logical sequence number. Committed and failed
// passes share one sequence, so a journal ordered by seq interleaves them
// in the order they ended. Wall-clock time is never used for ordering.
//
// Stamps are strictly increasing and never reused. Next is safe for
// concurrent use, although the scheduler only calls it from the granting
// goroutine. A clock resumed with NewClockAt keeps a reopened journal's
// seq column unique.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a clock whose first stamp is 1.
func NewClock() *Clock {
	return NewClockAt(0)
}

// NewClockAt returns a clock whose first stamp is last+1, continuing a
// journal whose highest recorded seq is last.
func NewClockAt(last int64) *Clock {
	c := &Clock{}
	c.last.Store(last)
	return c
}

// Next returns the next stamp.
func (c *Clock) Next() int64 {
	return c.last.Add(1)
}

// Current returns the last stamp handed out (0 if none).
func (c *Clock) Current() int64 {
	return c.last.Load()
}
