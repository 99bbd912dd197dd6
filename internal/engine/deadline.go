package engine

import (
	"math"
	"time"
)

// EnoughTime is the least time a grant must have left for the scheduler to
// start another unit. Below it the scheduler yields.
const EnoughTime = time.Millisecond

// Deadline is a time-bounded grant from the host.
type Deadline interface {
	TimeRemaining() time.Duration
}

// DeadlineFunc adapts a function to Deadline.
type DeadlineFunc func() time.Duration

// TimeRemaining implements Deadline.
func (f DeadlineFunc) TimeRemaining() time.Duration {
	return f()
}

// Unlimited is a grant that never runs out.
var Unlimited Deadline = DeadlineFunc(func() time.Duration { return math.MaxInt64 })

// Until returns a wall-clock grant ending at t.
func Until(t time.Time) Deadline {
	return DeadlineFunc(func() time.Duration { return time.Until(t) })
}

// Slice returns a wall-clock grant of d starting now.
func Slice(d time.Duration) Deadline {
	return Until(time.Now().Add(d))
}
