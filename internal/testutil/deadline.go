package testutil

import (
	"sync"
	"time"
)

// Budget is a deadline that admits a fixed number of units.
//
// The scheduler asks for the remaining time once before every unit, so
// NewBudget(3) lets exactly three units run before the grant yields.
// Wall-clock time never enters the picture, which keeps yield points
// deterministic.
type Budget struct {
	mu    sync.Mutex
	units int
}

// NewBudget creates a budget admitting units more units.
func NewBudget(units int) *Budget {
	return &Budget{units: units}
}

// TimeRemaining reports an hour while units remain, consuming one, and
// zero afterwards.
func (b *Budget) TimeRemaining() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.units <= 0 {
		return 0
	}
	b.units--
	return time.Hour
}

// Remaining returns the number of units left.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.units
}

// Refill sets the number of units left.
func (b *Budget) Refill(units int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.units = units
}
