package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxUnits is the default maximum number of units one pass may
// process. It stops component recursion that never terminates.
const DefaultMaxUnits = 100000

// UnitQuota counts the units processed by one pass.
//
// Each pass gets a fresh quota. The count is checked before every unit, so
// a pass fails on the first unit past the limit.
type UnitQuota struct {
	maxUnits int
	current  int
}

// NewUnitQuota creates a quota with the given limit. A limit <= 0 disables
// the check.
func NewUnitQuota(maxUnits int) *UnitQuota {
	return &UnitQuota{maxUnits: maxUnits}
}

// Check counts one unit and validates it against the limit.
func (q *UnitQuota) Check(passID string) error {
	q.current++
	if q.maxUnits > 0 && q.current > q.maxUnits {
		return &UnitsExceededError{
			PassID: passID,
			Units:  q.current,
			Limit:  q.maxUnits,
		}
	}
	return nil
}

// Current returns the number of units counted so far.
func (q *UnitQuota) Current() int {
	return q.current
}

// MaxUnits returns the limit.
func (q *UnitQuota) MaxUnits() int {
	return q.maxUnits
}

// UnitsExceededError is returned when a pass exceeds its unit quota.
type UnitsExceededError struct {
	PassID string
	Units  int
	Limit  int
}

// Error implements the error interface.
func (e *UnitsExceededError) Error() string {
	return fmt.Sprintf("pass %s exceeded max units quota: %d units > %d limit",
		e.PassID, e.Units, e.Limit)
}

// IsUnitsExceededError reports whether err is a UnitsExceededError.
func IsUnitsExceededError(err error) bool {
	var ue *UnitsExceededError
	return errors.As(err, &ue)
}
