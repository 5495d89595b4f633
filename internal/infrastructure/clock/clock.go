package clock

import (
	"time"

	"github.com/taskledger/core/internal/ports"
)

// System is the wall clock.
type System struct{}

// NewSystem returns the wall clock as a ports.Clock.
func NewSystem() ports.Clock {
	return System{}
}

// Now returns the current time.
func (System) Now() time.Time {
	return time.Now()
}
