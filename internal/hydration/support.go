package hydration

import (
	"math/rand/v2"
	"time"
)

// Clock delivers the current time; extracted for deterministic testing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystemClock returns a Clock implementation backed by time.Now.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Picker returns a pseudo-random index in [0, n).
type Picker func(n int) int

func defaultPicker(n int) int {
	return rand.IntN(n)
}
