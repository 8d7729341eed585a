package economy

import (
	"math/rand/v2"
	"time"
)

// Clock supplies the current time. Callers read it once per action.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Rand is the source of randomness for tier, reward and fortune picks.
type Rand interface {
	// IntN returns a uniform integer in [0, n).
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n)
}

// NewRand returns a Rand backed by the process-wide source.
func NewRand() Rand {
	return globalRand{}
}
