// Package simulate provides the artificial latency used to stand in for
// provider logins, credential checks and assistant "thinking".
package simulate

import (
	"context"
	"math/rand/v2"
	"time"
)

// Delayer waits out simulated latency. Scale multiplies every delay;
// a scale of zero or less disables waiting entirely.
type Delayer struct {
	Scale float64
}

// Instant is a Delayer that never waits.
var Instant = Delayer{}

// Wait blocks for d scaled by the delayer, or until ctx is done.
func (s Delayer) Wait(ctx context.Context, d time.Duration) error {
	scaled := time.Duration(float64(d) * s.Scale)
	if scaled <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(scaled)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Between returns a uniformly random duration in [lo, hi).
func Between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int64N(int64(hi-lo)))
}
