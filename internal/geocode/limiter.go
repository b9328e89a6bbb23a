package geocode

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces the minimum delay between upstream geocode calls.
// One instance is shared process-wide and injected into the client, so
// the last-call timer is explicit state rather than an ambient singleton.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a limiter that allows one call per minInterval.
// Burst is fixed at 1: the provider's usage policy is an absolute
// spacing requirement, not an average rate.
func NewLimiter(minInterval time.Duration) *Limiter {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// Wait blocks until the next call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a call is allowed right now without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
