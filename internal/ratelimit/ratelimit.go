// Package ratelimit paces record delivery in stream mode, for replaying
// event streams into downstream consumers at a bounded rate.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles records per second. The zero rate means unlimited.
type Limiter struct {
	limiter *rate.Limiter
}

// New builds a limiter; zero or negative recordsPerSecond disables
// throttling.
func New(recordsPerSecond float64) *Limiter {
	if recordsPerSecond <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	// Burst of one: the first record passes immediately, the rest pace
	// out at the configured rate.
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(recordsPerSecond), 1)}
}

// Wait blocks until the next record may be delivered.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports without blocking whether a record may pass now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Limit returns the configured rate, zero when unlimited.
func (l *Limiter) Limit() float64 {
	limit := l.limiter.Limit()
	if limit == rate.Inf {
		return 0
	}
	return float64(limit)
}
