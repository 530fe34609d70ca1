package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket used to throttle watch-mode rebuild cycles.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a limiter allowing perSecond events with the given
// burst. A non-positive burst is treated as 1.
func NewLimiter(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.inner.Wait(ctx)
}

// Delay reports how long a caller would have to wait for the next token
// without consuming it.
func (l *Limiter) Delay() time.Duration {
	r := l.inner.Reserve()
	defer r.Cancel()
	if !r.OK() {
		return 0
	}
	return r.Delay()
}
