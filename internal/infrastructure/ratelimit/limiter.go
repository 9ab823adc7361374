// Package ratelimit paces outbound document and image work with a token bucket.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"ReadingRoom/internal/ports"
)

// Limiter wraps a single shared token bucket.
type Limiter struct {
	limiter *rate.Limiter
}

var _ ports.Limiter = (*Limiter)(nil)

// New creates a limiter allowing rps events per second. A non-positive rps
// disables limiting.
func New(rps float64, burst int) *Limiter {
	r := rate.Limit(rps)
	if rps <= 0 {
		r = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(r, burst)}
}

// Unlimited never blocks.
func Unlimited() *Limiter {
	return New(0, 1)
}

// Wait blocks until a token is available, respecting the context.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
