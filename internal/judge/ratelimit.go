package judge

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"compliance/internal/domain"
)

// RateLimited throttles calls to the wrapped judge. One instance is shared by
// all audit workers.
type RateLimited struct {
	next    domain.Judge
	limiter *rate.Limiter
}

// NewRateLimited allows perMinute calls per minute with a burst of one.
// A non-positive perMinute returns next unchanged.
func NewRateLimited(next domain.Judge, perMinute int) domain.Judge {
	if perMinute <= 0 {
		return next
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Judge waits for a token, then delegates.
func (r *RateLimited) Judge(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.next.Judge(ctx, prompt)
}
