package httpapi

import (
	"context"

	limiter "github.com/ulule/limiter/v3"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"
)

// attemptLimiter caps unlock attempts per client within a fixed window.
type attemptLimiter struct {
	limiter *limiter.Limiter
}

func newAttemptLimiter(formatted string) (*attemptLimiter, error) {
	if formatted == "" {
		formatted = defaultUnlockRate
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return &attemptLimiter{limiter: limiter.New(limitermemory.NewStore(), rate)}, nil
}

// Allow counts one attempt for key. Store failures fail open.
func (l *attemptLimiter) Allow(ctx context.Context, key string) bool {
	res, err := l.limiter.Get(ctx, key)
	if err != nil {
		return true
	}
	return !res.Reached
}
