package worker

import (
	"context"
	"time"

	"github.com/avast/retry-go"
	apperrors "github.com/vytor/studyflow/internal/errors"
	"github.com/vytor/studyflow/internal/logger"
)

// RetryPolicy bounds how often a failed write is attempted again.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
}

// DefaultRetryPolicy is used when a caller passes a zero policy.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: 200 * time.Millisecond}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.Attempts == 0 {
		p.Attempts = DefaultRetryPolicy.Attempts
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// Retry runs fn until it succeeds, the attempts run out or ctx ends. Only
// transient store errors are retried; anything else is returned at once.
func Retry(ctx context.Context, policy RetryPolicy, fn func(context.Context) error) error {
	policy = policy.normalize()
	log := logger.FromContext(ctx)

	return retry.Do(
		func() error {
			err := fn(ctx)
			if err != nil && !apperrors.IsTransient(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(policy.Attempts),
		retry.Delay(policy.Delay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("attempt %d failed, retrying: %v", n+1, err)
		}),
	)
}
