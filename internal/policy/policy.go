// Package policy wraps fallible operations with a deadline and a
// bounded exponential-backoff retry schedule.
package policy

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// Policy configures one wrapped execution. Zero fields fall back to
// the defaults when merged.
type Policy struct {
	TimeoutMs   int
	MaxRetries  int
	BaseDelayMs int
	MaxDelayMs  int

	// OnRetry is called before each retry with the attempt number that
	// just failed, starting at 1.
	OnRetry func(attempt int, err error)
}

// Default is the baseline policy: 5 s deadline, two retries.
func Default() Policy {
	return Policy{
		TimeoutMs:   5000,
		MaxRetries:  2,
		BaseDelayMs: 200,
		MaxDelayMs:  2000,
	}
}

// Merge layers policies left to right; later non-zero fields win.
// An OnRetry hook from any layer survives unless a later layer sets
// its own.
func Merge(base Policy, overrides ...Policy) Policy {
	merged := base
	for _, o := range overrides {
		if o.TimeoutMs > 0 {
			merged.TimeoutMs = o.TimeoutMs
		}
		if o.MaxRetries > 0 {
			merged.MaxRetries = o.MaxRetries
		}
		if o.BaseDelayMs > 0 {
			merged.BaseDelayMs = o.BaseDelayMs
		}
		if o.MaxDelayMs > 0 {
			merged.MaxDelayMs = o.MaxDelayMs
		}
		if o.OnRetry != nil {
			merged.OnRetry = o.OnRetry
		}
	}
	return merged
}

// Timeout returns the deadline as a duration.
func (p Policy) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// Do runs op under the policy: at most MaxRetries+1 invocations, with
// min(BaseDelay << (attempt-1), MaxDelay) between attempts, all bounded
// by the deadline. A deadline expiry surfaces as a timeout error; any
// other terminal error propagates unmodified.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout())
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(p.BaseDelayMs) * time.Millisecond
	b.MaxInterval = time.Duration(p.MaxDelayMs) * time.Millisecond
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	attempt := 0
	err := backoff.RetryNotify(
		func() error {
			attempt++
			return op(ctx)
		},
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxRetries)), ctx),
		func(err error, _ time.Duration) {
			if p.OnRetry != nil {
				p.OnRetry(attempt, err)
			}
		},
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return vaulterr.Wrap(vaulterr.Timeout, err, "deadline of %dms exceeded", p.TimeoutMs)
	}
	return err
}
