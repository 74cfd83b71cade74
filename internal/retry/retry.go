// Package retry runs an operation under an explicit retry policy. The policy decides how
// many attempts are made and how long to wait between them; the operation only reports
// what happened.
package retry

import (
	"context"
	"errors"
	"time"

	bckoff "github.com/cenkalti/backoff/v4"
)

// BackoffFunc returns the delay before the next attempt, given the 1-based number of the
// attempt that just failed and its error.
type BackoffFunc func(attempt int, err error) time.Duration

// Policy bounds a retry loop
type Policy struct {
	MaxAttempts int
	Backoff     BackoffFunc
	// Retryable reports whether a failure may be retried. Nil means every error is.
	Retryable func(err error) bool
	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Operation is one attempt. attempt is 1-based.
type Operation func(ctx context.Context, attempt int) error

// Linear waits base × attempt
func Linear(base time.Duration) BackoffFunc {
	return func(attempt int, _ error) time.Duration {
		return base * time.Duration(attempt)
	}
}

// Exponential waits base × 2^(attempt-1), capped at max when max > 0
func Exponential(base, max time.Duration) BackoffFunc {
	return func(attempt int, _ error) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if max > 0 && d >= max {
				return max
			}
		}
		if max > 0 && d > max {
			return max
		}
		return d
	}
}

// Constant always waits d
func Constant(d time.Duration) BackoffFunc {
	return func(int, error) time.Duration { return d }
}

// Permanent marks err as not retryable regardless of the policy
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return bckoff.Permanent(err)
}

// Do runs op until it succeeds, the policy gives up, or ctx is done. The error of the
// last attempt is returned unwrapped.
func Do(ctx context.Context, p Policy, op Operation) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff == nil {
		p.Backoff = Constant(0)
	}

	b := &policyBackOff{policy: p}
	operation := func() error {
		if err := ctx.Err(); err != nil {
			return bckoff.Permanent(err)
		}
		b.attempt++
		err := op(ctx, b.attempt)
		if err == nil {
			return nil
		}
		b.lastErr = err
		if p.Retryable != nil && !p.Retryable(err) {
			return bckoff.Permanent(err)
		}
		return err
	}

	var notify bckoff.Notify
	if p.OnRetry != nil {
		notify = func(err error, wait time.Duration) {
			p.OnRetry(b.attempt, err, wait)
		}
	}

	err := bckoff.RetryNotify(operation, bckoff.WithContext(b, ctx), notify)
	var permanent *bckoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

// policyBackOff adapts a Policy to backoff.BackOff. It is stateful and used for a single
// Do call only.
type policyBackOff struct {
	policy  Policy
	attempt int
	lastErr error
}

func (b *policyBackOff) NextBackOff() time.Duration {
	if b.attempt >= b.policy.MaxAttempts {
		return bckoff.Stop
	}
	d := b.policy.Backoff(b.attempt, b.lastErr)
	if d < 0 {
		d = 0
	}
	return d
}

func (b *policyBackOff) Reset() {
	b.attempt = 0
	b.lastErr = nil
}
