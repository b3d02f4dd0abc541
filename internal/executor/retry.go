package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds a single logical downstream call.
type Policy struct {
	// Timeout applies to each attempt.
	Timeout time.Duration
	// Attempts is the total number of tries for retryable failures; values below 1 mean 1.
	Attempts int
	// InitialInterval is the first backoff delay between attempts.
	InitialInterval time.Duration
	// MaxInterval caps the backoff delay.
	MaxInterval time.Duration
}

// DefaultPolicy is used when the caller leaves fields unset.
var DefaultPolicy = Policy{
	Timeout:         10 * time.Second,
	Attempts:        3,
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     2 * time.Second,
}

func (p Policy) withDefaults() Policy {
	if p.Timeout <= 0 {
		p.Timeout = DefaultPolicy.Timeout
	}
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultPolicy.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = DefaultPolicy.MaxInterval
	}
	return p
}

var errRetryable = errors.New("retryable outcome")

// Call runs fn under p and returns its final Outcome.
//
// Each attempt gets its own timeout and is detached from ctx cancellation, so a
// call that has been issued runs to completion or timeout. Transport failures
// and 5xx/429 statuses are retried with exponential backoff; every other
// outcome is final. An attempt that exceeds its timeout is Failed(timeout).
func Call(ctx context.Context, p Policy, fn func(context.Context) Outcome) Outcome {
	p = p.withDefaults()
	detached := context.WithoutCancel(ctx)

	var last Outcome
	operation := func() (Outcome, error) {
		last = attempt(detached, p.Timeout, fn)
		if last.Retryable() {
			return last, errRetryable
		}
		return last, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	_, _ = backoff.Retry(detached, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.Attempts)),
	)
	return last
}

func attempt(ctx context.Context, timeout time.Duration, fn func(context.Context) Outcome) (out Outcome) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			out = Failed(FailureInternal, fmt.Sprintf("panic: %v", r))
		}
	}()

	out = fn(attemptCtx)
	if out.Status == StatusFailed && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		out.Kind = FailureTimeout
		if out.Reason == "" {
			out.Reason = fmt.Sprintf("no response within %s", timeout)
		}
	}
	return out
}
