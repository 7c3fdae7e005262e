// Package retry runs a fallible operation a bounded number of times,
// strictly one attempt after another, and falls back to a default value when
// every attempt fails.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// ErrAttemptTimeout is reported when a single attempt exceeds AttemptTimeout
var ErrAttemptTimeout = errors.New("attempt timed out")

// Policy bounds how hard an operation is retried
type Policy struct {
	// MaxRetries is the number of extra attempts after the first one
	MaxRetries int
	// AttemptTimeout cancels an attempt's context after this long; zero disables it
	AttemptTimeout time.Duration
	// Retryable reports whether err is worth another attempt; nil treats every error as retryable
	Retryable func(error) bool
	Clock     quartz.Clock
	Logger    *log.Logger
}

func (p Policy) attempts() int {
	return max(p.MaxRetries, 0) + 1
}

func (p Policy) clock() quartz.Clock {
	if p.Clock == nil {
		return quartz.NewReal()
	}
	return p.Clock
}

func (p Policy) logger() *log.Logger {
	if p.Logger == nil {
		return log.New(io.Discard)
	}
	return p.Logger
}

// Do runs op up to MaxRetries+1 times. Each failure is logged. When every
// attempt fails the fallback value is returned with a nil error. Errors that
// Retryable rejects and cancellation of ctx are returned immediately.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error), fallback func() T) (T, error) {
	v, err := Try(ctx, p, op)
	if err == nil {
		return v, nil
	}
	if ctx.Err() != nil || !p.retryable(err) {
		return v, err
	}

	p.logger().Warn("All attempts failed, using fallback", "attempts", p.attempts(), "error", err)
	return fallback(), nil
}

// Try runs op up to MaxRetries+1 times and returns the last error if none
// succeeds.
func Try[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	logger := p.logger()
	total := p.attempts()

	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := attempt(ctx, p, op)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !p.retryable(err) {
			logger.Error("Attempt failed with unrecoverable error", "attempt", n, "error", err)
			return zero, err
		}
		logger.Warn("Attempt failed", "attempt", n, "of", total, "error", err)
	}

	return zero, lastErr
}

// attempt runs op once, cancelling its context when AttemptTimeout elapses
// on the policy's clock.
func attempt[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	if p.AttemptTimeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	timer := p.clock().AfterFunc(p.AttemptTimeout, func() {
		cancel(ErrAttemptTimeout)
	}, "retry", "attempt")
	defer timer.Stop()

	v, err := op(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(context.Cause(attemptCtx), ErrAttemptTimeout) {
		return v, fmt.Errorf("%w after %s: %w", ErrAttemptTimeout, p.AttemptTimeout, err)
	}
	return v, err
}

func (p Policy) retryable(err error) bool {
	return p.Retryable == nil || p.Retryable(err)
}
