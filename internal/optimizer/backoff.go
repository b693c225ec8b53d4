package optimizer

import (
	"context"
	"time"
)

// DefaultMaxAttempts is used when a caller passes a non-positive retry count.
const DefaultMaxAttempts = 3

// Backoff decides how many attempts a model call gets and how long to wait
// between them. Attempt numbers are 1-indexed.
type Backoff struct {
	MaxAttempts int
	Delay       func(attempt int) time.Duration
}

// LinearBackoff waits base*attempt after each failed attempt.
func LinearBackoff(maxAttempts int, base time.Duration) Backoff {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return Backoff{
		MaxAttempts: maxAttempts,
		Delay: func(attempt int) time.Duration {
			if attempt <= 0 {
				return 0
			}
			return base * time.Duration(attempt)
		},
	}
}

// Budget is the longest a call can take when every attempt runs for
// callTimeout and fails.
func (b Backoff) Budget(callTimeout time.Duration) time.Duration {
	total := time.Duration(b.MaxAttempts) * callTimeout
	if b.Delay != nil {
		for attempt := 1; attempt < b.MaxAttempts; attempt++ {
			total += b.Delay(attempt)
		}
	}
	return total
}

// PipelineBudget is the worst-case duration of a full three-stage run.
func PipelineBudget(maxRetries int, callTimeout, retryDelay time.Duration) time.Duration {
	return time.Duration(len(Stages)) * LinearBackoff(maxRetries, retryDelay).Budget(callTimeout)
}

// Sleeper blocks for a duration. Tests swap it for a recorder.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// RealSleeper waits on a timer and returns early if ctx is done.
var RealSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
})
