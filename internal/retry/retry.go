// Package retry wraps arbitrary actions with exponential-backoff retry
// and best-effort recovery hooks.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/rigup/internal/log"
)

// Action is a unit of work that may fail transiently
type Action func(ctx context.Context) error

// Hook runs between a failed attempt and the next one. It receives the
// error that caused the failure and may perform category-specific
// mitigation (clearing temp files, nudging the garbage collector).
// Hook failures are logged and swallowed; recovery is best-effort and
// must never mask the original error.
type Hook func(ctx context.Context, err error) error

// Options configures an Executor
type Options struct {
	// MaxAttempts is the total number of times the action may run.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt; it doubles
	// after every failure.
	InitialDelay time.Duration

	// Hook, if set, runs before each re-attempt.
	Hook Hook

	Logger *log.Logger
}

// Executor retries actions with exponential backoff
type Executor struct {
	opts Options

	// sleep is stubbed in tests to avoid real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Executor. MaxAttempts below 1 is treated as 1.
func New(opts Options) *Executor {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.DefaultLogger()
	}
	return &Executor{
		opts:  opts,
		sleep: sleepContext,
	}
}

// Do runs the action until it succeeds or MaxAttempts is exhausted.
// The delay before attempt n+1 is InitialDelay * 2^(n-1). The last
// error is wrapped and returned when all attempts fail; context
// cancellation aborts both waits and further attempts.
func (e *Executor) Do(ctx context.Context, action Action) error {
	delay := e.opts.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := action(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		// No wait or recovery after the final attempt.
		if attempt == e.opts.MaxAttempts {
			break
		}

		e.opts.Logger.Warn("attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", e.opts.MaxAttempts,
			"delay", delay.String(),
			"error", err.Error(),
			"category", string(Classify(err)))

		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2

		if e.opts.Hook != nil {
			if hookErr := e.opts.Hook(ctx, lastErr); hookErr != nil {
				e.opts.Logger.Warn("recovery hook failed", "error", hookErr.Error())
			}
		}
	}

	return fmt.Errorf("action failed after %d attempts: %w", e.opts.MaxAttempts, lastErr)
}

// Do is a convenience wrapper for a one-off retried action
func Do(ctx context.Context, action Action, opts Options) error {
	return New(opts).Do(ctx, action)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
