package retry

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Level: log.LevelError, Output: log.NewOutput(io.Discard)})
}

// newTestExecutor stubs the sleep so tests record delays instead of waiting
func newTestExecutor(opts Options) (*Executor, *[]time.Duration) {
	opts.Logger = testLogger()
	e := New(opts)

	var delays []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return e, &delays
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	e, delays := newTestExecutor(Options{MaxAttempts: 3, InitialDelay: time.Second})

	calls := 0
	err := e.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	e, delays := newTestExecutor(Options{MaxAttempts: 4, InitialDelay: time.Second})

	calls := 0
	err := e.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	// Exponential backoff: 1s before the second attempt, 2s before the third.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)
}

func TestDoExhaustsAttempts(t *testing.T) {
	e, delays := newTestExecutor(Options{MaxAttempts: 3, InitialDelay: time.Second})

	calls := 0
	err := e.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "boom")
	// No sleep after the final attempt.
	assert.Len(t, *delays, 2)
}

func TestDoRunsHookBetweenAttempts(t *testing.T) {
	hookErrs := []error{}
	e, _ := newTestExecutor(Options{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Hook: func(ctx context.Context, err error) error {
			hookErrs = append(hookErrs, err)
			return nil
		},
	})

	err := e.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("disk full")
	})

	require.Error(t, err)
	// The hook runs before each re-attempt, never after the last failure.
	require.Len(t, hookErrs, 2)
	assert.EqualError(t, hookErrs[0], "disk full")
}

func TestDoHookFailureIsSwallowed(t *testing.T) {
	e, _ := newTestExecutor(Options{
		MaxAttempts:  2,
		InitialDelay: time.Second,
		Hook: func(ctx context.Context, err error) error {
			return errors.New("mitigation broke")
		},
	})

	calls := 0
	err := e.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err, "a failing hook must not abort the retry loop")
	assert.Equal(t, 2, calls)
}

func TestDoCancelledContext(t *testing.T) {
	e, _ := newTestExecutor(Options{MaxAttempts: 5, InitialDelay: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := e.Do(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("never succeeds")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestNewClampsMaxAttempts(t *testing.T) {
	e := New(Options{MaxAttempts: 0, Logger: testLogger()})

	calls := 0
	err := e.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
