package execx

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRunnerCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix coreutils")
	}

	runner := NewLocalRunner(10 * time.Second)

	result, err := runner.Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Zero(t, result.ExitCode)
	assert.Positive(t, result.Duration)
}

func TestLocalRunnerNonZeroExitIsNotAnError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix coreutils")
	}

	runner := NewLocalRunner(10 * time.Second)

	result, err := runner.Run(context.Background(), "false")
	require.NoError(t, err, "a failing command is a result, not a runner error")
	assert.Equal(t, 1, result.ExitCode)
}

func TestLocalRunnerMissingBinary(t *testing.T) {
	runner := NewLocalRunner(10 * time.Second)

	_, err := runner.Run(context.Background(), "definitely-not-a-real-binary-xyz")
	require.Error(t, err)
}

func TestLocalRunnerCancelledContext(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix coreutils")
	}

	runner := NewLocalRunner(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, "sleep", "10")
	require.Error(t, err)
}

func TestFakeRunnerScripting(t *testing.T) {
	fake := NewFakeRunner()
	fake.Responses["python --version"] = Result{Stdout: "Python 3.11.4"}
	fake.Errors["python -m venv /tmp/venv"] = errors.New("no permission")

	result, err := fake.Run(context.Background(), "python", "--version")
	require.NoError(t, err)
	assert.Equal(t, "Python 3.11.4", result.Stdout)

	_, err = fake.Run(context.Background(), "python", "-m", "venv", "/tmp/venv")
	require.Error(t, err)

	// Unmatched calls succeed by default.
	result, err = fake.Run(context.Background(), "python", "-m", "pip", "install", "numpy")
	require.NoError(t, err)
	assert.Zero(t, result.ExitCode)

	assert.Equal(t, 3, len(fake.Calls))
	assert.Equal(t, 2, fake.CallCount("-m"))
}
