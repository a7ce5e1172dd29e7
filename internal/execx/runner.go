// Package execx provides a typed subprocess abstraction for external
// collaborators (the package manager, capability probes). The core never
// constructs executable source text; it only runs named commands and
// inspects exit codes and captured output.
package execx

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Result represents the outcome of an external command
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes external commands
type Runner interface {
	// Run executes the command with the given arguments and returns the
	// captured output. A non-zero exit code is reported through
	// Result.ExitCode, not through the error; the error is reserved for
	// failures to start or complete the process (missing binary,
	// cancelled context).
	Run(ctx context.Context, command string, args ...string) (Result, error)
}

// LocalRunner runs commands on the local machine with a per-call timeout
type LocalRunner struct {
	// Timeout bounds each command invocation. Zero means no timeout.
	Timeout time.Duration
}

// NewLocalRunner creates a LocalRunner with the given command timeout
func NewLocalRunner(timeout time.Duration) *LocalRunner {
	return &LocalRunner{Timeout: timeout}
}

// Run implements Runner
func (r *LocalRunner) Run(ctx context.Context, command string, args ...string) (Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}

	return result, nil
}
