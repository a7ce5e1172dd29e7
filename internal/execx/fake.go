package execx

import (
	"context"
	"strings"
	"sync"
)

// FakeRunner is a scripted Runner for tests. Responses are keyed by the
// command line joined with spaces; unmatched commands succeed with empty
// output unless DefaultExitCode is set.
type FakeRunner struct {
	mu sync.Mutex

	Responses       map[string]Result
	Errors          map[string]error
	DefaultExitCode int

	// Calls records every invocation in order.
	Calls []string
}

// NewFakeRunner creates an empty FakeRunner
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Responses: make(map[string]Result),
		Errors:    make(map[string]error),
	}
}

// Run implements Runner
func (f *FakeRunner) Run(ctx context.Context, command string, args ...string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	line := strings.Join(append([]string{command}, args...), " ")

	f.mu.Lock()
	f.Calls = append(f.Calls, line)
	resp, hasResp := f.Responses[line]
	respErr, hasErr := f.Errors[line]
	f.mu.Unlock()

	if hasErr {
		return Result{}, respErr
	}
	if hasResp {
		return resp, nil
	}
	return Result{ExitCode: f.DefaultExitCode}, nil
}

// CallCount returns how many recorded invocations contain the substring
func (f *FakeRunner) CallCount(substring string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, call := range f.Calls {
		if strings.Contains(call, substring) {
			count++
		}
	}
	return count
}
