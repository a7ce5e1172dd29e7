// Package pkginstall satisfies Python package requirements through an
// ordered chain of installation strategies, stopping at first success.
package pkginstall

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/rigup/internal/errors"
	"github.com/felixgeelhaar/rigup/internal/execx"
	"github.com/felixgeelhaar/rigup/internal/log"
	"github.com/felixgeelhaar/rigup/internal/retry"
)

// Request describes a package requirement
type Request struct {
	Name    string
	Version string // exact pin; empty accepts any version
	// Critical requirements escalate to a fatal error when every
	// strategy fails; optional ones degrade to a warning.
	Critical bool
}

// Spec renders the pip requirement specifier
func (r Request) Spec() string {
	if r.Version == "" {
		return r.Name
	}
	return fmt.Sprintf("%s==%s", r.Name, r.Version)
}

// Installer tries installation strategies in a fixed order
type Installer struct {
	Runner execx.Runner

	// Python is the interpreter whose pip is invoked.
	Python string

	// Arch keys the alternative-package table. An alternative defined
	// for another architecture is never offered here.
	Arch string

	// CacheDir is searched for pre-staged wheels before the network.
	CacheDir string

	// IndexURL is the alternate package index for the third strategy.
	IndexURL string

	// Offline limits the chain to strategies that need no network.
	Offline bool

	// Retry, if set, wraps network-dependent pip invocations.
	Retry *retry.Executor

	Logger *log.Logger
}

// NewInstaller creates an Installer with defaults for the given runner
func NewInstaller(runner execx.Runner, arch string, logger *log.Logger) *Installer {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Installer{
		Runner: runner,
		Python: "python",
		Arch:   arch,
		Logger: logger,
	}
}

// InstallWithFallback works through the strategy chain until one
// succeeds. It returns true on success. When every strategy fails, a
// critical requirement yields an error and an optional one a warning
// plus false.
func (i *Installer) InstallWithFallback(ctx context.Context, req Request) (bool, error) {
	var lastErr error

	for _, strategy := range i.strategies() {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		if reason := strategy.skip(i, req); reason != "" {
			i.Logger.Debug("skipping install strategy",
				"package", req.Name, "strategy", strategy.name, "reason", reason)
			continue
		}

		err := i.pipInstall(ctx, strategy.args(i, req), strategy.networked)
		if err == nil {
			i.Logger.Info("package installed",
				"package", req.Name, "strategy", strategy.name)
			return true, nil
		}

		lastErr = err
		i.Logger.Warn("install strategy failed",
			"package", req.Name, "strategy", strategy.name, "error", err.Error())
	}

	if req.Critical {
		return false, errors.NewPackageUnavailableError(req.Name, lastErr)
	}

	i.Logger.Warn("optional package unavailable, continuing without it",
		"package", req.Name)
	return false, nil
}

// pipInstall runs one pip invocation. A non-zero exit becomes an error
// carrying the tail of stderr so retry classification can see the
// package manager's message; pip output is never parsed structurally.
func (i *Installer) pipInstall(ctx context.Context, args []string, networked bool) error {
	run := func(ctx context.Context) error {
		result, err := i.Runner.Run(ctx, i.Python, append([]string{"-m", "pip", "install"}, args...)...)
		if err != nil {
			return err
		}
		if result.ExitCode != 0 {
			return fmt.Errorf("pip exited with code %d: %s", result.ExitCode, tail(result.Stderr, 500))
		}
		return nil
	}

	if networked && i.Retry != nil {
		return i.Retry.Do(ctx, run)
	}
	return run(ctx)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
