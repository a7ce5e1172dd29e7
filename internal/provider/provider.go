// Package provider selects the hardware-acceleration backend for the
// demo: the highest-priority candidate whose package installs and whose
// capability probe passes. A CPU candidate at the bottom of every list
// guarantees selection terminates.
package provider

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/rigup/internal/execx"
)

// Candidate is one acceleration backend under consideration
type Candidate struct {
	// Name identifies the backend ("QNN", "DirectML", "OpenVINO", "CPU").
	Name string

	// Priority orders candidates; higher is preferred.
	Priority int

	// InstallPackage is the Python package the backend needs, empty if
	// none.
	InstallPackage string

	// Test probes whether the backend is functionally available.
	Test func(ctx context.Context) error
}

// ProbeViaPip builds a capability test that asks the package manager
// whether the backend's package is importable on this machine. The
// probe stays a subprocess query; the core never generates probe
// source code.
func ProbeViaPip(runner execx.Runner, python, pkg string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		result, err := runner.Run(ctx, python, "-m", "pip", "show", "--quiet", pkg)
		if err != nil {
			return err
		}
		if result.ExitCode != 0 {
			return fmt.Errorf("package %s not present (pip exit code %d)", pkg, result.ExitCode)
		}
		return nil
	}
}
