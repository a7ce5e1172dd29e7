package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rigup/internal/download"
	"github.com/felixgeelhaar/rigup/internal/errors"
	"github.com/felixgeelhaar/rigup/internal/pipeline"
	"github.com/felixgeelhaar/rigup/internal/pkginstall"
	"github.com/felixgeelhaar/rigup/internal/provider"
	"github.com/felixgeelhaar/rigup/internal/sysinfo"
)

// buildSteps assembles the installation pipeline for the resolved
// profile. Step order matters: later steps consume facts recorded by
// earlier ones through the checkpoint environment.
func (e *prepareEnv) buildSteps() []pipeline.Step {
	return []pipeline.Step{
		{
			Name:     "detect-hardware",
			Critical: true,
			Action:   e.stepDetectHardware,
		},
		{
			Name:     "check-resources",
			Critical: true,
			Action:   e.stepCheckResources,
		},
		{
			Name:     "check-runtime",
			Critical: true,
			Action:   e.stepCheckRuntime,
		},
		{
			Name:     "create-venv",
			Critical: true,
			Action:   e.stepCreateVenv,
		},
		{
			Name:     "install-packages",
			Critical: true,
			Action:   e.stepInstallPackages,
		},
		{
			Name:     "select-provider",
			Critical: true,
			Action:   e.stepSelectProvider,
		},
		{
			Name: "download-models",
			Skip: func(rc *pipeline.Context) string {
				if rc.Options.SkipModelDownload {
					return "--skip-model-download"
				}
				if rc.Options.Offline {
					return "offline mode"
				}
				return ""
			},
			Action: e.stepDownloadModels,
		},
		{
			Name:   "verify-environment",
			Action: e.stepVerifyEnvironment,
		},
		{
			Name:   "generate-launcher",
			Action: e.stepGenerateLauncher,
		},
	}
}

func (e *prepareEnv) stepDetectHardware(ctx context.Context, rc *pipeline.Context) error {
	rc.State.SetEnv("cpu", e.info.CPUName)
	rc.State.SetEnv("architecture", e.info.Architecture)
	rc.State.SetEnv("processor_model", sysinfo.ProcessorModel(e.info))

	detected := sysinfo.DetectProfile(e.info)
	if string(detected) != e.profile.Name && !isCustomProfile() {
		rc.AddWarning(fmt.Sprintf("profile %s selected but hardware looks like %s", e.profile.Name, detected))
	}
	return nil
}

func (e *prepareEnv) stepCheckResources(ctx context.Context, rc *pipeline.Context) error {
	ok, err := e.monitor.Check(ctx, e.profile.Resources)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewInsufficientResourcesError(fmt.Sprintf(
			"%.0fGB memory, %.0fGB disk, CPU below %.0f%% required",
			e.profile.Resources.MemoryGB, e.profile.Resources.DiskGB, e.profile.Resources.MaxCPUPercent))
	}
	return nil
}

func (e *prepareEnv) stepCheckRuntime(ctx context.Context, rc *pipeline.Context) error {
	result, err := e.runner.Run(ctx, e.profile.Python, "--version")
	if err != nil {
		return fmt.Errorf("python interpreter %q not runnable: %w", e.profile.Python, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("python interpreter %q exited with code %d", e.profile.Python, result.ExitCode)
	}

	rc.State.SetEnv("runtime", "ok")
	rc.State.SetEnv("python_version", strings.TrimSpace(result.Stdout+result.Stderr))
	return nil
}

func (e *prepareEnv) stepCreateVenv(ctx context.Context, rc *pipeline.Context) error {
	venv := e.venvDir()

	result, err := e.runner.Run(ctx, e.profile.Python, "-m", "venv", venv)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("venv creation exited with code %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	python := venvPython(venv)
	// Later package and probe invocations go through the venv.
	e.installer.Python = python

	rc.State.SetEnv("venv", "ok")
	rc.State.SetEnv("venv_path", venv)
	rc.State.SetEnv("python_path", python)
	return nil
}

// resolvePython returns the interpreter later steps must use. A resumed
// run re-enters with a fresh process, so the installer still points at
// the profile's system interpreter; the venv interpreter recorded by
// the earlier run wins when the checkpoint carries one.
func (e *prepareEnv) resolvePython(rc *pipeline.Context) string {
	if python, ok := rc.State.GetEnv("python_path"); ok {
		e.installer.Python = python
	}
	return e.installer.Python
}

func (e *prepareEnv) stepInstallPackages(ctx context.Context, rc *pipeline.Context) error {
	e.resolvePython(rc)

	for _, pkg := range e.profile.Packages {
		installed, err := e.installer.InstallWithFallback(ctx, pkginstall.Request{
			Name:     pkg.Name,
			Version:  pkg.Version,
			Critical: pkg.Critical,
		})
		if err != nil {
			return err
		}
		if !installed {
			rc.AddWarning(fmt.Sprintf("optional package %s unavailable", pkg.Name))
		}
	}

	rc.State.SetEnv("packages", "ok")
	return nil
}

func (e *prepareEnv) stepSelectProvider(ctx context.Context, rc *pipeline.Context) error {
	python := e.resolvePython(rc)

	candidates := make([]provider.Candidate, 0, len(e.profile.Providers))
	for _, p := range e.profile.Providers {
		candidates = append(candidates, provider.Candidate{
			Name:           p.Name,
			Priority:       p.Priority,
			InstallPackage: p.Package,
			Test:           provider.ProbeViaPip(e.runner, python, p.Package),
		})
	}

	selector := provider.NewSelector(e.installer, e.logger)
	selection, err := selector.Select(ctx, candidates)
	if err != nil {
		return err
	}

	rc.State.SetEnv("provider", selection.Selected.Name)
	for name, reason := range selection.SkipReasons {
		rc.State.SetEnv("provider.skip."+name, reason)
	}
	return nil
}

func (e *prepareEnv) stepDownloadModels(ctx context.Context, rc *pipeline.Context) error {
	for _, model := range e.profile.Models {
		task := download.Task{
			Sources:      model.Sources,
			Destination:  e.modelDestination(model),
			ExpectedSize: model.ExpectedSize,
		}

		ok, err := e.downloader.Download(ctx, task)
		if err != nil {
			return err
		}
		if !ok {
			return errors.NewAllSourcesFailedError(task.Destination, nil)
		}
	}

	rc.State.SetEnv("models", "ok")
	return nil
}

func (e *prepareEnv) stepVerifyEnvironment(ctx context.Context, rc *pipeline.Context) error {
	result, err := e.runner.Run(ctx, e.resolvePython(rc), "-m", "pip", "check")
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("environment verification failed: %s", strings.TrimSpace(result.Stdout))
	}

	rc.State.SetEnv("perftest", "ok")
	return nil
}

// stepGenerateLauncher writes the demo launcher script. The launcher is
// an external collaborator's concern; this step only materializes the
// file and reports success or failure.
func (e *prepareEnv) stepGenerateLauncher(ctx context.Context, rc *pipeline.Context) error {
	providerName, _ := rc.State.GetEnv("provider")
	python := e.resolvePython(rc)

	var path, content string
	if runtime.GOOS == "windows" {
		path = filepath.Join(prepareInstallDir, "launch_demo.bat")
		content = fmt.Sprintf("@echo off\r\nset DEMO_PROVIDER=%s\r\n\"%s\" -m demo_client\r\n", providerName, python)
	} else {
		path = filepath.Join(prepareInstallDir, "launch_demo.sh")
		content = fmt.Sprintf("#!/bin/sh\nDEMO_PROVIDER=%s exec \"%s\" -m demo_client\n", providerName, python)
	}

	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		return fmt.Errorf("failed to write launcher: %w", err)
	}

	rc.State.SetEnv("launcher_path", path)
	return nil
}

func venvPython(venv string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venv, "Scripts", "python.exe")
	}
	return filepath.Join(venv, "bin", "python")
}

func isCustomProfile() bool {
	switch prepareProfile {
	case "auto", "intel", "snapdragon":
		return false
	default:
		return true
	}
}

// runChecksOnly performs the --check-only path: detection, resource
// headroom, and runtime presence, with no changes to the machine.
func (e *prepareEnv) runChecksOnly(ctx context.Context, cmd *cobra.Command) error {
	failures := 0

	cmd.Printf("Profile: %s (%s)\n", e.profile.Name, sysinfo.ProcessorModel(e.info))

	ok, err := e.monitor.Check(ctx, e.profile.Resources)
	if err != nil {
		return err
	}
	printCheck(cmd, "resources", ok)
	if !ok {
		failures++
	}

	result, err := e.runner.Run(ctx, e.profile.Python, "--version")
	runtimeOK := err == nil && result.ExitCode == 0
	printCheck(cmd, "python runtime", runtimeOK)
	if !runtimeOK {
		failures++
	}

	if failures > 0 {
		return fmt.Errorf("%d check(s) failed", failures)
	}
	cmd.Println("All checks passed. Run 'rigup prepare' to provision.")
	return nil
}

func printCheck(cmd *cobra.Command, name string, ok bool) {
	status := "ok"
	if !ok {
		status = "FAILED"
	}
	cmd.Printf("  %-16s %s\n", name, status)
}
