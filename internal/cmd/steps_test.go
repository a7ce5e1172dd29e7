package cmd

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/checkpoint"
	"github.com/felixgeelhaar/rigup/internal/execx"
	"github.com/felixgeelhaar/rigup/internal/pipeline"
	"github.com/felixgeelhaar/rigup/internal/pkginstall"
	"github.com/felixgeelhaar/rigup/internal/profile"
	"github.com/felixgeelhaar/rigup/internal/sysinfo"
)

func newStepTestEnv(t *testing.T) (*prepareEnv, *execx.FakeRunner) {
	t.Helper()

	prof, err := profile.Builtin(sysinfo.ProfileSnapdragon)
	require.NoError(t, err)

	runner := execx.NewFakeRunner()
	env := &prepareEnv{
		info:    &sysinfo.Info{CPUName: "Snapdragon X Elite", Architecture: "arm64"},
		profile: prof,
		runner:  runner,
		logger:  testLogger(),
	}
	env.installer = pkginstall.NewInstaller(runner, "arm64", testLogger())
	env.installer.Python = prof.Python
	return env, runner
}

func newStepContext(totalSteps int) *pipeline.Context {
	return &pipeline.Context{
		State:  checkpoint.NewState("machine-1", "snapdragon", totalSteps),
		Logger: testLogger(),
	}
}

func TestBuildStepsOrder(t *testing.T) {
	env, _ := newStepTestEnv(t)

	steps := env.buildSteps()

	var names []string
	for _, step := range steps {
		names = append(names, step.Name)
	}

	assert.Equal(t, []string{
		"detect-hardware",
		"check-resources",
		"check-runtime",
		"create-venv",
		"install-packages",
		"select-provider",
		"download-models",
		"verify-environment",
		"generate-launcher",
	}, names)

	// Everything up to provider selection is critical; the tail degrades.
	for _, step := range steps[:6] {
		assert.True(t, step.Critical, "%s should be critical", step.Name)
	}
	for _, step := range steps[6:] {
		assert.False(t, step.Critical, "%s should be optional", step.Name)
	}
}

func TestDownloadModelsSkipReasons(t *testing.T) {
	env, _ := newStepTestEnv(t)

	var download pipeline.Step
	for _, step := range env.buildSteps() {
		if step.Name == "download-models" {
			download = step
		}
	}
	require.NotNil(t, download.Skip)

	rc := newStepContext(9)
	rc.Options.SkipModelDownload = true
	assert.Equal(t, "--skip-model-download", download.Skip(rc))

	rc = newStepContext(9)
	rc.Options.Offline = true
	assert.Equal(t, "offline mode", download.Skip(rc))

	rc = newStepContext(9)
	assert.Empty(t, download.Skip(rc))
}

func TestStepCheckRuntimeRecordsVersion(t *testing.T) {
	env, runner := newStepTestEnv(t)
	runner.Responses["python --version"] = execx.Result{Stdout: "Python 3.11.4\n"}

	rc := newStepContext(9)
	require.NoError(t, env.stepCheckRuntime(context.Background(), rc))

	value, ok := rc.State.GetEnv("runtime")
	assert.True(t, ok)
	assert.Equal(t, "ok", value)

	version, _ := rc.State.GetEnv("python_version")
	assert.Equal(t, "Python 3.11.4", version)
}

func TestStepCheckRuntimeMissingPython(t *testing.T) {
	env, runner := newStepTestEnv(t)
	runner.Responses["python --version"] = execx.Result{ExitCode: 9009}

	rc := newStepContext(9)
	err := env.stepCheckRuntime(context.Background(), rc)
	require.Error(t, err)

	_, ok := rc.State.GetEnv("runtime")
	assert.False(t, ok)
}

func TestStepInstallPackagesRecoversVenvOnResume(t *testing.T) {
	env, runner := newStepTestEnv(t)

	rc := newStepContext(9)
	rc.State.SetEnv("python_path", "/opt/demo/venv/bin/python")

	require.NoError(t, env.stepInstallPackages(context.Background(), rc))

	assert.Equal(t, "/opt/demo/venv/bin/python", env.installer.Python)
	assert.Positive(t, runner.CallCount("/opt/demo/venv/bin/python -m pip install"))

	value, _ := rc.State.GetEnv("packages")
	assert.Equal(t, "ok", value)
}

func TestStepSelectProviderRecordsSkips(t *testing.T) {
	env, runner := newStepTestEnv(t)
	env.installer.Python = "python"

	// Every probe fails except the CPU fallback.
	runner.Responses["python -m pip show --quiet onnxruntime-qnn"] = execx.Result{ExitCode: 1}
	runner.Responses["python -m pip show --quiet onnxruntime-directml"] = execx.Result{ExitCode: 1}

	rc := newStepContext(9)
	require.NoError(t, env.stepSelectProvider(context.Background(), rc))

	selected, _ := rc.State.GetEnv("provider")
	assert.Equal(t, "CPU", selected)

	_, qnnSkipped := rc.State.GetEnv("provider.skip.QNN")
	assert.True(t, qnnSkipped)
}

func TestStepSelectProviderUsesVenvOnResume(t *testing.T) {
	env, runner := newStepTestEnv(t)

	rc := newStepContext(9)
	rc.State.SetEnv("python_path", "/opt/demo/venv/bin/python")

	require.NoError(t, env.stepSelectProvider(context.Background(), rc))

	require.NotEmpty(t, runner.Calls)
	for _, call := range runner.Calls {
		assert.True(t, strings.HasPrefix(call, "/opt/demo/venv/bin/python "),
			"provider install and probe must go through the venv interpreter, got %q", call)
	}
}

func TestStepVerifyEnvironmentUsesVenvOnResume(t *testing.T) {
	env, runner := newStepTestEnv(t)

	rc := newStepContext(9)
	rc.State.SetEnv("python_path", "/opt/demo/venv/bin/python")

	require.NoError(t, env.stepVerifyEnvironment(context.Background(), rc))

	require.Len(t, runner.Calls, 1)
	assert.Equal(t, "/opt/demo/venv/bin/python -m pip check", runner.Calls[0])
}

func TestVenvPython(t *testing.T) {
	venv := filepath.Join("install", "venv")
	got := venvPython(venv)

	if runtime.GOOS == "windows" {
		assert.Equal(t, filepath.Join(venv, "Scripts", "python.exe"), got)
	} else {
		assert.Equal(t, filepath.Join(venv, "bin", "python"), got)
	}
}
