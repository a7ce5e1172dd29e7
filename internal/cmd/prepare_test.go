package cmd

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/checkpoint"
	"github.com/felixgeelhaar/rigup/internal/evaluate"
	"github.com/felixgeelhaar/rigup/internal/log"
	"github.com/felixgeelhaar/rigup/internal/pipeline"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Level: log.LevelError, Output: log.NewOutput(io.Discard)})
}

func withResumeFlag(t *testing.T, value bool) {
	t.Helper()
	old := prepareResume
	prepareResume = value
	t.Cleanup(func() { prepareResume = old })
}

func TestResumeOrFreshWithoutResumeFlag(t *testing.T) {
	withResumeFlag(t, false)
	mgr := checkpoint.NewManager(t.TempDir())

	state := resumeOrFresh(mgr, "intel", "machine-1", 9, testLogger())

	assert.Empty(t, state.CompletedSteps)
	assert.Equal(t, "machine-1", state.MachineID)
	assert.Equal(t, 9, state.TotalSteps)
}

func TestResumeOrFreshReusesCheckpoint(t *testing.T) {
	withResumeFlag(t, true)
	mgr := checkpoint.NewManager(t.TempDir())

	prior := checkpoint.NewState("machine-1", "intel", 9)
	prior.MarkCompleted("detect-hardware")
	require.NoError(t, mgr.Save(prior))

	state := resumeOrFresh(mgr, "intel", "machine-1", 9, testLogger())

	assert.True(t, state.IsCompleted("detect-hardware"))
}

func TestResumeOrFreshRejectsForeignMachine(t *testing.T) {
	withResumeFlag(t, true)
	mgr := checkpoint.NewManager(t.TempDir())

	prior := checkpoint.NewState("other-machine", "intel", 9)
	prior.MarkCompleted("detect-hardware")
	require.NoError(t, mgr.Save(prior))

	state := resumeOrFresh(mgr, "intel", "machine-1", 9, testLogger())

	assert.False(t, state.IsCompleted("detect-hardware"), "state from different hardware must not be reused")
	assert.Equal(t, "machine-1", state.MachineID)
}

func TestResumeOrFreshMissingCheckpointStartsFresh(t *testing.T) {
	withResumeFlag(t, true)
	mgr := checkpoint.NewManager(t.TempDir())

	state := resumeOrFresh(mgr, "intel", "machine-1", 9, testLogger())

	assert.Empty(t, state.CompletedSteps)
}

func TestEvaluateRunMapsEnvironment(t *testing.T) {
	env := &prepareEnv{}
	rc := &pipeline.Context{State: checkpoint.NewState("m", "intel", 9)}

	rc.State.SetEnv("runtime", "ok")
	rc.State.SetEnv("venv", "ok")
	rc.State.SetEnv("packages", "ok")
	rc.State.SetEnv("models", "ok")
	rc.State.SetEnv("perftest", "ok")
	rc.State.SetEnv("provider", "QNN")

	result := env.evaluateRun(context.Background(), rc)

	assert.Equal(t, 100, result.Score)
	assert.Equal(t, evaluate.LevelFull, result.Level)
}

func TestEvaluateRunCPUProviderIsNotAcceleration(t *testing.T) {
	env := &prepareEnv{}
	rc := &pipeline.Context{State: checkpoint.NewState("m", "intel", 9)}

	rc.State.SetEnv("runtime", "ok")
	rc.State.SetEnv("venv", "ok")
	rc.State.SetEnv("packages", "ok")
	rc.State.SetEnv("models", "ok")
	rc.State.SetEnv("perftest", "ok")
	rc.State.SetEnv("provider", "CPU")

	result := env.evaluateRun(context.Background(), rc)

	assert.False(t, result.Components[evaluate.ComponentAcceleration])
	assert.Equal(t, 80, result.Score)
	assert.Equal(t, evaluate.LevelStandard, result.Level)
}

func TestBuildReportExtractsProviderSkips(t *testing.T) {
	rc := &pipeline.Context{State: checkpoint.NewState("m", "snapdragon", 9)}
	rc.State.MarkCompleted("detect-hardware")
	rc.State.MarkFailed("download-models")
	rc.State.SetEnv("provider", "DirectML")
	rc.State.SetEnv("provider.skip.QNN", "test failed: backend not functional")
	rc.State.Evaluation = &evaluate.Result{Score: 75, Level: evaluate.LevelStandard}
	rc.AddWarning("something minor")

	rep := buildReport("snapdragon", "machine-1", rc)

	assert.Equal(t, "DirectML", rep.SelectedProvider)
	assert.Equal(t, map[string]string{"QNN": "test failed: backend not functional"}, rep.SkippedProviders)
	assert.Equal(t, []string{"detect-hardware"}, rep.CompletedSteps)
	assert.Equal(t, []string{"download-models"}, rep.FailedSteps)
	assert.Equal(t, 75, rep.Score)
	assert.Equal(t, []string{"something minor"}, rep.Warnings)
}
