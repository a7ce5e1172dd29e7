package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/evaluate"
)

func sampleReport() *Report {
	r := New("snapdragon", "machine-1")
	r.FinishedAt = time.Now()
	r.Score = 80
	r.Level = evaluate.LevelStandard
	r.Components = map[string]bool{
		evaluate.ComponentRuntime:      true,
		evaluate.ComponentAcceleration: false,
	}
	r.SelectedProvider = "CPU"
	r.SkippedProviders = map[string]string{"QNN": "package onnxruntime-qnn unavailable"}
	r.CompletedSteps = []string{"detect-hardware", "install-packages"}
	r.FailedSteps = []string{"download-models"}
	r.Warnings = []string{"optional package accelerate unavailable"}
	return r
}

func TestNewAssignsRunID(t *testing.T) {
	a := New("intel", "m")
	b := New("intel", "m")

	assert.NotEmpty(t, a.RunID)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestSaveAndLoadLatest(t *testing.T) {
	dir := t.TempDir()
	r := sampleReport()

	path, err := r.Save(dir)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.FileExists(t, filepath.Join(dir, "latest.json"))

	loaded, err := LoadLatest(dir)
	require.NoError(t, err)
	assert.Equal(t, r.RunID, loaded.RunID)
	assert.Equal(t, 80, loaded.Score)
	assert.Equal(t, evaluate.LevelStandard, loaded.Level)
	assert.Equal(t, "CPU", loaded.SelectedProvider)
}

func TestLoadLatestMissing(t *testing.T) {
	_, err := LoadLatest(t.TempDir())
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestRenderContainsOutcome(t *testing.T) {
	out := sampleReport().Render()

	for _, want := range []string{
		"snapdragon",
		"Standard",
		"80",
		"CPU",
		"QNN",
		"download-models",
		"accelerate",
	} {
		assert.True(t, strings.Contains(out, want), "render output missing %q", want)
	}
}
