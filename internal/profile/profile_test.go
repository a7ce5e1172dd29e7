package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/sysinfo"
)

func TestBuiltinProfilesValidate(t *testing.T) {
	for _, target := range []sysinfo.Profile{sysinfo.ProfileSnapdragon, sysinfo.ProfileIntel} {
		t.Run(string(target), func(t *testing.T) {
			p, err := Builtin(target)
			require.NoError(t, err)
			assert.NoError(t, p.Validate())
			assert.NotEmpty(t, p.Packages)
			assert.NotEmpty(t, p.Models)
		})
	}
}

func TestBuiltinUnknownTarget(t *testing.T) {
	_, err := Builtin(sysinfo.Profile("mainframe"))
	require.Error(t, err)
}

func TestValidateRequiresCPUFallback(t *testing.T) {
	p, err := Builtin(sysinfo.ProfileIntel)
	require.NoError(t, err)

	// Replace the CPU fallback with another backend at the bottom.
	p.Providers = []Provider{
		{Name: "OpenVINO", Priority: 100},
		{Name: "DirectML", Priority: 0},
	}

	err = p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CPU")
}

func TestValidateRejectsMissingFields(t *testing.T) {
	p := &Profile{Name: "incomplete"}
	assert.Error(t, p.Validate(), "python and providers are required")
}

func TestLoadFromYAML(t *testing.T) {
	content := `
name: custom
description: lab bench machine
python: python3
resources:
  memory_gb: 4
  disk_gb: 10
  max_cpu_percent: 90
packages:
  - name: numpy
    critical: true
  - name: torch
    version: 2.1.2
models:
  - name: tiny-model
    destination: models/tiny.onnx
    sources:
      - https://example.com/tiny.onnx
    expected_size_bytes: 1024
providers:
  - name: DirectML
    priority: 50
    package: onnxruntime-directml
  - name: CPU
    priority: 0
    package: onnxruntime
`
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "custom", p.Name)
	assert.Equal(t, "python3", p.Python)
	assert.Equal(t, 4.0, p.Resources.MemoryGB)
	require.Len(t, p.Packages, 2)
	assert.Equal(t, "2.1.2", p.Packages[1].Version)
	require.Len(t, p.Models, 1)
	assert.Equal(t, int64(1024), p.Models[0].ExpectedSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadInvalidProfile(t *testing.T) {
	// Lowest priority provider is not CPU.
	content := `
name: broken
python: python
providers:
  - name: QNN
    priority: 10
`
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	require.Error(t, err)
}
