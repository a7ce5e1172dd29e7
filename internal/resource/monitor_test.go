package resource

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/log"
	"github.com/felixgeelhaar/rigup/internal/retry"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Level: log.LevelError, Output: log.NewOutput(io.Discard)})
}

// newTestMonitor returns a monitor with stubbed sampling and sleeping
func newTestMonitor(samples []Sample) (*Monitor, *int) {
	m := NewMonitor(testLogger())
	m.TempDirs = nil

	calls := 0
	m.sample = func(ctx context.Context) (Sample, error) {
		s := samples[calls]
		if calls < len(samples)-1 {
			calls++
		}
		return s, nil
	}
	m.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return m, &calls
}

func healthy() Sample {
	return Sample{
		AvailableMemoryBytes: 32 * gb,
		FreeDiskBytes:        100 * gb,
		CPUPercent:           10,
	}
}

func starved() Sample {
	return Sample{
		AvailableMemoryBytes: 1 * gb,
		FreeDiskBytes:        1 * gb,
		CPUPercent:           99,
	}
}

func demoRequirements() Requirements {
	return Requirements{MemoryGB: 8, DiskGB: 20, MaxCPUPercent: 85}
}

func TestCheckPassesImmediately(t *testing.T) {
	m, calls := newTestMonitor([]Sample{healthy()})

	ok, err := m.Check(context.Background(), demoRequirements())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, *calls, "no recheck needed")
}

func TestCheckRecoversAfterCleanup(t *testing.T) {
	m, _ := newTestMonitor([]Sample{starved(), healthy()})

	ok, err := m.Check(context.Background(), demoRequirements())

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckExhaustsRecheckBudget(t *testing.T) {
	m := NewMonitor(testLogger())
	m.TempDirs = nil
	m.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	samples := 0
	m.sample = func(ctx context.Context) (Sample, error) {
		samples++
		return starved(), nil
	}

	ok, err := m.Check(context.Background(), demoRequirements())

	require.NoError(t, err)
	assert.False(t, ok)
	// Initial check plus MaxRechecks, never more.
	assert.Equal(t, m.MaxRechecks+1, samples)
}

func TestCheckForceOverride(t *testing.T) {
	m, _ := newTestMonitor([]Sample{starved()})
	m.Force = true

	ok, err := m.Check(context.Background(), demoRequirements())

	require.NoError(t, err)
	assert.True(t, ok, "force downgrades an exhausted budget to a warning")
}

func TestCheckSampleError(t *testing.T) {
	m := NewMonitor(testLogger())
	m.sample = func(ctx context.Context) (Sample, error) {
		return Sample{}, errors.New("wmi unavailable")
	}

	ok, err := m.Check(context.Background(), demoRequirements())

	require.Error(t, err)
	assert.False(t, ok)
}

func TestCheckCancelledContext(t *testing.T) {
	m, _ := newTestMonitor([]Sample{healthy()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Check(ctx, demoRequirements())
	require.ErrorIs(t, err, context.Canceled)
}

func TestCheckZeroRequirementsAlwaysPass(t *testing.T) {
	m, _ := newTestMonitor([]Sample{starved()})

	ok, err := m.Check(context.Background(), Requirements{})

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateSample(t *testing.T) {
	violations := evaluateSample(starved(), demoRequirements())
	require.Len(t, violations, 3)
	assert.Contains(t, violations[2], "99% load, limit 85%")

	violations = evaluateSample(healthy(), demoRequirements())
	assert.Empty(t, violations)
}

func TestPurgeTempFiles(t *testing.T) {
	dir := t.TempDir()

	stale := filepath.Join(dir, "stale.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(dir, "fresh.tmp")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0644))

	removed, err := PurgeTempFiles([]string{dir}, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(fresh)
	assert.NoError(t, err, "recent files must survive the purge")
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestPurgeTempFilesMissingDir(t *testing.T) {
	removed, err := PurgeTempFiles([]string{"/does/not/exist"}, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRecoveryHookDispatch(t *testing.T) {
	hook := RecoveryHook(testLogger())

	// Unknown and memory categories mitigate without error.
	assert.NoError(t, hook(context.Background(), errors.New("some novel failure")))
	assert.NoError(t, hook(context.Background(), errors.New("cannot allocate memory")))

	// File-locked waits; a cancelled context cuts the wait short.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := hook(ctx, errors.New("file is locked"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecoveryHookCategory(t *testing.T) {
	// The hook keys off retry.Classify; spot-check the wiring.
	assert.Equal(t, retry.CategoryDiskFull, retry.Classify(errors.New("no space left on device")))
}
