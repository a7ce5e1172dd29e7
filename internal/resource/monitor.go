// Package resource checks memory, disk, and CPU headroom against
// thresholds and attempts bounded cleanup before giving up.
package resource

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/felixgeelhaar/rigup/internal/log"
)

const gb = 1024 * 1024 * 1024

// Requirements are the minimum headroom thresholds for a run
type Requirements struct {
	MemoryGB      float64 `yaml:"memory_gb" validate:"gte=0"`
	DiskGB        float64 `yaml:"disk_gb" validate:"gte=0"`
	MaxCPUPercent float64 `yaml:"max_cpu_percent" validate:"gte=0,lte=100"`
}

// Sample is one measurement of current availability
type Sample struct {
	AvailableMemoryBytes uint64
	FreeDiskBytes        uint64
	CPUPercent           float64
}

// Sampler measures current resource availability
type Sampler func(ctx context.Context) (Sample, error)

// Monitor checks resource requirements with a bounded
// cleanup-and-recheck budget. The recheck loop is an explicit counter,
// never recursion, so it terminates even when cleanup frees nothing.
type Monitor struct {
	// MaxRechecks bounds the cleanup-and-recheck cycles after the first
	// failed check.
	MaxRechecks int

	// Force logs a warning and reports success when the budget is
	// exhausted instead of failing.
	Force bool

	// TempDirs are searched for stale temp files during disk cleanup.
	TempDirs []string

	Logger *log.Logger

	sample Sampler
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewMonitor creates a Monitor with the default recheck budget of 3
func NewMonitor(logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Monitor{
		MaxRechecks: 3,
		TempDirs:    defaultTempDirs(),
		Logger:      logger,
		sample:      sampleSystem,
		sleep:       sleepContext,
	}
}

// Check reports whether the machine satisfies the requirements,
// running cleanup between failed checks until the recheck budget is
// spent. With Force set, an exhausted budget degrades to a warning.
func (m *Monitor) Check(ctx context.Context, req Requirements) (bool, error) {
	var violations []string

	for attempt := 0; attempt <= m.MaxRechecks; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		sample, err := m.sample(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to sample resources: %w", err)
		}

		violations = evaluateSample(sample, req)
		if len(violations) == 0 {
			return true, nil
		}

		if attempt == m.MaxRechecks {
			break
		}

		m.Logger.Warn("resource check failed, attempting cleanup",
			"attempt", attempt+1,
			"max_rechecks", m.MaxRechecks,
			"violations", violations)
		m.cleanup(ctx, sample, req)
	}

	if m.Force {
		m.Logger.Warn("resource requirements not met, continuing due to force override",
			"violations", violations)
		return true, nil
	}

	m.Logger.Error("resource requirements not met after cleanup", "violations", violations)
	return false, nil
}

func evaluateSample(sample Sample, req Requirements) []string {
	var violations []string
	if req.MemoryGB > 0 && float64(sample.AvailableMemoryBytes) < req.MemoryGB*gb {
		violations = append(violations, fmt.Sprintf("memory: %.1fGB available, %.1fGB required",
			float64(sample.AvailableMemoryBytes)/gb, req.MemoryGB))
	}
	if req.DiskGB > 0 && float64(sample.FreeDiskBytes) < req.DiskGB*gb {
		violations = append(violations, fmt.Sprintf("disk: %.1fGB free, %.1fGB required",
			float64(sample.FreeDiskBytes)/gb, req.DiskGB))
	}
	if req.MaxCPUPercent > 0 && sample.CPUPercent > req.MaxCPUPercent {
		violations = append(violations, fmt.Sprintf("cpu: %.0f%% load, limit %.0f%%",
			sample.CPUPercent, req.MaxCPUPercent))
	}
	return violations
}

// cleanup runs the mitigation matching each violated threshold
func (m *Monitor) cleanup(ctx context.Context, sample Sample, req Requirements) {
	if req.MemoryGB > 0 && float64(sample.AvailableMemoryBytes) < req.MemoryGB*gb {
		runtime.GC()
	}

	if req.DiskGB > 0 && float64(sample.FreeDiskBytes) < req.DiskGB*gb {
		removed, err := PurgeTempFiles(m.TempDirs, 7*24*time.Hour)
		if err != nil {
			m.Logger.Warn("temp file cleanup failed", "error", err.Error())
		} else if removed > 0 {
			m.Logger.Info("removed stale temp files", "count", removed)
		}
	}

	if req.MaxCPUPercent > 0 && sample.CPUPercent > req.MaxCPUPercent {
		// Give transient load a moment to settle before the recheck.
		if err := m.sleep(ctx, 2*time.Second); err != nil {
			return
		}
	}
}

func sampleSystem(ctx context.Context) (Sample, error) {
	var sample Sample

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return sample, err
	}
	sample.AvailableMemoryBytes = vm.Available

	usage, err := disk.UsageWithContext(ctx, ".")
	if err != nil {
		return sample, err
	}
	sample.FreeDiskBytes = usage.Free

	percents, err := cpu.PercentWithContext(ctx, 500*time.Millisecond, false)
	if err != nil {
		return sample, err
	}
	if len(percents) > 0 {
		sample.CPUPercent = percents[0]
	}

	return sample, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
