package resource

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/felixgeelhaar/rigup/internal/log"
	"github.com/felixgeelhaar/rigup/internal/retry"
)

// PurgeTempFiles deletes regular files under the given directories whose
// modification time is older than the cutoff. Deletion failures on
// individual files are skipped; the walk continues.
func PurgeTempFiles(dirs []string, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
				removed++
			}
		}
	}

	return removed, nil
}

func defaultTempDirs() []string {
	return []string{os.TempDir()}
}

// RecoveryHook builds a retry.Hook that dispatches the failure category
// to a matching mitigation. Mitigations are best-effort; their errors
// propagate to the retry executor, which logs and swallows them.
func RecoveryHook(logger *log.Logger) retry.Hook {
	if logger == nil {
		logger = log.DefaultLogger()
	}

	return func(ctx context.Context, err error) error {
		category := retry.Classify(err)
		logger.Debug("running recovery mitigation", "category", string(category))

		switch category {
		case retry.CategoryDiskFull:
			_, purgeErr := PurgeTempFiles(defaultTempDirs(), time.Hour)
			return purgeErr
		case retry.CategoryOutOfMemory:
			runtime.GC()
			return nil
		case retry.CategoryFileLocked:
			// Waiting is the only mitigation for a file held elsewhere.
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		default:
			return nil
		}
	}
}
