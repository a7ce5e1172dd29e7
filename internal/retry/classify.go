package retry

import "strings"

// Category groups failures by the mitigation that might help
type Category string

const (
	// CategoryNetwork covers timeouts, refused connections, and DNS failures
	CategoryNetwork Category = "network"
	// CategoryPermission covers access-denied failures
	CategoryPermission Category = "permission"
	// CategoryFileLocked covers files held open by another process
	CategoryFileLocked Category = "file-locked"
	// CategoryOutOfMemory covers allocation failures
	CategoryOutOfMemory Category = "out-of-memory"
	// CategoryDiskFull covers exhausted disk space
	CategoryDiskFull Category = "disk-full"
	// CategoryUnknown is everything else
	CategoryUnknown Category = "unknown"
)

var categoryPatterns = []struct {
	category Category
	patterns []string
}{
	{CategoryNetwork, []string{
		"timeout", "timed out", "connection refused", "connection reset",
		"no such host", "network is unreachable", "temporary failure",
		"tls handshake", "eof",
	}},
	{CategoryPermission, []string{
		"permission denied", "access is denied", "operation not permitted",
	}},
	{CategoryFileLocked, []string{
		"file is locked", "being used by another process", "resource busy",
		"text file busy",
	}},
	{CategoryOutOfMemory, []string{
		"out of memory", "cannot allocate memory", "memoryerror",
	}},
	{CategoryDiskFull, []string{
		"no space left on device", "disk full", "not enough space",
	}},
}

// Classify pattern-matches the error message against known failure
// categories. The package manager and OS report failures as text, so
// matching their messages is the only signal available.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	msg := strings.ToLower(err.Error())
	for _, entry := range categoryPatterns {
		for _, pattern := range entry.patterns {
			if strings.Contains(msg, pattern) {
				return entry.category
			}
		}
	}
	return CategoryUnknown
}
