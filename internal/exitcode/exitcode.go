package exitcode

import (
	stderrors "errors"
	"os"

	"github.com/felixgeelhaar/rigup/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// CriticalStepFailed indicates a critical pipeline step failed without --force
	CriticalStepFailed = 3

	// ResourceError indicates insufficient memory, disk, or CPU headroom
	ResourceError = 4

	// ConfigError indicates a checkpoint or profile configuration problem
	ConfigError = 5

	// NetworkError indicates a network connectivity issue
	NetworkError = 6

	// Interrupted indicates the run was cancelled by the user
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var rigErr *errors.Error
	if !stderrors.As(err, &rigErr) {
		return GeneralError
	}

	switch rigErr.Code {
	case errors.ErrCodeCriticalStepFailed, errors.ErrCodePipelineCancelled:
		return CriticalStepFailed
	case errors.ErrCodeInsufficientMemory, errors.ErrCodeInsufficientDisk, errors.ErrCodeCPUOverloaded:
		return ResourceError
	case errors.ErrCodeCheckpointVersionMismatch, errors.ErrCodeCheckpointCorrupt,
		errors.ErrCodeNoFallbackProvider, errors.ErrCodeProfileNotFound, errors.ErrCodeProfileInvalid:
		return ConfigError
	case errors.ErrCodeDownloadFailed, errors.ErrCodeAllSourcesFailed:
		return NetworkError
	default:
		return GeneralError
	}
}
