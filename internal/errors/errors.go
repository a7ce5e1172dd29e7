package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Checkpoint errors (CKPT-001 to CKPT-099)
	ErrCodeCheckpointNotFound        ErrorCode = "CKPT-001"
	ErrCodeCheckpointVersionMismatch ErrorCode = "CKPT-002"
	ErrCodeCheckpointMachineMismatch ErrorCode = "CKPT-003"
	ErrCodeCheckpointCorrupt         ErrorCode = "CKPT-004"
	ErrCodeCheckpointWriteFailed     ErrorCode = "CKPT-005"

	// Pipeline errors (PIPE-001 to PIPE-099)
	ErrCodeCriticalStepFailed ErrorCode = "PIPE-001"
	ErrCodePipelineCancelled  ErrorCode = "PIPE-002"
	ErrCodeStepUnknown        ErrorCode = "PIPE-003"

	// Resource errors (RES-001 to RES-099)
	ErrCodeInsufficientMemory ErrorCode = "RES-001"
	ErrCodeInsufficientDisk   ErrorCode = "RES-002"
	ErrCodeCPUOverloaded      ErrorCode = "RES-003"
	ErrCodeResourceProbe      ErrorCode = "RES-004"

	// Package errors (PKG-001 to PKG-099)
	ErrCodePackageUnavailable ErrorCode = "PKG-001"
	ErrCodePackageManager     ErrorCode = "PKG-002"

	// Provider errors (PROV-001 to PROV-099)
	ErrCodeProviderUnavailable ErrorCode = "PROV-001"
	ErrCodeNoFallbackProvider  ErrorCode = "PROV-002"

	// Download errors (DL-001 to DL-099)
	ErrCodeDownloadFailed   ErrorCode = "DL-001"
	ErrCodeDownloadCorrupt  ErrorCode = "DL-002"
	ErrCodeAllSourcesFailed ErrorCode = "DL-003"

	// System errors (SYS-001 to SYS-099)
	ErrCodeSystemInfo      ErrorCode = "SYS-001"
	ErrCodeUnknownPlatform ErrorCode = "SYS-002"

	// Profile errors (PROF-001 to PROF-099)
	ErrCodeProfileNotFound ErrorCode = "PROF-001"
	ErrCodeProfileInvalid  ErrorCode = "PROF-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
)

// Error represents an enhanced error with code, suggestions, and a cause
type Error struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new Error wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *Error) WithSuggestions(suggestions ...string) *Error {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// Common error constructors for frequently used errors

// NewCheckpointVersionMismatchError creates a checkpoint schema mismatch error
func NewCheckpointVersionMismatchError(found, expected string) *Error {
	return New(ErrCodeCheckpointVersionMismatch,
		fmt.Sprintf("checkpoint schema version %s does not match expected %s", found, expected)).
		WithSuggestion("Delete the checkpoint with 'rigup checkpoint delete' and start fresh").
		WithSuggestion("A mismatched checkpoint is never partially loaded")
}

// NewCriticalStepFailedError creates a fatal pipeline step error
func NewCriticalStepFailedError(step string, cause error) *Error {
	return Wrap(ErrCodeCriticalStepFailed, fmt.Sprintf("critical step %q failed", step), cause).
		WithSuggestion("Fix the underlying issue, then resume with 'rigup prepare --resume'").
		WithSuggestion("Re-run with --force to downgrade critical failures to warnings")
}

// NewNoFallbackProviderError creates a fatal configuration error for a failed CPU fallback
func NewNoFallbackProviderError(cause error) *Error {
	return Wrap(ErrCodeNoFallbackProvider, "guaranteed CPU fallback provider failed its capability test", cause).
		WithSuggestion("Verify the Python environment can import the CPU execution provider").
		WithSuggestion("Run 'rigup doctor' for a full diagnostic")
}

// NewPackageUnavailableError creates an error for an exhausted installation chain
func NewPackageUnavailableError(pkg string, cause error) *Error {
	return Wrap(ErrCodePackageUnavailable, fmt.Sprintf("no installation strategy satisfied package %q", pkg), cause).
		WithSuggestion("Check network connectivity to the package index").
		WithSuggestion("Retry with --offline disabled, or pre-stage a wheel in the local cache")
}

// NewAllSourcesFailedError creates an error for an exhausted download source list
func NewAllSourcesFailedError(dest string, cause error) *Error {
	return Wrap(ErrCodeAllSourcesFailed, fmt.Sprintf("all sources exhausted for %s", dest), cause).
		WithSuggestion("Check network connectivity and mirror availability").
		WithSuggestion("Place the file manually at the destination and resume")
}

// NewInsufficientResourcesError creates a resource headroom error
func NewInsufficientResourcesError(detail string) *Error {
	return New(ErrCodeInsufficientMemory, fmt.Sprintf("insufficient resources: %s", detail)).
		WithSuggestion("Close other applications and retry").
		WithSuggestion("Re-run with --force to proceed anyway")
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *Error {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct")
}

// NewProfileInvalidError creates a profile validation error
func NewProfileInvalidError(detail string, cause error) *Error {
	return Wrap(ErrCodeProfileInvalid, fmt.Sprintf("invalid profile: %s", detail), cause).
		WithSuggestion("Check the profile YAML against the built-in profiles for reference")
}
