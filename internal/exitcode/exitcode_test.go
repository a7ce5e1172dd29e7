package exitcode

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/rigup/internal/errors"
)

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil is success", nil, Success},
		{"plain error is general", fmt.Errorf("boom"), GeneralError},
		{"critical step", errors.NewCriticalStepFailedError("install", nil), CriticalStepFailed},
		{"cancelled pipeline", errors.New(errors.ErrCodePipelineCancelled, "cancelled"), CriticalStepFailed},
		{"insufficient resources", errors.NewInsufficientResourcesError("8GB short"), ResourceError},
		{"checkpoint mismatch", errors.NewCheckpointVersionMismatchError("0.9", "1.0"), ConfigError},
		{"no fallback provider", errors.NewNoFallbackProviderError(nil), ConfigError},
		{"invalid profile", errors.NewProfileInvalidError("x", nil), ConfigError},
		{"sources exhausted", errors.NewAllSourcesFailedError("model.onnx", nil), NetworkError},
		{"package unavailable", errors.NewPackageUnavailableError("torch", nil), GeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineExitCode(tt.err))
		})
	}
}

func TestDetermineExitCodeWrapped(t *testing.T) {
	inner := errors.NewCriticalStepFailedError("install", stderrors.New("pip broke"))
	wrapped := fmt.Errorf("run aborted: %w", inner)

	assert.Equal(t, CriticalStepFailed, DetermineExitCode(wrapped))
}
