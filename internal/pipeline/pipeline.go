// Package pipeline orchestrates an ordered list of named installation
// steps, each idempotent via the checkpoint, with critical/optional
// failure semantics.
package pipeline

import (
	"context"

	"github.com/felixgeelhaar/rigup/internal/checkpoint"
	"github.com/felixgeelhaar/rigup/internal/errors"
	"github.com/felixgeelhaar/rigup/internal/evaluate"
	"github.com/felixgeelhaar/rigup/internal/log"
)

// Step is one named unit of the installation
type Step struct {
	// Name uniquely identifies the step within the pipeline and in the
	// checkpoint's step sets.
	Name string

	// Critical steps abort the pipeline on failure unless forced;
	// optional steps log a warning and let execution continue.
	Critical bool

	// Skip, if set, returns a non-empty reason when the step should be
	// recorded as skipped instead of run (offline mode, an explicit
	// --skip flag).
	Skip func(rc *Context) string

	// Action performs the work. Actions read and write discovered
	// facts through the run context's environment.
	Action func(ctx context.Context, rc *Context) error
}

// Options are the run-level flags the surrounding CLI collects
type Options struct {
	Force             bool
	CheckOnly         bool
	Resume            bool
	SkipModelDownload bool
	Offline           bool
}

// Context carries the state shared across steps: the checkpoint, the
// run options, and the logger. It replaces ambient globals; every
// component receives it explicitly.
type Context struct {
	State   *checkpoint.State
	Manager *checkpoint.Manager
	Options Options
	Logger  *log.Logger

	warnings []string
}

// AddWarning records a user-visible warning for the run report
func (rc *Context) AddWarning(msg string) {
	rc.warnings = append(rc.warnings, msg)
}

// Warnings returns the warnings recorded during the run
func (rc *Context) Warnings() []string {
	return rc.warnings
}

// Pipeline runs steps in order against a checkpoint
type Pipeline struct {
	Steps []Step

	// Evaluate computes the readiness score once the run finishes or
	// aborts. The result is attached to the checkpoint and persisted.
	Evaluate func(ctx context.Context, rc *Context) evaluate.Result
}

// Run executes every step not already completed in a prior run. A
// critical step's failure aborts with an error unless Options.Force
// downgrades it to a warning; that downgrade is always logged, never
// silent. The checkpoint is saved after every step transition, and the
// evaluation runs and persists even when the pipeline aborts.
func (p *Pipeline) Run(ctx context.Context, rc *Context) (err error) {
	logger := rc.Logger

	defer func() {
		rc.State.CurrentStep = ""
		if p.Evaluate != nil {
			result := p.Evaluate(ctx, rc)
			rc.State.Evaluation = &result
		}
		if saveErr := rc.Manager.Save(rc.State); saveErr != nil && err == nil {
			err = saveErr
		}
	}()

	for _, step := range p.Steps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrap(errors.ErrCodePipelineCancelled, "installation cancelled", ctxErr)
		}

		if rc.State.IsCompleted(step.Name) {
			logger.Info("step already completed, skipping", "step", step.Name)
			continue
		}

		if step.Skip != nil {
			if reason := step.Skip(rc); reason != "" {
				logger.Info("step skipped", "step", step.Name, "reason", reason)
				rc.State.MarkSkipped(step.Name)
				if saveErr := rc.Manager.Save(rc.State); saveErr != nil {
					return saveErr
				}
				continue
			}
		}

		logger.Info("running step", "step", step.Name, "critical", step.Critical)
		rc.State.CurrentStep = step.Name
		if saveErr := rc.Manager.Save(rc.State); saveErr != nil {
			return saveErr
		}

		stepErr := step.Action(ctx, rc)
		rc.State.CurrentStep = ""

		if stepErr == nil {
			rc.State.MarkCompleted(step.Name)
			if saveErr := rc.Manager.Save(rc.State); saveErr != nil {
				return saveErr
			}
			logger.Info("step completed", "step", step.Name)
			continue
		}

		rc.State.MarkFailed(step.Name)
		if saveErr := rc.Manager.Save(rc.State); saveErr != nil {
			return saveErr
		}

		if step.Critical && !rc.Options.Force {
			logger.LogError(stepErr)
			return errors.NewCriticalStepFailedError(step.Name, stepErr)
		}

		if step.Critical {
			logger.Warn("critical step failed, continuing due to force override",
				"step", step.Name, "error", stepErr.Error())
			rc.AddWarning("critical step " + step.Name + " failed (forced past): " + stepErr.Error())
		} else {
			logger.Warn("optional step failed, continuing",
				"step", step.Name, "error", stepErr.Error())
			rc.AddWarning("step " + step.Name + " failed: " + stepErr.Error())
		}
	}

	return nil
}
