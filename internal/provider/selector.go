package provider

import (
	"context"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/rigup/internal/errors"
	"github.com/felixgeelhaar/rigup/internal/log"
	"github.com/felixgeelhaar/rigup/internal/pkginstall"
)

// Selection is the outcome of evaluating the candidate list
type Selection struct {
	Selected Candidate

	// SkipReasons records why each higher-priority candidate was passed
	// over, for diagnostics and the run report.
	SkipReasons map[string]string
}

// Selector evaluates candidates in priority order
type Selector struct {
	Installer *pkginstall.Installer
	Logger    *log.Logger
}

// NewSelector creates a Selector
func NewSelector(installer *pkginstall.Installer, logger *log.Logger) *Selector {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Selector{Installer: installer, Logger: logger}
}

// Select returns the highest-priority candidate whose package installs
// and whose probe passes. Candidate installs are non-critical: an
// unavailable backend is an expected outcome, not an error. Only a
// failing bottom-of-list CPU candidate is fatal, because the list is
// constructed so that it always passes; if it does not, the machine is
// misconfigured, and that must surface loudly rather than degrade.
func (s *Selector) Select(ctx context.Context, candidates []Candidate) (*Selection, error) {
	if len(candidates) == 0 {
		return nil, errors.New(errors.ErrCodeProviderUnavailable, "no provider candidates configured")
	}

	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	selection := &Selection{SkipReasons: make(map[string]string)}

	for idx, candidate := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		last := idx == len(ordered)-1

		if candidate.InstallPackage != "" {
			installed, err := s.Installer.InstallWithFallback(ctx, pkginstall.Request{
				Name: candidate.InstallPackage,
			})
			if err != nil {
				return nil, err
			}
			if !installed {
				reason := fmt.Sprintf("package %s unavailable", candidate.InstallPackage)
				if last {
					return nil, errors.NewNoFallbackProviderError(fmt.Errorf("%s", reason))
				}
				selection.SkipReasons[candidate.Name] = reason
				s.Logger.Info("provider skipped", "provider", candidate.Name, "reason", reason)
				continue
			}
		}

		if candidate.Test != nil {
			if err := candidate.Test(ctx); err != nil {
				if last {
					return nil, errors.NewNoFallbackProviderError(err)
				}
				selection.SkipReasons[candidate.Name] = fmt.Sprintf("test failed: %v", err)
				s.Logger.Info("provider skipped", "provider", candidate.Name, "reason", "test failed", "error", err.Error())
				continue
			}
		}

		selection.Selected = candidate
		s.Logger.Info("provider selected", "provider", candidate.Name, "priority", candidate.Priority)
		return selection, nil
	}

	// Unreachable: the loop returns on the last candidate either way.
	return nil, errors.New(errors.ErrCodeProviderUnavailable, "no provider passed selection")
}
