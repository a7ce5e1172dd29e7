// Package profile declares what a hardware target needs: packages,
// acceleration providers, model downloads, and resource thresholds. One
// pipeline engine consumes these declarations instead of duplicating
// per-platform scripts.
package profile

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/rigup/internal/errors"
	"github.com/felixgeelhaar/rigup/internal/resource"
)

// Package declares one Python package requirement
type Package struct {
	Name     string `yaml:"name" validate:"required"`
	Version  string `yaml:"version"`
	Critical bool   `yaml:"critical"`
}

// Model declares one model artifact to download
type Model struct {
	Name         string   `yaml:"name" validate:"required"`
	Destination  string   `yaml:"destination" validate:"required"`
	Sources      []string `yaml:"sources" validate:"min=1,dive,required"`
	ExpectedSize int64    `yaml:"expected_size_bytes" validate:"gte=0"`
}

// Provider declares one acceleration candidate
type Provider struct {
	Name     string `yaml:"name" validate:"required"`
	Priority int    `yaml:"priority" validate:"gte=0"`
	Package  string `yaml:"package"`
}

// Profile is a complete declarative target description
type Profile struct {
	Name        string                `yaml:"name" validate:"required"`
	Description string                `yaml:"description"`
	Python      string                `yaml:"python" validate:"required"`
	Resources   resource.Requirements `yaml:"resources"`
	Packages    []Package             `yaml:"packages" validate:"dive"`
	Models      []Model               `yaml:"models" validate:"dive"`
	Providers   []Provider            `yaml:"providers" validate:"min=1,dive"`
}

var validate = validator.New()

// Validate checks struct constraints plus the provider invariant: the
// lowest-priority candidate must be the CPU fallback, so selection is
// guaranteed to terminate.
func (p *Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.NewProfileInvalidError(p.Name, err)
	}

	lowest := p.Providers[0]
	for _, candidate := range p.Providers[1:] {
		if candidate.Priority < lowest.Priority {
			lowest = candidate
		}
	}
	if lowest.Name != "CPU" {
		return errors.NewProfileInvalidError(p.Name,
			fmt.Errorf("lowest-priority provider must be CPU, got %q", lowest.Name))
	}

	return nil
}

// Load reads and validates a profile from a YAML file
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeProfileNotFound, fmt.Sprintf("profile not found: %s", path))
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "failed to read profile", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.NewProfileInvalidError(path, err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
