// Package report persists and renders the outcome of an installation
// run: readiness score, per-component results, and warnings.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/rigup/internal/evaluate"
)

// Report is the persisted record of one run
type Report struct {
	RunID      string    `json:"run_id"`
	Profile    string    `json:"profile"`
	MachineID  string    `json:"machine_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Score      int             `json:"score"`
	Level      evaluate.Level  `json:"level"`
	Components map[string]bool `json:"components"`

	SelectedProvider string            `json:"selected_provider,omitempty"`
	SkippedProviders map[string]string `json:"skipped_providers,omitempty"`

	CompletedSteps []string `json:"completed_steps"`
	FailedSteps    []string `json:"failed_steps"`
	SkippedSteps   []string `json:"skipped_steps"`
	Warnings       []string `json:"warnings,omitempty"`
}

// New creates a report shell with a fresh run ID
func New(profile, machineID string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Profile:   profile,
		MachineID: machineID,
		StartedAt: time.Now(),
	}
}

// Save writes the report under dir, both as a per-run file and as
// latest.json for 'rigup status'.
func (r *Report) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("report-%s.json", r.RunID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "latest.json"), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write latest report: %w", err)
	}

	return path, nil
}

// LoadLatest reads the most recent report from dir
func LoadLatest(dir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(dir, "latest.json"))
	if err != nil {
		return nil, err
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}
