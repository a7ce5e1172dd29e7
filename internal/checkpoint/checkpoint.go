// Package checkpoint persists installation progress so interrupted runs
// resume without re-running completed steps.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/rigup/internal/errors"
	"github.com/felixgeelhaar/rigup/internal/evaluate"
)

// SchemaVersion is the current checkpoint schema. A loaded checkpoint
// with any other version is rejected rather than partially deserialized.
const SchemaVersion = "1.0"

// State is the durable record of an installation run
type State struct {
	Version   string    `json:"version"`
	MachineID string    `json:"machine_id"`
	Profile   string    `json:"profile"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Step names in execution order. A step lives in exactly one of
	// the three sets at a time; a retried step moves between them.
	CompletedSteps []string `json:"completed_steps"`
	FailedSteps    []string `json:"failed_steps"`
	SkippedSteps   []string `json:"skipped_steps"`

	// CurrentStep is the step in progress, or empty between steps.
	CurrentStep string `json:"current_step"`

	// SuccessRate is completed / total, recomputed on every save.
	SuccessRate float64 `json:"success_rate"`

	// TotalSteps is the step count of the pipeline that owns this state.
	TotalSteps int `json:"total_steps"`

	// Environment holds facts discovered by earlier steps (python path,
	// venv path, selected provider) that later steps consume.
	Environment map[string]string `json:"environment"`

	// Evaluation is attached once at pipeline end for reporting.
	Evaluation *evaluate.Result `json:"evaluation,omitempty"`
}

// NewState creates a fresh checkpoint for the given machine and profile
func NewState(machineID, profile string, totalSteps int) *State {
	now := time.Now()
	return &State{
		Version:     SchemaVersion,
		MachineID:   machineID,
		Profile:     profile,
		StartedAt:   now,
		UpdatedAt:   now,
		TotalSteps:  totalSteps,
		Environment: make(map[string]string),
	}
}

// MarkCompleted moves the step into the completed set
func (s *State) MarkCompleted(step string) {
	s.removeEverywhere(step)
	s.CompletedSteps = append(s.CompletedSteps, step)
	s.touch()
}

// MarkFailed moves the step into the failed set
func (s *State) MarkFailed(step string) {
	s.removeEverywhere(step)
	s.FailedSteps = append(s.FailedSteps, step)
	s.touch()
}

// MarkSkipped moves the step into the skipped set
func (s *State) MarkSkipped(step string) {
	s.removeEverywhere(step)
	s.SkippedSteps = append(s.SkippedSteps, step)
	s.touch()
}

// IsCompleted reports whether the step already completed in a prior run
func (s *State) IsCompleted(step string) bool {
	return contains(s.CompletedSteps, step)
}

// SetEnv records a discovered fact for later steps
func (s *State) SetEnv(key, value string) {
	if s.Environment == nil {
		s.Environment = make(map[string]string)
	}
	s.Environment[key] = value
	s.touch()
}

// GetEnv retrieves a discovered fact
func (s *State) GetEnv(key string) (string, bool) {
	value, ok := s.Environment[key]
	return value, ok
}

func (s *State) touch() {
	s.UpdatedAt = time.Now()
	if s.TotalSteps > 0 {
		s.SuccessRate = float64(len(s.CompletedSteps)) / float64(s.TotalSteps)
	}
}

func (s *State) removeEverywhere(step string) {
	s.CompletedSteps = remove(s.CompletedSteps, step)
	s.FailedSteps = remove(s.FailedSteps, step)
	s.SkippedSteps = remove(s.SkippedSteps, step)
}

func contains(steps []string, step string) bool {
	for _, name := range steps {
		if name == step {
			return true
		}
	}
	return false
}

func remove(steps []string, step string) []string {
	out := steps[:0]
	for _, name := range steps {
		if name != step {
			out = append(out, name)
		}
	}
	return out
}

// Manager handles checkpoint persistence
type Manager struct {
	dir string
}

// NewManager creates a checkpoint manager rooted at dir
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Path returns the file a profile's checkpoint is stored at
func (m *Manager) Path(profile string) string {
	return filepath.Join(m.dir, fmt.Sprintf("%s.json", profile))
}

// Save persists the state atomically: the JSON is written to a temp
// file in the same directory and renamed over the destination, so a
// crash mid-write never leaves a torn checkpoint.
func (m *Manager) Save(state *State) error {
	if state == nil {
		return fmt.Errorf("checkpoint state is nil")
	}

	state.touch()

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeCheckpointWriteFailed, "failed to create checkpoint directory", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeCheckpointWriteFailed, "failed to marshal checkpoint state", err)
	}

	dest := m.Path(state.Profile)
	tmp, err := os.CreateTemp(m.dir, ".checkpoint-*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeCheckpointWriteFailed, "failed to create temp checkpoint file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeCheckpointWriteFailed, "failed to write checkpoint file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeCheckpointWriteFailed, "failed to close checkpoint file", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeCheckpointWriteFailed, "failed to replace checkpoint file", err)
	}

	return nil
}

// Load reads the checkpoint for the given profile. A schema version
// mismatch is an error; the caller must re-initialize rather than
// partially deserialize old state.
func (m *Manager) Load(profile string) (*State, error) {
	data, err := os.ReadFile(m.Path(profile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeCheckpointNotFound, fmt.Sprintf("no checkpoint for profile %q", profile))
		}
		return nil, errors.Wrap(errors.ErrCodeCheckpointCorrupt, "failed to read checkpoint file", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCheckpointCorrupt, "failed to unmarshal checkpoint state", err)
	}

	if state.Version != SchemaVersion {
		return nil, errors.NewCheckpointVersionMismatchError(state.Version, SchemaVersion)
	}

	return &state, nil
}

// Exists checks whether a checkpoint exists for the profile
func (m *Manager) Exists(profile string) bool {
	_, err := os.Stat(m.Path(profile))
	return err == nil
}

// Delete removes a profile's checkpoint
func (m *Manager) Delete(profile string) error {
	if err := os.Remove(m.Path(profile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// List returns the profiles that have a checkpoint on disk
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var profiles []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			profiles = append(profiles, entry.Name()[:len(entry.Name())-5])
		}
	}

	return profiles, nil
}
