package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rigup/internal/checkpoint"
	"github.com/felixgeelhaar/rigup/internal/report"
)

var (
	statusReportDir     string
	statusCheckpointDir string
	statusJSON          bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the machine's installation status",
	Long: `Display the outcome of the most recent installation run and any
checkpoint left by an interrupted one.

Status information includes:
  • Readiness score and level from the last run
  • Selected acceleration provider
  • Per-component results
  • Unfinished checkpoints that can be resumed

Examples:
  rigup status
  rigup status --json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusReportDir, "report-dir", defaultReportDir, "directory for run reports")
	statusCmd.Flags().StringVar(&statusCheckpointDir, "checkpoint-dir", defaultCheckpointDir, "directory for checkpoint files")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")

	rootCmd.AddCommand(statusCmd)
}

// machineStatus aggregates the latest report with pending checkpoints
type machineStatus struct {
	Timestamp   string            `json:"timestamp"`
	LastRun     *report.Report    `json:"last_run,omitempty"`
	Checkpoints []checkpointBrief `json:"checkpoints,omitempty"`
}

type checkpointBrief struct {
	Profile        string    `json:"profile"`
	UpdatedAt      time.Time `json:"updated_at"`
	CompletedSteps int       `json:"completed_steps"`
	TotalSteps     int       `json:"total_steps"`
	FailedSteps    []string  `json:"failed_steps,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	status := &machineStatus{Timestamp: time.Now().Format(time.RFC3339)}

	if rep, err := report.LoadLatest(statusReportDir); err == nil {
		status.LastRun = rep
	}

	mgr := checkpoint.NewManager(statusCheckpointDir)
	profiles, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}
	for _, profile := range profiles {
		state, err := mgr.Load(profile)
		if err != nil {
			continue
		}
		status.Checkpoints = append(status.Checkpoints, checkpointBrief{
			Profile:        profile,
			UpdatedAt:      state.UpdatedAt,
			CompletedSteps: len(state.CompletedSteps),
			TotalSteps:     state.TotalSteps,
			FailedSteps:    state.FailedSteps,
		})
	}

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if status.LastRun == nil && len(status.Checkpoints) == 0 {
		cmd.Println("No installation has run on this machine. Start one with 'rigup prepare'.")
		return nil
	}

	if status.LastRun != nil {
		cmd.Println(status.LastRun.Render())
	}

	for _, cp := range status.Checkpoints {
		if cp.CompletedSteps >= cp.TotalSteps && len(cp.FailedSteps) == 0 {
			continue
		}
		cmd.Printf("Unfinished checkpoint for profile %q: %d/%d steps complete",
			cp.Profile, cp.CompletedSteps, cp.TotalSteps)
		if len(cp.FailedSteps) > 0 {
			cmd.Printf(", failed: %v", cp.FailedSteps)
		}
		cmd.Println()
		cmd.Println("Resume with 'rigup prepare --resume'.")
	}

	return nil
}
