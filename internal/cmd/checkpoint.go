package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rigup/internal/checkpoint"
)

var checkpointDir string

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Manage installation checkpoints for resumable runs",
	Long: `Manage installation checkpoints for resumable runs.

Checkpoints are created automatically during 'rigup prepare' and let an
interrupted or failed installation resume from the last completed step.

Commands:
  list     List all saved checkpoints
  show     Show detailed information about a checkpoint
  delete   Delete a checkpoint to force a fresh run

To resume a checkpoint, use: rigup prepare --resume

Examples:
  rigup checkpoint list
  rigup checkpoint show snapdragon
  rigup checkpoint delete snapdragon`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved checkpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := checkpoint.NewManager(checkpointDir)

		profiles, err := mgr.List()
		if err != nil {
			return fmt.Errorf("failed to list checkpoints: %w", err)
		}

		if len(profiles) == 0 {
			cmd.Println("No checkpoints found.")
			return nil
		}

		type entry struct {
			Profile string
			State   *checkpoint.State
		}

		var entries []entry
		for _, profile := range profiles {
			state, err := mgr.Load(profile)
			if err != nil {
				continue // skip unreadable checkpoints
			}
			entries = append(entries, entry{Profile: profile, State: state})
		}

		sort.Slice(entries, func(i, j int) bool {
			return entries[i].State.UpdatedAt.After(entries[j].State.UpdatedAt)
		})

		cmd.Println("Checkpoints:")
		cmd.Println()
		for _, e := range entries {
			s := e.State
			cmd.Printf("%s\n", e.Profile)
			cmd.Printf("   Started:  %s\n", s.StartedAt.Format("2006-01-02 15:04:05"))
			cmd.Printf("   Updated:  %s\n", s.UpdatedAt.Format("2006-01-02 15:04:05"))
			cmd.Printf("   Progress: %d/%d steps", len(s.CompletedSteps), s.TotalSteps)
			if len(s.FailedSteps) > 0 {
				cmd.Printf(" (%d failed)", len(s.FailedSteps))
			}
			cmd.Println()
			cmd.Println()
		}

		return nil
	},
}

var checkpointShowCmd = &cobra.Command{
	Use:   "show <profile>",
	Short: "Show detailed information about a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile := args[0]
		mgr := checkpoint.NewManager(checkpointDir)

		state, err := mgr.Load(profile)
		if err != nil {
			return fmt.Errorf("failed to load checkpoint: %w", err)
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			data, err := json.MarshalIndent(state, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal checkpoint: %w", err)
			}
			cmd.Println(string(data))
			return nil
		}

		cmd.Printf("Checkpoint: %s\n\n", profile)
		cmd.Printf("Machine:    %s\n", state.MachineID)
		cmd.Printf("Started:    %s\n", state.StartedAt.Format("2006-01-02 15:04:05"))
		cmd.Printf("Updated:    %s\n", state.UpdatedAt.Format("2006-01-02 15:04:05"))
		cmd.Printf("Duration:   %s\n", state.UpdatedAt.Sub(state.StartedAt).Round(time.Second))
		cmd.Printf("Progress:   %.0f%%\n", state.SuccessRate*100)
		cmd.Println()

		cmd.Println("Steps:")
		for _, name := range state.CompletedSteps {
			cmd.Printf("  ✓ %s\n", name)
		}
		for _, name := range state.SkippedSteps {
			cmd.Printf("  ○ %s (skipped)\n", name)
		}
		for _, name := range state.FailedSteps {
			cmd.Printf("  ✗ %s (failed)\n", name)
		}
		if state.CurrentStep != "" {
			cmd.Printf("  ⏳ %s (in progress when saved)\n", state.CurrentStep)
		}

		if len(state.Environment) > 0 {
			cmd.Println()
			cmd.Println("Recorded facts:")
			keys := make([]string, 0, len(state.Environment))
			for key := range state.Environment {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				cmd.Printf("  %-20s %s\n", key, state.Environment[key])
			}
		}

		return nil
	},
}

var checkpointDeleteCmd = &cobra.Command{
	Use:   "delete <profile>",
	Short: "Delete a checkpoint to force a fresh run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile := args[0]
		mgr := checkpoint.NewManager(checkpointDir)

		if !mgr.Exists(profile) {
			cmd.Printf("No checkpoint for profile %q.\n", profile)
			return nil
		}

		if err := mgr.Delete(profile); err != nil {
			return err
		}
		cmd.Printf("Deleted checkpoint for profile %q.\n", profile)
		return nil
	},
}

func init() {
	checkpointCmd.PersistentFlags().StringVar(&checkpointDir, "checkpoint-dir", defaultCheckpointDir, "directory for checkpoint files")
	checkpointShowCmd.Flags().Bool("json", false, "output checkpoint as JSON")

	checkpointCmd.AddCommand(checkpointListCmd)
	checkpointCmd.AddCommand(checkpointShowCmd)
	checkpointCmd.AddCommand(checkpointDeleteCmd)

	rootCmd.AddCommand(checkpointCmd)
}
