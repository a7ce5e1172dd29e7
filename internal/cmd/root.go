package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rigup/internal/log"
)

var (
	flagLogLevel  string
	flagLogFormat string
	flagLogPath   string
)

var rootCmd = &cobra.Command{
	Use:   "rigup",
	Short: "Provision AI image-generation demo machines",
	Long: `rigup prepares a demo machine (Intel Core Ultra or Snapdragon X Elite)
for the AI image-generation demo: it installs the Python environment and
ML acceleration packages, selects the best available acceleration
provider, downloads model weights with resumable transfers, and scores
the machine's readiness.

Runs are checkpointed: an interrupted installation resumes from the last
completed step with 'rigup prepare --resume'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := log.Config{
			Level:  log.ParseLevel(flagLogLevel),
			Format: log.ParseFormat(flagLogFormat),
			Output: log.OutputStderr(),
		}

		if flagLogPath != "" {
			output, path, err := log.OutputFile(flagLogPath)
			if err != nil {
				return err
			}
			config.Output = output
			cmd.PrintErrf("logging to %s\n", path)
		}

		log.SetDefaultLogger(log.New(config))
		return nil
	},
}

// ExecuteContext runs the root command with the given context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&flagLogPath, "log-path", "", "directory for log files (default: stderr only)")
}
