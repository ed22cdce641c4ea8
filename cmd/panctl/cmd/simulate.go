package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ystepanoff/uwbpan"
)

var (
	simTags     int
	simInterval time.Duration
	simAttempts int
	simRegistry string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run discovery for N tags against one PAN master on a simulated air",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("tags") {
			cfg.Simulation.Tags = simTags
		}
		if cmd.Flags().Changed("interval") {
			cfg.Simulation.Interval = simInterval
		}
		if cmd.Flags().Changed("attempts") {
			cfg.Simulation.MaxAttempts = simAttempts
		}
		if cmd.Flags().Changed("registry") {
			cfg.Coordinator.Registry = simRegistry
		}

		results, err := uwbpan.Simulate(cmd.Context(), cfg, log)
		if err != nil {
			return fmt.Errorf("simulation failed: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), formatter.Format(resultRows(results)))
		return nil
	},
}

func init() {
	simulateCmd.Flags().IntVar(&simTags, "tags", 3, "number of discovering tags")
	simulateCmd.Flags().DurationVar(&simInterval, "interval", 5*time.Millisecond, "time between blinks")
	simulateCmd.Flags().IntVar(&simAttempts, "attempts", 50, "blinks per tag before giving up (0: no limit)")
	simulateCmd.Flags().StringVar(&simRegistry, "registry", "", "SQLite registry file (default: in memory)")
	rootCmd.AddCommand(simulateCmd)
}
