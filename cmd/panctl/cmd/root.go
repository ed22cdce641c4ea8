package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ystepanoff/uwbpan/config"
	"github.com/ystepanoff/uwbpan/logging"
	"github.com/ystepanoff/uwbpan/output"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
	logLevel     string

	// Shared state set during PersistentPreRun
	cfg       *config.Config
	log       *zap.Logger
	closeLog  func()
	formatter output.Formatter
)

// rootCmd is the base command for panctl.
var rootCmd = &cobra.Command{
	Use:   "panctl",
	Short: "PAN discovery tooling: simulate discovery, inspect allocations",
	Long: `panctl drives the PAN discovery handshake on simulated transceivers
and inspects the allocations a PAN master has handed out.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !output.Valid(outputFormat) {
			return fmt.Errorf("unknown output format %q", outputFormat)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		log, closeLog, err = logging.New(cfg.Log)
		if err != nil {
			return err
		}
		formatter = output.NewFormatter(outputFormat)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			closeLog()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// RootCmd returns the root cobra.Command for testing purposes.
func RootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); defaults apply when unset or missing")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}
