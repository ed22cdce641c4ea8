package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X github.com/ystepanoff/uwbpan/cmd/panctl/cmd.panctlVersion=x.y.z"
var panctlVersion = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the panctl version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "panctl version %s\n", panctlVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
