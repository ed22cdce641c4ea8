package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ystepanoff/uwbpan/master"
)

var registryPath string

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the PAN master's allocation registry",
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored allocations",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Coordinator.Registry
		if registryPath != "" {
			path = registryPath
		}
		if path == "" {
			return errors.New("no registry configured: set coordinator.registry, UWBPAN_REGISTRY or --registry")
		}

		reg, err := master.OpenSQLiteRegistry(path)
		if err != nil {
			return fmt.Errorf("failed to open registry: %w", err)
		}
		defer reg.Close()

		list, err := reg.List()
		if err != nil {
			return fmt.Errorf("failed to list allocations: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), formatter.Format(allocationRows(list)))
		return nil
	},
}

func init() {
	registryListCmd.Flags().StringVar(&registryPath, "registry", "", "SQLite registry file")
	registryCmd.AddCommand(registryListCmd)
	rootCmd.AddCommand(registryCmd)
}
