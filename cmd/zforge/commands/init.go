package commands

import (
	"fmt"

	"github.com/dyluth/zforge/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new zforge project",
	Long: `Initialize a new zforge project with a default configuration.

Creates:
  • zforge.yml - Project configuration file
  • scripts/ - Placeholder firmware and gateware build scripts
  • loaders/ - Layout for the prebuilt loader stages

Use --force to reinitialize an existing project (WARNING: replaces existing configuration).`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Force reinitialization (removes existing zforge.yml)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	// Check for existing files (unless --force)
	if !forceInit {
		if err := scaffold.CheckExisting(); err != nil {
			return err
		}
	}

	// Initialize the project
	if err := scaffold.Initialize(forceInit); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	// Print success message
	scaffold.PrintSuccess()

	return nil
}
