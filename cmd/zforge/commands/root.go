package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "zforge",
	Short: "Zforge - Zynq firmware build and lab farm",
	Long: `Zforge builds, packages and hardware-tests firmware for Zynq
system-on-chip boards.

It drives the firmware and gateware toolchains for each (target, variant)
pair, composes flashable boot images, records results in a farm-wide
registry, and runs acceptance tests on bench boards behind an exclusive
lock server.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	// e.g., "zforge --all" instead of "zforge build --all"
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no subcommand is specified, show help
		return cmd.Help()
	},
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
