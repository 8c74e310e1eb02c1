package main

import (
	"fmt"
	"os"

	"github.com/dyluth/zforge/cmd/zforge/commands"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Set version information on root command
	commands.SetVersionInfo(version, commit, date)

	// Execute root command
	// User-facing failures are formatted by the printer package; the error
	// that reaches here carries the short form.
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
