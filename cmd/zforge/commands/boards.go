package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/dyluth/zforge/internal/board"
	"github.com/dyluth/zforge/internal/config"
	"github.com/dyluth/zforge/internal/printer"
	"github.com/spf13/cobra"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List buildable board targets and variants",
	Long: `List every (target, variant) pair zforge can build.

The matrix is the built-in board table plus any boards declared in
zforge.yml. Without a zforge.yml the built-in table is shown.`,
	RunE: runBoards,
}

func init() {
	rootCmd.AddCommand(boardsCmd)
}

func runBoards(cmd *cobra.Command, args []string) error {
	// The built-in matrix is useful before 'zforge init' has run, so a
	// missing config file is not an error here. An invalid one still is.
	boards := board.DefaultRegistry()
	cfg, err := config.Load(config.DefaultPath)
	switch {
	case err == nil:
		boards, err = cfg.BoardRegistry()
		if err != nil {
			return fmt.Errorf("invalid board configuration: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return err
	}

	var rows [][]string
	for _, t := range boards.Targets() {
		for _, v := range t.Variants {
			fsbl := ""
			if t.SupportsFSBL {
				fsbl = "yes"
			}
			rows = append(rows, []string{t.Name, v.Name, string(v.Flavor), fsbl})
		}
	}

	printer.Table([]string{"TARGET", "VARIANT", "FLAVOR", "FSBL"}, rows)
	return nil
}
