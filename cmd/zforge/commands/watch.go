package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/zforge/internal/printer"
	"github.com/dyluth/zforge/internal/registry"
	"github.com/dyluth/zforge/internal/watch"
)

var (
	watchOutputFormat string
	watchPair         string
	watchTimeout      time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream farm activity or wait for a build",
	Long: `Stream build and test events from the farm registry as they happen.

With --pair, instead block until a build for that pair shows up in the
registry. That makes bench scripting against a build farm a one-liner:

  zforge watch --pair zc706/nist_qc2 --timeout 2h && zforge test zc706-1 nist_qc2

Output Formats (stream mode):
  default - Human-readable lines with timestamps
  json    - Line-delimited JSON, one event per line`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format: default or json")
	watchCmd.Flags().StringVar(&watchPair, "pair", "", "Wait for a TARGET/VARIANT build instead of streaming")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", time.Hour, "How long to wait with --pair")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var format watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		format = watch.OutputFormatDefault
	case "json":
		format = watch.OutputFormatJSON
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if watchPair != "" {
		target, variant, err := splitPair(watchPair)
		if err != nil {
			return err
		}
		record, err := watch.PollForBuild(ctx, client, target, variant, watchTimeout)
		if err != nil {
			return err
		}
		if record.Status != registry.BuildStatusOK {
			return printer.Error(
				fmt.Sprintf("latest %s build failed", record.Pair()),
				firstLine(record.Error),
				[]string{fmt.Sprintf("Rebuild it:\n  zforge build %s --force", record.Pair())},
			)
		}
		printer.Success("%s built (ident %s)\n", record.Pair(), record.Ident)
		return nil
	}

	printer.Info("Watching farm activity (Ctrl-C to stop)...\n")
	if err := watch.StreamActivity(ctx, client, format, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
