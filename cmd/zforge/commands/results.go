package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/zforge/internal/printer"
	"github.com/dyluth/zforge/internal/registry"
	"github.com/dyluth/zforge/internal/resolver"
	"github.com/dyluth/zforge/internal/timespec"
)

var (
	resultsBoard string
	resultsRun   string
	resultsLimit int
	resultsSince string
	resultsUntil string
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show recorded build and test results",
	Long: `Show what the farm registry knows.

Without flags, the latest build per (target, variant) pair. With
--board, recent hardware test runs on that bench board. With --run,
the full record of one test run as pretty-printed JSON; short run ID
prefixes (6+ characters) are accepted.

Time Filters:
  --since  - Only results completed after this time
  --until  - Only results completed before this time
  Both take a duration ("2h") or an RFC3339 timestamp.

Examples:
  zforge results
  zforge results --since 24h
  zforge results --board zc706-1 --limit 20
  zforge results --run 6e1b24c0

Needs a registry section in zforge.yml (or ZFORGE_REGISTRY_URL).`,
	RunE: runResults,
}

func init() {
	resultsCmd.Flags().StringVar(&resultsBoard, "board", "", "Show recent test runs for this bench board")
	resultsCmd.Flags().StringVar(&resultsRun, "run", "", "Show one test run by ID (short prefix accepted)")
	resultsCmd.Flags().IntVar(&resultsLimit, "limit", 10, "How many test runs to show with --board")
	resultsCmd.Flags().StringVar(&resultsSince, "since", "", "Only results completed after this time")
	resultsCmd.Flags().StringVar(&resultsUntil, "until", "", "Only results completed before this time")
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	sinceMs, untilMs, err := timespec.ParseRange(resultsSince, resultsUntil)
	if err != nil {
		return printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use a duration like '2h' or RFC3339 like '2026-08-21T13:00:00Z'"},
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

	switch {
	case resultsRun != "":
		return printRun(ctx, client, resultsRun)
	case resultsBoard != "":
		return printTests(ctx, client, resultsBoard, resultsLimit, sinceMs, untilMs)
	default:
		return printBuilds(ctx, client, sinceMs, untilMs)
	}
}

func printRun(ctx context.Context, client *registry.Client, shortID string) error {
	runID, err := resolver.ResolveRunID(ctx, client, shortID)
	if err != nil {
		if resolver.IsNotFoundError(err) {
			return printer.Error(
				fmt.Sprintf("run '%s' not found", shortID),
				"No recorded test run matches that ID.",
				[]string{"List a board's recent runs:\n  zforge results --board <board-id>"},
			)
		}
		var ambig *resolver.AmbiguousError
		if errors.As(err, &ambig) {
			fmt.Fprintln(os.Stderr, resolver.FormatAmbiguousError(ambig))
			return fmt.Errorf("ambiguous run ID")
		}
		return err
	}

	record, err := client.GetTest(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to fetch run: %w", err)
	}

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format run: %w", err)
	}
	printer.Println(string(out))
	return nil
}

func printBuilds(ctx context.Context, client *registry.Client, sinceMs, untilMs int64) error {
	builds, err := client.ListBuilds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list builds: %w", err)
	}

	var rows [][]string
	for _, b := range builds {
		if !timespec.InWindow(b.CompletedAtMs, sinceMs, untilMs) {
			continue
		}
		detail := b.Ident
		if b.Status == registry.BuildStatusFailed {
			detail = firstLine(b.Error)
		}
		rows = append(rows, []string{
			b.Pair(),
			b.Status,
			roundMs(b.DurationMs),
			completedAt(b.CompletedAtMs),
			detail,
		})
	}
	if len(rows) == 0 {
		if sinceMs > 0 || untilMs > 0 {
			printer.Info("No builds in the selected time window.\n")
		} else {
			printer.Info("No builds recorded yet.\n")
		}
		return nil
	}
	printer.Table([]string{"PAIR", "STATUS", "DURATION", "COMPLETED", "DETAIL"}, rows)
	return nil
}

func printTests(ctx context.Context, client *registry.Client, boardID string, limit int, sinceMs, untilMs int64) error {
	tests, err := client.LatestTests(ctx, boardID, int64(limit))
	if err != nil {
		return fmt.Errorf("failed to list test runs: %w", err)
	}

	var rows [][]string
	for _, t := range tests {
		if !timespec.InWindow(t.CompletedAtMs, sinceMs, untilMs) {
			continue
		}
		detail := ""
		if t.Outcome == registry.TestOutcomeFailed {
			detail = firstLine(t.Reason)
		}
		rows = append(rows, []string{
			shortID(t.RunID),
			t.Target + "/" + t.Variant,
			t.Outcome,
			roundMs(t.DurationMs),
			completedAt(t.CompletedAtMs),
			detail,
		})
	}
	if len(rows) == 0 {
		if sinceMs > 0 || untilMs > 0 {
			printer.Info("No test runs for %s in the selected time window.\n", boardID)
		} else {
			printer.Info("No test runs recorded for %s yet.\n", boardID)
		}
		return nil
	}
	printer.Table([]string{"RUN", "PAIR", "OUTCOME", "DURATION", "COMPLETED", "DETAIL"}, rows)
	return nil
}

// shortID trims a UUID run ID for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func roundMs(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}

func completedAt(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
