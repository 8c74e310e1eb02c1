// Package watch turns the farm registry's event streams into terminal
// output for the watch command, and offers polling helpers for scripts
// that need to block on a build landing.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/zforge/internal/registry"
)

// OutputFormat selects how events are rendered.
type OutputFormat string

const (
	// OutputFormatDefault is human-readable output with timestamps.
	OutputFormatDefault OutputFormat = "default"
	// OutputFormatJSON is line-delimited JSON for programmatic processing.
	OutputFormatJSON OutputFormat = "json"
)

// event is the JSON envelope for one streamed event.
type event struct {
	Kind  string                `json:"kind"` // "build" or "test"
	At    time.Time             `json:"at"`
	Build *registry.BuildRecord `json:"build,omitempty"`
	Test  *registry.TestRecord  `json:"test,omitempty"`
}

// PollForBuild polls the registry until a build record for the pair
// exists, returning it. Polls every 200ms until timeout.
func PollForBuild(ctx context.Context, client *registry.Client, target, variant string, timeout time.Duration) (*registry.BuildRecord, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for a %s/%s build after %v", target, variant, timeout)

		case <-ticker.C:
			record, err := client.GetBuild(ctx, target, variant)
			if err != nil {
				if registry.IsNotFound(err) {
					continue
				}
				return nil, fmt.Errorf("failed to query for build: %w", err)
			}
			return record, nil
		}
	}
}

// StreamActivity subscribes to the farm's build and test events and
// writes one line per event to w until ctx is cancelled or a stream
// breaks.
func StreamActivity(ctx context.Context, client *registry.Client, format OutputFormat, w io.Writer) error {
	builds, err := client.SubscribeBuildEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to build events: %w", err)
	}
	defer builds.Close()

	tests, err := client.SubscribeTestEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to test events: %w", err)
	}
	defer tests.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-builds.Events():
			if !ok {
				return nil
			}
			if err := writeEvent(w, format, event{Kind: "build", At: time.Now(), Build: record}); err != nil {
				return err
			}

		case err := <-builds.Errors():
			return fmt.Errorf("build event stream failed: %w", err)

		case record, ok := <-tests.Events():
			if !ok {
				return nil
			}
			if err := writeEvent(w, format, event{Kind: "test", At: time.Now(), Test: record}); err != nil {
				return err
			}

		case err := <-tests.Errors():
			return fmt.Errorf("test event stream failed: %w", err)
		}
	}
}

func writeEvent(w io.Writer, format OutputFormat, ev event) error {
	if format == OutputFormatJSON {
		return json.NewEncoder(w).Encode(ev)
	}

	stamp := ev.At.Format("15:04:05")
	switch ev.Kind {
	case "build":
		b := ev.Build
		if b.Status == registry.BuildStatusOK {
			_, err := fmt.Fprintf(w, "%s 🔨 build %s ok in %s [%s]\n",
				stamp, b.Pair(), time.Duration(b.DurationMs)*time.Millisecond, b.Ident)
			return err
		}
		_, err := fmt.Fprintf(w, "%s 💥 build %s failed: %s\n", stamp, b.Pair(), b.Error)
		return err

	case "test":
		t := ev.Test
		if t.Outcome == registry.TestOutcomePassed {
			_, err := fmt.Fprintf(w, "%s ✅ test %s on %s passed in %s\n",
				stamp, t.Target+"/"+t.Variant, t.BoardID, time.Duration(t.DurationMs)*time.Millisecond)
			return err
		}
		_, err := fmt.Fprintf(w, "%s ❌ test %s on %s failed: %s\n",
			stamp, t.Target+"/"+t.Variant, t.BoardID, t.Reason)
		return err
	}
	return nil
}
