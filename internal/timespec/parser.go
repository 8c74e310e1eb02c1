// Package timespec parses the time filters the results command takes.
// A spec is either a Go duration ("2h", "90m") meaning that long ago,
// or an absolute RFC3339 timestamp.
package timespec

import (
	"fmt"
	"time"
)

// Parse turns one time spec into a Unix millisecond timestamp. Durations
// are relative to now: "2h" is two hours ago.
func Parse(spec string) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}
	if d, err := time.ParseDuration(spec); err == nil {
		return time.Now().Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use a duration like '1h30m' or RFC3339 like '2026-08-21T13:00:00Z')", spec)
}

// ParseRange parses the --since and --until flag pair into a millisecond
// window. Zero means that end is unbounded. An empty window (since at or
// after until) is rejected.
func ParseRange(since, until string) (sinceMs, untilMs int64, err error) {
	if since != "" {
		if sinceMs, err = Parse(since); err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if until != "" {
		if untilMs, err = Parse(until); err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if sinceMs > 0 && untilMs > 0 && sinceMs >= untilMs {
		return 0, 0, fmt.Errorf("--since must be before --until")
	}
	return sinceMs, untilMs, nil
}

// InWindow reports whether a completion timestamp falls inside the
// window ParseRange produced.
func InWindow(completedAtMs, sinceMs, untilMs int64) bool {
	if sinceMs > 0 && completedAtMs < sinceMs {
		return false
	}
	if untilMs > 0 && completedAtMs > untilMs {
		return false
	}
	return true
}
