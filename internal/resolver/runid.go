// Package resolver maps short run ID prefixes to the full run IDs
// recorded in the farm registry, so commands can take "6e1b24c0"
// instead of a whole UUID.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/zforge/internal/registry"
)

// MinPrefixLength is the shortest accepted prefix. Six characters keeps
// collisions rare without demanding the full UUID.
const MinPrefixLength = 6

// ResolveRunID resolves a short prefix to the full ID of a recorded test
// run. A full UUID passes through after an existence check. Zero matches
// produce a NotFoundError, several an AmbiguousError.
func ResolveRunID(ctx context.Context, client *registry.Client, shortID string) (string, error) {
	if len(shortID) == 36 && strings.Count(shortID, "-") == 4 {
		if _, err := client.GetTest(ctx, shortID); err != nil {
			if registry.IsNotFound(err) {
				return "", &NotFoundError{ShortID: shortID}
			}
			return "", fmt.Errorf("failed to verify run: %w", err)
		}
		return shortID, nil
	}

	if len(shortID) < MinPrefixLength {
		return "", fmt.Errorf("run ID prefix must be at least %d characters (got %d)", MinPrefixLength, len(shortID))
	}

	matches, err := client.ScanTests(ctx, shortID)
	if err != nil {
		return "", fmt.Errorf("failed to search for run: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no recorded run matched the prefix.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no test runs found matching '%s'", e.ShortID)
}

// AmbiguousError indicates several runs matched the prefix.
type AmbiguousError struct {
	ShortID string
	Matches []string // sorted full run IDs
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous run ID '%s' matches %d runs", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError lists the matching run IDs, up to ten, for the
// user to pick a longer prefix from.
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ambiguous run ID '%s' matches %d runs:\n", err.ShortID, len(err.Matches))

	shown := len(err.Matches)
	if shown > 10 {
		shown = 10
	}
	for _, id := range err.Matches[:shown] {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	if len(err.Matches) > shown {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-shown)
	}

	b.WriteString("\nUse a longer prefix to uniquely identify the run.")
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	var ae *AmbiguousError
	return errors.As(err, &ae)
}
