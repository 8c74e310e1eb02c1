package build

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DiscoverIdent derives the build identity for a source tree:
// "<version>+<rev>" where version comes from the tree's VERSION file and
// rev is the abbreviated git commit. Trees without a VERSION file report
// "unknown"; trees outside a git checkout carry no revision half.
func DiscoverIdent(ctx context.Context, root string) string {
	version := "unknown"
	if data, err := os.ReadFile(filepath.Join(root, "VERSION")); err == nil {
		if v := strings.TrimSpace(string(data)); v != "" {
			version = v
		}
	}

	rev := gitRevision(ctx, root)
	if rev == "" {
		return version
	}
	return version + "+" + rev
}

// gitRevision returns the abbreviated commit hash of root, or "" when root
// is not a git checkout or git is unavailable.
func gitRevision(ctx context.Context, root string) string {
	cmd := exec.CommandContext(ctx, "git", "-C", root, "rev-parse", "--short=8", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Stamp combines a build identity with the variant being built. The
// firmware embeds the result and reports it on boot, which is how a bench
// log ties back to the bits that produced it.
func Stamp(ident, variant string) string {
	if ident == "" {
		return variant
	}
	return ident + ";" + variant
}
