package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	dockerclient "github.com/docker/docker/client"
	"github.com/spf13/cobra"

	"github.com/dyluth/zforge/internal/board"
	"github.com/dyluth/zforge/internal/bootimage"
	"github.com/dyluth/zforge/internal/build"
	"github.com/dyluth/zforge/internal/config"
	dockerpkg "github.com/dyluth/zforge/internal/docker"
	"github.com/dyluth/zforge/internal/printer"
	"github.com/dyluth/zforge/internal/toolchain"
)

var (
	buildAll    bool
	buildForce  bool
	buildOutput string
)

var buildCmd = &cobra.Command{
	Use:   "build [TARGET/VARIANT]",
	Short: "Build firmware, gateware and boot images for a pair",
	Long: `Build the full artifact set for one (target, variant) pair, or for
every pair in the board matrix with --all.

A build runs the firmware and gateware toolchains, then composes the
flashable boot images (sd, fsbl-sd where the board supports it, jtag).
Completed sets are cached: rebuilding a pair whose set already exists
is a no-op unless --force is given.

Examples:
  # Build one pair
  zforge build zc706/nist_qc2

  # Rebuild it from scratch
  zforge build zc706/nist_qc2 --force

  # Build the whole matrix
  zforge build --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildAll, "all", false, "Build every pair in the board matrix")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "Rebuild even when a completed artifact set exists")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Output directory (overrides output_dir in zforge.yml)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if buildAll && len(args) > 0 {
		return printer.Error(
			"both a pair and --all given",
			"Name one TARGET/VARIANT pair or pass --all, not both.",
			[]string{"Build the whole matrix:\n  zforge build --all"},
		)
	}
	if !buildAll && len(args) == 0 {
		return printer.Error(
			"nothing to build",
			"Name one TARGET/VARIANT pair, or pass --all for the whole matrix.",
			[]string{
				"Build one pair:\n  zforge build zc706/nist_qc2",
				"List valid pairs:\n  zforge boards",
			},
		)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	builder, cleanup, err := newBuilder(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if buildAll {
		return printMatrix(builder.BuildAll(ctx, buildForce))
	}

	target, variant, err := splitPair(args[0])
	if err != nil {
		return err
	}
	set, err := builder.Build(ctx, build.Request{Target: target, Variant: variant, Force: buildForce})
	if err != nil {
		return buildFailure(target, variant, err)
	}
	printSet(set)
	return nil
}

// newBuilder assembles a Builder from the configuration: the effective
// board registry, one toolchain runner per tool (with a Docker client
// only when some tool names a container image), the boot image composer
// and the registry recorder when a registry is configured. The returned
// cleanup closes whatever was opened.
func newBuilder(ctx context.Context, cfg *config.Config) (*build.Builder, func(), error) {
	boards, err := cfg.BoardRegistry()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid board configuration: %w", err)
	}

	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	var docker *dockerclient.Client
	if needsDocker(cfg) {
		docker, err = dockerpkg.NewClient(ctx)
		if err != nil {
			return nil, nil, printer.Error(
				"failed to connect to Docker",
				fmt.Sprintf("A toolchain is configured with a container image but Docker is not reachable: %v", err),
				[]string{"Check that the Docker daemon is running:\n  docker info"},
			)
		}
		closers = append(closers, func() { docker.Close() })
	}

	firmware, err := toolchain.For(cfg.Toolchain.Firmware, docker)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	gateware, err := toolchain.For(cfg.Toolchain.Gateware, docker)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	packer, err := toolchain.For(cfg.Toolchain.Packer, docker)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var recorder build.Recorder
	if cfg.RegistryURL() != "" {
		client, err := openRegistry(cfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { client.Close() })
		recorder = client
	}

	outputDir := cfg.OutputDir
	if buildOutput != "" {
		outputDir = buildOutput
	}

	builder := build.New(
		boards,
		build.Tool{Command: cfg.Toolchain.Firmware.Command, Runner: firmware},
		build.Tool{Command: cfg.Toolchain.Gateware.Command, Runner: gateware},
		bootimage.NewComposer(packer, cfg.Toolchain.Packer.Command),
		build.Options{
			OutputDir:  outputDir,
			LoadersDir: cfg.Loaders.Dir,
			Ident:      build.DiscoverIdent(ctx, "."),
			Recorder:   recorder,
		},
	)
	return builder, cleanup, nil
}

// needsDocker reports whether any configured tool runs in a container.
func needsDocker(cfg *config.Config) bool {
	return cfg.Toolchain.Firmware.Container != "" ||
		cfg.Toolchain.Gateware.Container != "" ||
		cfg.Toolchain.Packer.Container != ""
}

// splitPair parses a "target/variant" argument.
func splitPair(pair string) (target, variant string, err error) {
	parts := strings.Split(pair, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", printer.Error(
			fmt.Sprintf("invalid pair: %s", pair),
			"Builds are named TARGET/VARIANT.",
			[]string{"List valid pairs:\n  zforge boards"},
		)
	}
	return parts[0], parts[1], nil
}

// printSet reports one completed artifact set.
func printSet(set *build.ArtifactSet) {
	pair := set.Resolution.Pair()
	if set.Cached {
		printer.Success("%s up to date (cached)\n", pair)
	} else {
		printer.Success("%s built in %s\n", pair, set.Duration.Round(time.Second))
	}
	printer.Printf("  sd:      %s\n", set.SD)
	if set.FSBLSD != "" {
		printer.Printf("  fsbl-sd: %s\n", set.FSBLSD)
	}
	printer.Printf("  jtag:    %s\n", set.JTAG)
}

// buildFailure translates a single-pair build error into remediation.
func buildFailure(target, variant string, err error) error {
	if board.IsUnknownTarget(err) || board.IsUnknownVariant(err) {
		return printer.Error(
			fmt.Sprintf("unknown pair: %s/%s", target, variant),
			err.Error(),
			[]string{"List valid pairs:\n  zforge boards"},
		)
	}
	if toolchain.IsToolError(err) {
		return printer.Error(
			fmt.Sprintf("build failed: %s/%s", target, variant),
			err.Error(),
			nil,
		)
	}
	return err
}

// printMatrix reports a full matrix build, one row per pair, and fails
// when any pair did.
func printMatrix(results []build.MatrixResult) error {
	var rows [][]string
	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			rows = append(rows, []string{r.Target, r.Variant, "failed", firstLine(r.Err.Error())})
		case r.Set.Cached:
			rows = append(rows, []string{r.Target, r.Variant, "cached", ""})
		default:
			rows = append(rows, []string{r.Target, r.Variant, "ok", r.Set.Duration.Round(time.Second).String()})
		}
	}
	printer.Table([]string{"TARGET", "VARIANT", "STATUS", "DETAIL"}, rows)

	if failed > 0 {
		return fmt.Errorf("%d of %d builds failed", failed, len(results))
	}
	printer.Success("%d pairs built\n", len(results))
	return nil
}

// firstLine trims a multi-line tool error down to its lead line for
// table display.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
