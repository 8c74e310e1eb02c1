// Package build turns (target, variant) pairs into published artifact sets
// by driving the external firmware, gateware and packer toolchains.
//
// A completed set lives at <output>/<target>/<variant>/ and is immutable:
// builds stage into a temporary directory and are renamed into place only
// once every product exists, so a pair directory either holds a full set or
// does not exist at all. Concurrent zforge processes sharing an output tree
// are serialized per pair with an advisory file lock.
package build

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dyluth/zforge/internal/board"
	"github.com/dyluth/zforge/internal/bootimage"
	"github.com/dyluth/zforge/internal/manifest"
	"github.com/dyluth/zforge/internal/registry"
	"github.com/dyluth/zforge/internal/toolchain"
)

const (
	bitstreamName = "top.bit"
	loaderName    = "szl.elf"
	fsblName      = "fsbl.elf"
)

// Request names one build.
type Request struct {
	Target  string
	Variant string
	Force   bool // rebuild even when a completed set exists
}

// ArtifactSet is the on-disk result of one completed build, all paths
// final (post-publish).
type ArtifactSet struct {
	Dir        string // <output>/<target>/<variant>
	Resolution board.Resolution

	FirmwareELF string
	FirmwareBin string
	Bitstream   string
	SD          string // sd/boot.bin
	FSBLSD      string // fsbl-sd/boot.bin, empty without a vendor FSBL
	JTAG        string // jtag/ symlink directory

	Cached   bool
	Duration time.Duration
}

// Tool pairs a toolchain runner with the configured base command it runs.
type Tool struct {
	Command []string
	Runner  toolchain.Runner
}

// Recorder receives completed build outcomes. The registry client
// satisfies this; a nil recorder disables recording.
type Recorder interface {
	RecordBuild(ctx context.Context, record *registry.BuildRecord) error
}

// Options configure a Builder beyond its toolchains.
type Options struct {
	OutputDir  string
	LoadersDir string
	Ident      string // build identity stamp, from DiscoverIdent
	Recorder   Recorder
}

// Builder produces artifact sets for resolved pairs.
type Builder struct {
	boards   *board.Registry
	firmware Tool
	gateware Tool
	composer *bootimage.Composer

	outputDir  string
	loadersDir string
	ident      string
	recorder   Recorder
}

// New creates a builder over the given board registry and toolchains.
func New(boards *board.Registry, firmware, gateware Tool, composer *bootimage.Composer, opts Options) *Builder {
	return &Builder{
		boards:     boards,
		firmware:   firmware,
		gateware:   gateware,
		composer:   composer,
		outputDir:  opts.OutputDir,
		loadersDir: opts.LoadersDir,
		ident:      opts.Ident,
		recorder:   opts.Recorder,
	}
}

// Build resolves the request and produces (or reuses) its artifact set.
// Unknown pairs are rejected before any locking or disk work happens.
func (b *Builder) Build(ctx context.Context, req Request) (*ArtifactSet, error) {
	res, err := b.boards.Resolve(req.Target, req.Variant)
	if err != nil {
		return nil, err
	}

	outDir, err := filepath.Abs(b.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	targetDir := filepath.Join(outDir, res.Target.Name)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// Serialize with other zforge processes building the same pair
	lock, err := acquirePairLock(ctx, targetDir, res.Variant.Name)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	pairDir := filepath.Join(targetDir, res.Variant.Name)
	if !req.Force {
		if set, ok := b.cachedSet(pairDir, res); ok {
			log.Printf("[INFO] %s: reusing completed artifacts in %s", res.Pair(), pairDir)
			return set, nil
		}
	}

	start := time.Now()
	set, buildErr := b.buildFresh(ctx, res, targetDir, pairDir)
	duration := time.Since(start)
	b.record(ctx, res, set, buildErr, duration)
	if buildErr != nil {
		return nil, buildErr
	}
	set.Duration = duration
	log.Printf("[INFO] %s: build complete in %s", res.Pair(), duration.Round(time.Second))
	return set, nil
}

// buildFresh runs the toolchains into a staging directory and publishes
// the result with a single rename. An existing set stays visible until the
// replacement swaps in.
func (b *Builder) buildFresh(ctx context.Context, res board.Resolution, targetDir, pairDir string) (*ArtifactSet, error) {
	loader, fsbl, err := b.loaderStages(res)
	if err != nil {
		return nil, err
	}

	staging, err := os.MkdirTemp(targetDir, "."+res.Variant.Name+".staging-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	// A successful publish renames staging away; this only sweeps failures.
	defer os.RemoveAll(staging)

	if err := b.runFirmware(ctx, res, staging); err != nil {
		return nil, err
	}
	if err := b.runGateware(ctx, res, staging); err != nil {
		return nil, err
	}

	flavor := string(res.Flavor)
	inputs := &bootimage.Inputs{
		Loader:      loader,
		FSBL:        fsbl,
		Bitstream:   artifactAt(staging, bitstreamName, res),
		FirmwareELF: artifactAt(staging, flavor+".elf", res),
		FirmwareBin: artifactAt(staging, flavor+".bin", res),
	}
	out, err := b.composer.ComposeAll(ctx, inputs, staging)
	if err != nil {
		return nil, err
	}

	m := manifest.New()
	m.Add(flavor + ".bin")
	m.Add(flavor + ".elf")
	m.Add(bitstreamName)
	m.Add(filepath.Join(bootimage.SDDirName, bootimage.SDImageName))
	if out.FSBLSD != "" {
		m.Add(filepath.Join(bootimage.FSBLSDDirName, bootimage.SDImageName))
	}
	if err := m.WriteFile(staging); err != nil {
		return nil, err
	}

	// Clear remnants of interrupted builds from before the rename contract
	if err := os.RemoveAll(pairDir); err != nil {
		return nil, fmt.Errorf("failed to clear previous artifacts: %w", err)
	}
	if err := os.Rename(staging, pairDir); err != nil {
		return nil, fmt.Errorf("failed to publish artifacts: %w", err)
	}

	return b.artifactSet(pairDir, res, false), nil
}

// runFirmware invokes the firmware toolchain and checks it produced the
// flavor's binary and ELF.
func (b *Builder) runFirmware(ctx context.Context, res board.Resolution, staging string) error {
	log.Printf("[INFO] %s: building %s firmware", res.Pair(), res.Flavor)
	_, err := b.firmware.Runner.Run(ctx, toolchain.Invocation{
		Tool:    "firmware",
		Pair:    res.Pair(),
		Command: FirmwareArgs(b.firmware.Command, res, staging),
		Dir:     staging,
		Env:     []string{"ZFORGE_IDENT=" + Stamp(b.ident, res.Variant.Name)},
	})
	if err != nil {
		return err
	}

	flavor := string(res.Flavor)
	for _, name := range []string{flavor + ".bin", flavor + ".elf"} {
		if _, err := os.Stat(filepath.Join(staging, name)); err != nil {
			return fmt.Errorf("firmware tool reported success but produced no %s", name)
		}
	}
	return nil
}

// runGateware invokes the gateware toolchain and checks it produced the
// bitstream.
func (b *Builder) runGateware(ctx context.Context, res board.Resolution, staging string) error {
	log.Printf("[INFO] %s: building gateware", res.Pair())
	_, err := b.gateware.Runner.Run(ctx, toolchain.Invocation{
		Tool:    "gateware",
		Pair:    res.Pair(),
		Command: GatewareArgs(b.gateware.Command, res, staging),
		Dir:     staging,
	})
	if err != nil {
		return err
	}

	if _, err := os.Stat(filepath.Join(staging, bitstreamName)); err != nil {
		return fmt.Errorf("gateware tool reported success but produced no %s", bitstreamName)
	}
	return nil
}

// loaderStages locates the target's pre-built loader stages under the
// loaders directory: szl.elf always, fsbl.elf when the target boots
// through a vendor FSBL.
func (b *Builder) loaderStages(res board.Resolution) (loader, fsbl bootimage.Artifact, err error) {
	dir := filepath.Join(b.loadersDir, res.Target.Name)

	szl := filepath.Join(dir, loaderName)
	if _, statErr := os.Stat(szl); statErr != nil {
		return loader, fsbl, fmt.Errorf("no %s for target '%s' under %s (check loaders.dir)", loaderName, res.Target.Name, b.loadersDir)
	}
	loader = bootimage.Artifact{Path: szl, Target: res.Target.Name}

	if res.RequiresFSBL {
		path := filepath.Join(dir, fsblName)
		if _, statErr := os.Stat(path); statErr != nil {
			return loader, fsbl, fmt.Errorf("target '%s' boots through a vendor FSBL but %s has no %s", res.Target.Name, dir, fsblName)
		}
		fsbl = bootimage.Artifact{Path: path, Target: res.Target.Name}
	}
	return loader, fsbl, nil
}

// cachedSet reports whether pairDir already holds a completed set. The
// manifest is written last before publishing, so its presence is the
// completeness marker.
func (b *Builder) cachedSet(pairDir string, res board.Resolution) (*ArtifactSet, bool) {
	if _, err := manifest.ParseFile(pairDir); err != nil {
		return nil, false
	}
	return b.artifactSet(pairDir, res, true), true
}

// artifactSet describes the set rooted at dir.
func (b *Builder) artifactSet(dir string, res board.Resolution, cached bool) *ArtifactSet {
	flavor := string(res.Flavor)
	set := &ArtifactSet{
		Dir:         dir,
		Resolution:  res,
		FirmwareELF: filepath.Join(dir, flavor+".elf"),
		FirmwareBin: filepath.Join(dir, flavor+".bin"),
		Bitstream:   filepath.Join(dir, bitstreamName),
		SD:          filepath.Join(dir, bootimage.SDDirName, bootimage.SDImageName),
		JTAG:        filepath.Join(dir, bootimage.JTAGDirName),
		Cached:      cached,
	}
	if res.RequiresFSBL {
		set.FSBLSD = filepath.Join(dir, bootimage.FSBLSDDirName, bootimage.SDImageName)
	}
	return set
}

// record reports the build outcome to the registry, when one is wired.
// Recording failures never fail the build.
func (b *Builder) record(ctx context.Context, res board.Resolution, set *ArtifactSet, buildErr error, duration time.Duration) {
	if b.recorder == nil {
		return
	}

	rec := &registry.BuildRecord{
		Target:        res.Target.Name,
		Variant:       res.Variant.Name,
		Flavor:        string(res.Flavor),
		Ident:         Stamp(b.ident, res.Variant.Name),
		DurationMs:    duration.Milliseconds(),
		CompletedAtMs: time.Now().UnixMilli(),
	}
	if buildErr != nil {
		rec.Status = registry.BuildStatusFailed
		rec.Error = buildErr.Error()
	} else {
		rec.Status = registry.BuildStatusOK
		rec.Products = relativeProducts(set)
	}

	if err := b.recorder.RecordBuild(ctx, rec); err != nil {
		log.Printf("[WARN] %s: failed to record build: %v", res.Pair(), err)
	}
}

// relativeProducts lists the set's products relative to its directory,
// matching the manifest
func relativeProducts(set *ArtifactSet) []string {
	flavor := string(set.Resolution.Flavor)
	products := []string{
		flavor + ".bin",
		flavor + ".elf",
		bitstreamName,
		filepath.Join(bootimage.SDDirName, bootimage.SDImageName),
	}
	if set.FSBLSD != "" {
		products = append(products, filepath.Join(bootimage.FSBLSDDirName, bootimage.SDImageName))
	}
	return products
}

// artifactAt tags a staged file with the pair identity it belongs to.
func artifactAt(dir, name string, res board.Resolution) bootimage.Artifact {
	return bootimage.Artifact{
		Path:    filepath.Join(dir, name),
		Target:  res.Target.Name,
		Variant: res.Variant.Name,
	}
}
