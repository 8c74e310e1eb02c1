package bootimage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dyluth/zforge/internal/toolchain"
)

// Composer produces bootable outputs from build artifacts by driving the
// external packer.
type Composer struct {
	runner    toolchain.Runner
	packerCmd []string
}

// NewComposer creates a composer around the configured packer command.
func NewComposer(runner toolchain.Runner, packerCmd []string) *Composer {
	return &Composer{runner: runner, packerCmd: packerCmd}
}

// Outputs are the composed boot products for one build.
type Outputs struct {
	SD     string // sd/boot.bin
	FSBLSD string // fsbl-sd/boot.bin, empty for targets without an FSBL
	JTAG   string // jtag/ symlink directory
}

// ComposeAll produces every applicable output under dir: the szl-first SD
// image and the JTAG directory always, plus the FSBL-first SD image when
// the inputs carry a vendor first-stage loader.
func (c *Composer) ComposeAll(ctx context.Context, in *Inputs, dir string) (*Outputs, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	out := &Outputs{}

	sd, err := c.packImage(ctx, in, dir, SDDirName, in.Loader.Path)
	if err != nil {
		return nil, err
	}
	out.SD = sd

	if in.HasFSBL() {
		fsblSD, err := c.packImage(ctx, in, dir, FSBLSDDirName, in.FSBL.Path)
		if err != nil {
			return nil, err
		}
		out.FSBLSD = fsblSD
	}

	jtag, err := c.composeJTAG(in, dir)
	if err != nil {
		return nil, err
	}
	out.JTAG = jtag

	return out, nil
}

// ComposeSD produces only the szl-first SD image under dir.
func (c *Composer) ComposeSD(ctx context.Context, in *Inputs, dir string) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	return c.packImage(ctx, in, dir, SDDirName, in.Loader.Path)
}

// ComposeFSBLSD produces only the FSBL-first SD image under dir.
func (c *Composer) ComposeFSBLSD(ctx context.Context, in *Inputs, dir string) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	if !in.HasFSBL() {
		return "", fmt.Errorf("target '%s' has no vendor FSBL: cannot compose an fsbl-sd image", in.FirmwareELF.Target)
	}
	return c.packImage(ctx, in, dir, FSBLSDDirName, in.FSBL.Path)
}

// ComposeJTAG produces only the JTAG symlink directory under dir.
func (c *Composer) ComposeJTAG(in *Inputs, dir string) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	return c.composeJTAG(in, dir)
}

// packImage writes a descriptor into dir/<sub>/ and runs the packer on it.
// A failed pack never leaves a partial boot.bin behind.
func (c *Composer) packImage(ctx context.Context, in *Inputs, dir, sub, bootloader string) (string, error) {
	imageDir := filepath.Join(dir, sub)
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s output directory: %w", sub, err)
	}

	desc := &Descriptor{
		Bootloader: bootloader,
		Bitstream:  in.Bitstream.Path,
		Firmware:   in.FirmwareELF.Path,
	}

	bifPath := filepath.Join(imageDir, descriptorName)
	if err := desc.WriteFile(bifPath); err != nil {
		return "", err
	}

	outPath := filepath.Join(imageDir, SDImageName)
	cmd := append(append([]string{}, c.packerCmd...), bifPath, outPath)

	_, err := c.runner.Run(ctx, toolchain.Invocation{
		Tool:    "packer",
		Pair:    in.FirmwareELF.pair(),
		Command: cmd,
		Dir:     imageDir,
	})
	if err != nil {
		os.Remove(outPath)
		return "", err
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("packer reported success but produced no %s", outPath)
	}

	return outPath, nil
}

// composeJTAG links the raw pieces a JTAG boot needs: the loader ELF, the
// bitstream and the firmware binary, under their canonical names.
//
// Artifacts inside the composition directory are linked relative, so the
// whole directory stays valid when it is renamed into its final location.
// Loader stages live outside the build tree and keep absolute links.
func (c *Composer) composeJTAG(in *Inputs, dir string) (string, error) {
	jtagDir := filepath.Join(dir, JTAGDirName)
	if err := os.MkdirAll(jtagDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create jtag output directory: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	links := []struct {
		name   string
		source string
	}{
		{filepath.Base(in.Loader.Path), in.Loader.Path},
		{filepath.Base(in.Bitstream.Path), in.Bitstream.Path},
		{filepath.Base(in.FirmwareBin.Path), in.FirmwareBin.Path},
	}

	for _, l := range links {
		source, err := filepath.Abs(l.source)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", l.source, err)
		}
		if rel, err := filepath.Rel(absDir, source); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			source = filepath.Join("..", rel)
		}

		linkPath := filepath.Join(jtagDir, l.name)
		// Replace stale links from earlier builds
		if err := os.Remove(linkPath); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to replace %s: %w", linkPath, err)
		}
		if err := os.Symlink(source, linkPath); err != nil {
			return "", fmt.Errorf("failed to link %s: %w", linkPath, err)
		}
	}

	return jtagDir, nil
}
