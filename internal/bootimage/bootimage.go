// Package bootimage turns build artifacts into bootable outputs: packed
// boot.bin images for SD cards and a symlink directory for JTAG booting.
//
// The Zynq boot ROM reads the packed image components in a fixed order,
// so the descriptor handed to the packer is built from typed fields
// rather than a caller-supplied list.
package bootimage

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Output directory names inside a build directory.
const (
	SDDirName     = "sd"
	FSBLSDDirName = "fsbl-sd"
	JTAGDirName   = "jtag"

	// SDImageName is the packed image name the boot ROM looks for.
	SDImageName = "boot.bin"

	// descriptorName is the packer input written next to each image.
	descriptorName = "boot.bif"
)

// Descriptor is the boot image layout handed to the packer. The field
// order is the packing order: bootloader, then bitstream, then firmware.
type Descriptor struct {
	Bootloader string // first-stage loader ELF, marked [bootloader]
	Bitstream  string // FPGA bitstream (top.bit)
	Firmware   string // firmware ELF
}

// Validate checks every component is present.
func (d *Descriptor) Validate() error {
	if d.Bootloader == "" {
		return fmt.Errorf("boot descriptor has no bootloader")
	}
	if d.Bitstream == "" {
		return fmt.Errorf("boot descriptor has no bitstream")
	}
	if d.Firmware == "" {
		return fmt.Errorf("boot descriptor has no firmware")
	}
	return nil
}

// Render produces the descriptor text the packer consumes.
func (d *Descriptor) Render() string {
	var sb strings.Builder
	sb.WriteString("the_ROM_image:\n")
	sb.WriteString("{\n")
	fmt.Fprintf(&sb, "\t[bootloader]%s\n", d.Bootloader)
	fmt.Fprintf(&sb, "\t%s\n", d.Bitstream)
	fmt.Fprintf(&sb, "\t%s\n", d.Firmware)
	sb.WriteString("}\n")
	return sb.String()
}

// WriteFile validates and writes the rendered descriptor.
func (d *Descriptor) WriteFile(path string) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(d.Render()), 0644); err != nil {
		return fmt.Errorf("failed to write boot descriptor: %w", err)
	}
	return nil
}

// Artifact ties an input file to the build pair that produced it, so a
// composition cannot silently mix components from different builds.
type Artifact struct {
	Path    string
	Target  string
	Variant string // empty for per-target loader stages
}

func (a Artifact) pair() string {
	if a.Variant == "" {
		return a.Target
	}
	return a.Target + "/" + a.Variant
}

// PairMismatchError reports an input that belongs to a different build
// than the rest of the composition.
type PairMismatchError struct {
	Role string // which input: "loader", "fsbl", "bitstream", "firmware"
	Want string
	Got  string
}

func (e *PairMismatchError) Error() string {
	return fmt.Sprintf("%s belongs to %s, expected %s: boot images must be composed from a single build", e.Role, e.Got, e.Want)
}

// IsPairMismatch returns true if the error is a PairMismatchError.
func IsPairMismatch(err error) bool {
	var pm *PairMismatchError
	return errors.As(err, &pm)
}

// Inputs are the artifacts one composition draws from. FSBL is the zero
// value for targets without a vendor first-stage loader.
type Inputs struct {
	Loader      Artifact // szl.elf
	FSBL        Artifact // fsbl.elf, optional
	Bitstream   Artifact // top.bit
	FirmwareELF Artifact // <flavor>.elf, packed into boot.bin
	FirmwareBin Artifact // <flavor>.bin, linked for JTAG boot
}

// HasFSBL reports whether a vendor first-stage loader is available.
func (in *Inputs) HasFSBL() bool {
	return in.FSBL.Path != ""
}

// Validate checks that every input belongs to the same build and that the
// files actually exist. The firmware ELF anchors the expected pair.
func (in *Inputs) Validate() error {
	target := in.FirmwareELF.Target
	variant := in.FirmwareELF.Variant
	if target == "" || variant == "" {
		return fmt.Errorf("firmware input has no target/variant identity")
	}
	want := target + "/" + variant

	if in.FirmwareBin.Target != target || in.FirmwareBin.Variant != variant {
		return &PairMismatchError{Role: "firmware", Want: want, Got: in.FirmwareBin.pair()}
	}
	if in.Bitstream.Target != target || in.Bitstream.Variant != variant {
		return &PairMismatchError{Role: "bitstream", Want: want, Got: in.Bitstream.pair()}
	}
	if in.Loader.Target != target {
		return &PairMismatchError{Role: "loader", Want: want, Got: in.Loader.pair()}
	}
	if in.HasFSBL() && in.FSBL.Target != target {
		return &PairMismatchError{Role: "fsbl", Want: want, Got: in.FSBL.pair()}
	}

	for _, f := range []struct {
		role string
		path string
	}{
		{"loader", in.Loader.Path},
		{"bitstream", in.Bitstream.Path},
		{"firmware ELF", in.FirmwareELF.Path},
		{"firmware binary", in.FirmwareBin.Path},
	} {
		if f.path == "" {
			return fmt.Errorf("%s input is required", f.role)
		}
		if _, err := os.Stat(f.path); err != nil {
			return fmt.Errorf("%s input missing: %s", f.role, f.path)
		}
	}

	if in.HasFSBL() {
		if _, err := os.Stat(in.FSBL.Path); err != nil {
			return fmt.Errorf("fsbl input missing: %s", in.FSBL.Path)
		}
	}

	return nil
}
