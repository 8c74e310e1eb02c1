package build

import (
	"github.com/dyluth/zforge/internal/board"
)

// variantArgs is the one place the description-versus-variant choice is
// made: a variant with an explicit hardware description is built from the
// description alone, and the variant flag is never emitted alongside it.
func variantArgs(res board.Resolution) []string {
	if res.Variant.Description != "" {
		return []string{"-c", res.Variant.Description}
	}
	return []string{"-V", res.Variant.Name}
}

// FirmwareArgs assembles the firmware tool argv for one resolved pair.
// The tool is told the target, the firmware flavor to produce, the variant
// (or its hardware description) and the output directory.
func FirmwareArgs(base []string, res board.Resolution, outDir string) []string {
	args := append([]string{}, base...)
	args = append(args, "-t", res.Target.Name, "-f", string(res.Flavor))
	args = append(args, variantArgs(res)...)
	return append(args, "-o", outDir)
}

// GatewareArgs assembles the gateware tool argv for one resolved pair.
// Gateware is flavor-independent but still varies per variant, so the same
// variant selection applies.
func GatewareArgs(base []string, res board.Resolution, outDir string) []string {
	args := append([]string{}, base...)
	args = append(args, "-t", res.Target.Name)
	args = append(args, variantArgs(res)...)
	return append(args, "-o", outDir)
}
