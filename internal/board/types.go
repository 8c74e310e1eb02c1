package board

import (
	"fmt"
	"strings"
)

// Flavor identifies which firmware image a variant boots.
// Satellite variants run the DRTIO satellite manager ("satman"); every
// other variant runs the full runtime.
type Flavor string

const (
	FlavorRuntime Flavor = "runtime"
	FlavorSatman  Flavor = "satman"
)

// Validate checks that the flavor is one of the two known firmware images.
func (f Flavor) Validate() error {
	if f != FlavorRuntime && f != FlavorSatman {
		return fmt.Errorf("invalid flavor: %s (must be '%s' or '%s')", f, FlavorRuntime, FlavorSatman)
	}
	return nil
}

// satelliteVariants is the fixed set of variant names that boot the
// satellite manager instead of the runtime. Membership is by exact name,
// not by suffix matching.
var satelliteVariants = map[string]bool{
	"satellite":                  true,
	"nist_clock_satellite":       true,
	"nist_qc2_satellite":         true,
	"acpki_nist_clock_satellite": true,
	"acpki_nist_qc2_satellite":   true,
}

// DeriveFlavor returns the firmware flavor for a variant name according to
// the satellite-variant set.
func DeriveFlavor(variant string) Flavor {
	if satelliteVariants[variant] {
		return FlavorSatman
	}
	return FlavorRuntime
}

// Variant is one buildable configuration of a target board.
type Variant struct {
	// Name identifies the variant within its target (e.g. "nist_qc2_satellite").
	Name string

	// Flavor is the firmware image this variant boots. Derived from the
	// satellite-variant set when left empty at registry construction.
	Flavor Flavor

	// Description optionally points at a JSON hardware description. When
	// set, the firmware toolchain is driven by the description instead of
	// the variant flag.
	Description string
}

// Validate performs validation on a single variant definition.
func (v Variant) Validate() error {
	if err := validateIdentifier("variant", v.Name); err != nil {
		return err
	}
	if v.Flavor != "" {
		if err := v.Flavor.Validate(); err != nil {
			return fmt.Errorf("variant '%s': %w", v.Name, err)
		}
	}
	return nil
}

// Target is a supported board model together with its valid variants.
type Target struct {
	// Name is the board target identifier (e.g. "zc706", "kasli_soc").
	Name string

	// SupportsFSBL is true for boards whose vendor board support package
	// provides a full first-stage boot loader. Such boards get an extra
	// FSBL-chained SD image alongside the regular one.
	SupportsFSBL bool

	// Variants lists the valid variants in presentation order.
	Variants []Variant
}

// Validate performs validation on a target definition, including all of
// its variants.
func (t Target) Validate() error {
	if err := validateIdentifier("target", t.Name); err != nil {
		return err
	}
	if len(t.Variants) == 0 {
		return fmt.Errorf("target '%s': no variants defined", t.Name)
	}
	seen := make(map[string]bool, len(t.Variants))
	for _, v := range t.Variants {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("target '%s': %w", t.Name, err)
		}
		if seen[v.Name] {
			return fmt.Errorf("target '%s': duplicate variant '%s'", t.Name, v.Name)
		}
		seen[v.Name] = true
	}
	return nil
}

// validateIdentifier enforces the naming rules shared by target and
// variant names: lowercase alphanumeric with underscores, no leading or
// trailing underscore.
func validateIdentifier(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", kind)
	}
	if strings.HasPrefix(name, "_") || strings.HasSuffix(name, "_") {
		return fmt.Errorf("%s name '%s' is invalid: underscores allowed only between characters", kind, name)
	}
	for _, r := range name {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
		if !ok {
			return fmt.Errorf("%s name '%s' is invalid: must be lowercase alphanumeric with underscores", kind, name)
		}
	}
	return nil
}
