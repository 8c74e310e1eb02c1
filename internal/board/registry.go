package board

import (
	"fmt"
)

// Registry is an immutable set of board definitions. All resolution happens
// against an explicit registry value rather than ambient package state, so
// tests can run against synthetic board matrices.
type Registry struct {
	targets map[string]Target
	order   []string
}

// NewRegistry builds a registry from explicit target definitions.
// Variants with an empty flavor get one derived from the satellite-variant
// set. Returns an error for duplicate targets or invalid definitions.
func NewRegistry(targets []Target) (*Registry, error) {
	r := &Registry{
		targets: make(map[string]Target, len(targets)),
	}
	for _, t := range targets {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.targets[t.Name]; exists {
			return nil, fmt.Errorf("duplicate target '%s'", t.Name)
		}
		// Fill in derived flavors on our own copy of the variant slice so
		// the caller's definitions stay untouched.
		variants := make([]Variant, len(t.Variants))
		copy(variants, t.Variants)
		for i := range variants {
			if variants[i].Flavor == "" {
				variants[i].Flavor = DeriveFlavor(variants[i].Name)
			}
		}
		t.Variants = variants
		r.targets[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	if len(r.order) == 0 {
		return nil, fmt.Errorf("no targets defined")
	}
	return r, nil
}

// DefaultRegistry returns the built-in board matrix: the boards the stock
// toolchains know how to build, with their full variant sets.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultTargets())
	if err != nil {
		// The built-in table is validated by tests; a failure here is a
		// programming error, not an input error.
		panic(fmt.Sprintf("built-in board table invalid: %v", err))
	}
	return r
}

// defaultTargets defines the stock board matrix.
//
// zc706 carries the NIST CLOCK and QC2 hardware configurations, each in
// standalone, master, and satellite roles, plus the ACPKI forms of all six.
// kasli_soc is role-only (its hardware layout comes from a JSON system
// description). ebaz4205 is standalone-only.
func defaultTargets() []Target {
	zc706Variants := []Variant{
		{Name: "nist_clock"},
		{Name: "nist_clock_master"},
		{Name: "nist_clock_satellite"},
		{Name: "nist_qc2"},
		{Name: "nist_qc2_master"},
		{Name: "nist_qc2_satellite"},
		{Name: "acpki_nist_clock"},
		{Name: "acpki_nist_clock_master"},
		{Name: "acpki_nist_clock_satellite"},
		{Name: "acpki_nist_qc2"},
		{Name: "acpki_nist_qc2_master"},
		{Name: "acpki_nist_qc2_satellite"},
	}

	return []Target{
		{
			Name:         "zc706",
			SupportsFSBL: true,
			Variants:     zc706Variants,
		},
		{
			Name: "kasli_soc",
			Variants: []Variant{
				{Name: "master"},
				{Name: "satellite"},
			},
		},
		{
			Name: "ebaz4205",
			Variants: []Variant{
				{Name: "standalone"},
			},
		},
	}
}

// Targets returns the registry's targets in definition order.
func (r *Registry) Targets() []Target {
	out := make([]Target, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.targets[name])
	}
	return out
}

// Target looks up a single target by name.
func (r *Registry) Target(name string) (Target, error) {
	t, ok := r.targets[name]
	if !ok {
		return Target{}, &UnknownTargetError{Target: name, Known: r.order}
	}
	return t, nil
}

// Resolution is the result of resolving a (target, variant) pair: which
// firmware image to build and whether the board takes the FSBL boot chain.
type Resolution struct {
	Target       Target
	Variant      Variant
	Flavor       Flavor
	RequiresFSBL bool
}

// Pair returns the "target/variant" form used in output paths and logs.
func (res Resolution) Pair() string {
	return res.Target.Name + "/" + res.Variant.Name
}

// Resolve maps a (target, variant) pair to its firmware flavor and boot
// chain requirements. Pure lookup over the registry tables; returns
// UnknownTargetError or UnknownVariantError for invalid pairs.
func (r *Registry) Resolve(target, variant string) (Resolution, error) {
	t, err := r.Target(target)
	if err != nil {
		return Resolution{}, err
	}
	for _, v := range t.Variants {
		if v.Name == variant {
			return Resolution{
				Target:       t,
				Variant:      v,
				Flavor:       v.Flavor,
				RequiresFSBL: t.SupportsFSBL,
			}, nil
		}
	}
	known := make([]string, 0, len(t.Variants))
	for _, v := range t.Variants {
		known = append(known, v.Name)
	}
	return Resolution{}, &UnknownVariantError{Target: target, Variant: variant, Known: known}
}
