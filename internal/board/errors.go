package board

import (
	"fmt"
	"strings"
)

// UnknownTargetError indicates a target name that is not in the registry.
type UnknownTargetError struct {
	Target string
	Known  []string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("unknown target '%s' (known targets: %s)", e.Target, strings.Join(e.Known, ", "))
}

// UnknownVariantError indicates a variant name that is not valid for the
// given target. The pair is rejected before any build starts.
type UnknownVariantError struct {
	Target  string
	Variant string
	Known   []string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown variant '%s' for target '%s' (valid variants: %s)",
		e.Variant, e.Target, strings.Join(e.Known, ", "))
}

// IsUnknownTarget returns true if the error is an UnknownTargetError.
func IsUnknownTarget(err error) bool {
	_, ok := err.(*UnknownTargetError)
	return ok
}

// IsUnknownVariant returns true if the error is an UnknownVariantError.
func IsUnknownVariant(err error) bool {
	_, ok := err.(*UnknownVariantError)
	return ok
}
