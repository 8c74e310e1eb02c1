package registry

import "fmt"

// Build statuses recorded in the registry.
const (
	BuildStatusOK     = "ok"
	BuildStatusFailed = "failed"
)

// Test outcomes recorded in the registry.
const (
	TestOutcomePassed = "passed"
	TestOutcomeFailed = "failed"
)

// BuildRecord is the registry's view of one build attempt for a
// (target, variant) pair. Only the latest attempt per pair is kept.
type BuildRecord struct {
	Target        string   `json:"target"`
	Variant       string   `json:"variant"`
	Flavor        string   `json:"flavor"`
	Ident         string   `json:"ident,omitempty"` // identity stamp baked into the firmware
	Status        string   `json:"status"`
	Error         string   `json:"error,omitempty"`
	Products      []string `json:"products,omitempty"`
	DurationMs    int64    `json:"duration_ms"`
	CompletedAtMs int64    `json:"completed_at_ms"`
}

// Pair returns the "target/variant" identity of the record.
func (r *BuildRecord) Pair() string {
	return r.Target + "/" + r.Variant
}

// Validate checks required fields and the status enum.
func (r *BuildRecord) Validate() error {
	if r.Target == "" {
		return fmt.Errorf("build record missing target")
	}
	if r.Variant == "" {
		return fmt.Errorf("build record missing variant")
	}
	if r.Status != BuildStatusOK && r.Status != BuildStatusFailed {
		return fmt.Errorf("invalid build status: %s (must be '%s' or '%s')", r.Status, BuildStatusOK, BuildStatusFailed)
	}
	if r.Status == BuildStatusFailed && r.Error == "" {
		return fmt.Errorf("failed build record missing error")
	}
	return nil
}

// TestRecord is the outcome of one hardware test run on a bench board.
type TestRecord struct {
	RunID         string `json:"run_id"`
	BoardID       string `json:"board_id"`
	Target        string `json:"target"`
	Variant       string `json:"variant"`
	Outcome       string `json:"outcome"`
	Reason        string `json:"reason,omitempty"` // failure detail, empty on pass
	DurationMs    int64  `json:"duration_ms"`
	CompletedAtMs int64  `json:"completed_at_ms"`
}

// Validate checks required fields and the outcome enum.
func (r *TestRecord) Validate() error {
	if r.RunID == "" {
		return fmt.Errorf("test record missing run_id")
	}
	if r.BoardID == "" {
		return fmt.Errorf("test record missing board_id")
	}
	if r.Target == "" {
		return fmt.Errorf("test record missing target")
	}
	if r.Variant == "" {
		return fmt.Errorf("test record missing variant")
	}
	if r.Outcome != TestOutcomePassed && r.Outcome != TestOutcomeFailed {
		return fmt.Errorf("invalid test outcome: %s (must be '%s' or '%s')", r.Outcome, TestOutcomePassed, TestOutcomeFailed)
	}
	if r.Outcome == TestOutcomeFailed && r.Reason == "" {
		return fmt.Errorf("failed test record missing reason")
	}
	return nil
}
