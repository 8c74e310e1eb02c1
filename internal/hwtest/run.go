package hwtest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dyluth/zforge/internal/registry"
	"github.com/dyluth/zforge/internal/toolchain"
	"github.com/dyluth/zforge/pkg/boardlock"
)

const (
	// testTimeout bounds the acceptance test command.
	testTimeout = 30 * time.Minute

	// teardownTimeout bounds the final power-off. Teardown runs on its
	// own context so a cancelled run still powers the board off.
	teardownTimeout = 10 * time.Second
)

// Lease is a held exclusive board lock. Release is idempotent.
type Lease interface {
	Release()
}

// Locker grants exclusive board leases, blocking until granted.
type Locker interface {
	Acquire(ctx context.Context, boardID string) (Lease, error)
}

// NewLocker adapts a boardlock client to the Locker interface.
func NewLocker(c *boardlock.Client) Locker {
	return lockClient{c}
}

type lockClient struct {
	c *boardlock.Client
}

func (l lockClient) Acquire(ctx context.Context, boardID string) (Lease, error) {
	lease, err := l.c.Acquire(ctx, boardID)
	if err != nil {
		return nil, err
	}
	return lease, nil
}

// ImageDeployer pushes a boot image into a board's slot and arms it.
type ImageDeployer interface {
	Deploy(ctx context.Context, boardID, image string) error
}

// RunRecorder persists test outcomes. The registry client satisfies it.
type RunRecorder interface {
	RecordTest(ctx context.Context, rec *registry.TestRecord) error
}

// RunSpec describes one hardware test run.
type RunSpec struct {
	RunID   string          // assigned from a fresh UUID when empty
	BoardID string          // physical unit on the bench, keys the lock
	Target  string          // board target the image was built for
	Variant string          // variant the image was built for
	Image   string          // path to the composed boot image
	Power   PowerController // the board's power relay
	Runner  []string        // acceptance test command, run locally
}

func (s *RunSpec) validate() error {
	if s.BoardID == "" {
		return fmt.Errorf("hardware run missing board id")
	}
	if s.Target == "" || s.Variant == "" {
		return fmt.Errorf("hardware run missing target/variant")
	}
	if s.Image == "" {
		return fmt.Errorf("hardware run missing boot image path")
	}
	if s.Power == nil {
		return fmt.Errorf("hardware run missing power controller")
	}
	if len(s.Runner) == 0 {
		return fmt.Errorf("hardware run missing test runner command")
	}
	return nil
}

// Outcome is the result of a completed hardware run. A failed test is a
// verdict, not an error: Run returns a non-nil error only when the spec
// itself is unusable.
type Outcome struct {
	RunID       string
	BoardID     string
	Target      string
	Variant     string
	Final       State
	Reason      string // why the run failed, empty on a pass
	Transitions []Transition
	Duration    time.Duration
}

// Passed reports whether the run ended in StatePassed.
func (o *Outcome) Passed() bool {
	return o.Final == StatePassed
}

// Orchestrator drives firmware images through the bench sequence: lease
// the board, power cycle, deploy, wait out the boot, run the acceptance
// test, then power off and release.
type Orchestrator struct {
	locker   Locker
	deployer ImageDeployer
	exec     toolchain.Runner
	clock    Clock
	recorder RunRecorder
}

// Options configure an Orchestrator. Clock defaults to the wall clock;
// Recorder may be nil to skip the registry.
type Options struct {
	Locker   Locker
	Deployer ImageDeployer
	Exec     toolchain.Runner
	Clock    Clock
	Recorder RunRecorder
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	clock := opts.Clock
	if clock == nil {
		clock = NewClock()
	}
	return &Orchestrator{
		locker:   opts.Locker,
		deployer: opts.Deployer,
		exec:     opts.Exec,
		clock:    clock,
		recorder: opts.Recorder,
	}
}

// Run executes one hardware test run and returns its Outcome. The board
// lease is released and a final power-off pulse sent on every exit path
// once the lease has been granted.
func (o *Orchestrator) Run(ctx context.Context, spec RunSpec) (*Outcome, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(spec.Image); err != nil {
		return nil, fmt.Errorf("boot image not found: %s (build %s/%s first)", spec.Image, spec.Target, spec.Variant)
	}
	if spec.RunID == "" {
		spec.RunID = uuid.New().String()
	}

	started := o.clock.Now()
	m := newMachine(spec.RunID, o.clock)
	reason := o.execute(ctx, m, spec)

	outcome := &Outcome{
		RunID:       spec.RunID,
		BoardID:     spec.BoardID,
		Target:      spec.Target,
		Variant:     spec.Variant,
		Final:       m.state,
		Reason:      reason,
		Transitions: m.transitions(),
		Duration:    o.clock.Now().Sub(started),
	}
	o.record(ctx, outcome)
	return outcome, nil
}

// execute walks the run through the state machine and returns the
// failure reason, empty when the test passed. Once the lease is granted
// the only route to a terminal state is through LockReleasing, where
// the board is powered off and the lease released.
func (o *Orchestrator) execute(ctx context.Context, m *machine, spec RunSpec) string {
	m.to(StateLockAcquiring)
	log.Printf("[INFO] hwtest: run %s: waiting for exclusive lease on board %s", spec.RunID, spec.BoardID)
	lease, err := o.locker.Acquire(ctx, spec.BoardID)
	if err != nil {
		m.to(StateFailed)
		return fmt.Sprintf("failed to acquire lock on board %s: %v", spec.BoardID, err)
	}
	// Release is idempotent; the defer covers panic exits.
	defer lease.Release()
	m.to(StateLockHeld)

	reason := o.runOnBoard(ctx, m, spec)

	m.to(StateLockReleasing)
	offCtx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	if err := spec.Power.Off(offCtx); err != nil {
		log.Printf("[WARN] hwtest: run %s: teardown power-off failed for board %s: %v", spec.RunID, spec.BoardID, err)
	}
	lease.Release()

	if reason != "" {
		m.to(StateFailed)
		return reason
	}
	m.to(StatePassed)
	return ""
}

// runOnBoard performs the powered part of the sequence. Any failure
// aborts the remaining steps; teardown is the caller's job.
func (o *Orchestrator) runOnBoard(ctx context.Context, m *machine, spec RunSpec) string {
	m.to(StatePowerCycling)
	if reason := o.powerCycle(ctx, spec.Power); reason != "" {
		return reason
	}

	m.to(StateDeploying)
	if err := o.deployer.Deploy(ctx, spec.BoardID, spec.Image); err != nil {
		return err.Error()
	}

	m.to(StateBooting)
	if err := o.clock.Sleep(ctx, BootSettle); err != nil {
		return fmt.Sprintf("interrupted while waiting for boot: %v", err)
	}

	m.to(StateTestRunning)
	return o.runTest(ctx, spec)
}

// powerCycle sends the off pulse, lets the rails drain, sends the on
// pulse and lets the supply settle.
func (o *Orchestrator) powerCycle(ctx context.Context, power PowerController) string {
	if err := power.Off(ctx); err != nil {
		return fmt.Sprintf("power-off failed: %v", err)
	}
	if err := o.clock.Sleep(ctx, PowerSettle); err != nil {
		return fmt.Sprintf("interrupted during power settle: %v", err)
	}
	if err := power.On(ctx); err != nil {
		return fmt.Sprintf("power-on failed: %v", err)
	}
	if err := o.clock.Sleep(ctx, PowerSettle); err != nil {
		return fmt.Sprintf("interrupted during power settle: %v", err)
	}
	return ""
}

// runTest executes the acceptance test command. A non-zero exit is the
// board failing the test, not the bench breaking.
func (o *Orchestrator) runTest(ctx context.Context, spec RunSpec) string {
	inv := toolchain.Invocation{
		Tool:    "test-runner",
		Pair:    spec.Target + "/" + spec.Variant,
		Command: spec.Runner,
		Env: []string{
			"ZFORGE_BOARD=" + spec.BoardID,
			"ZFORGE_TARGET=" + spec.Target,
			"ZFORGE_VARIANT=" + spec.Variant,
		},
		Timeout: testTimeout,
	}
	result, err := o.exec.Run(ctx, inv)
	if err != nil {
		var te *toolchain.ToolError
		if errors.As(err, &te) && te.ExitCode > 0 {
			return fmt.Sprintf("test runner reported failure (exit %d)", te.ExitCode)
		}
		return fmt.Sprintf("test runner did not complete: %v", err)
	}
	log.Printf("[INFO] hwtest: run %s: test runner passed in %s", spec.RunID, result.Duration)
	return ""
}

// record persists the outcome to the registry when one is configured.
func (o *Orchestrator) record(ctx context.Context, out *Outcome) {
	if o.recorder == nil {
		return
	}
	rec := &registry.TestRecord{
		RunID:         out.RunID,
		BoardID:       out.BoardID,
		Target:        out.Target,
		Variant:       out.Variant,
		Outcome:       registry.TestOutcomePassed,
		DurationMs:    out.Duration.Milliseconds(),
		CompletedAtMs: o.clock.Now().UnixMilli(),
	}
	if !out.Passed() {
		rec.Outcome = registry.TestOutcomeFailed
		rec.Reason = out.Reason
	}
	if err := o.recorder.RecordTest(ctx, rec); err != nil {
		log.Printf("[WARN] hwtest: run %s: failed to record test outcome: %v", out.RunID, err)
	}
}
