package hwtest

import (
	"context"
	"time"
)

// Boards expose no readiness signal over the power or deploy channels,
// so the sequence waits fixed settle times instead of polling. The
// delays are part of the bench protocol, not per-call tunables.
const (
	// PowerSettle follows each power pulse: after the off pulse it lets
	// the rails drain, after the on pulse it lets the relay and the PSU
	// stabilize before anything touches the board.
	PowerSettle = 5 * time.Second

	// BootSettle is how long a freshly armed board gets to boot before
	// the test command starts. Nothing reports boot completion, so the
	// run waits this out and hopes; a slow boot fails the test run.
	BootSettle = 15 * time.Second
)

// Clock abstracts time for the orchestrator so tests can run the fixed
// settle delays without waiting them out.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is cancelled, returning ctx.Err()
	// in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// NewClock returns the wall clock.
func NewClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
