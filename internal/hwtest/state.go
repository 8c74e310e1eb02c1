// Package hwtest runs firmware acceptance tests on shared lab boards: it
// takes the board's exclusive lease, power cycles, deploys a composed boot
// image, waits out the boot, runs the external test command and records
// the verdict.
//
// Every run moves through an explicit state machine. The lock release and
// the final power-off are structural: the only route to a terminal state
// after the lease is granted runs through LockReleasing, where both
// happen.
package hwtest

import (
	"fmt"
	"log"
	"time"
)

// State is one phase of a hardware run.
type State string

const (
	StateIdle          State = "idle"
	StateLockAcquiring State = "lock_acquiring"
	StateLockHeld      State = "lock_held"
	StatePowerCycling  State = "power_cycling"
	StateDeploying     State = "deploying"
	StateBooting       State = "booting"
	StateTestRunning   State = "test_running"
	StateLockReleasing State = "lock_releasing"
	StatePassed        State = "passed"
	StateFailed        State = "failed"
)

// validTransitions defines the allowed state changes. Failures after the
// lease is granted route through LockReleasing, never straight to Failed;
// only a failed acquisition skips it, because there is nothing to release.
var validTransitions = map[State][]State{
	StateIdle:          {StateLockAcquiring},
	StateLockAcquiring: {StateLockHeld, StateFailed},
	StateLockHeld:      {StatePowerCycling},
	StatePowerCycling:  {StateDeploying, StateLockReleasing},
	StateDeploying:     {StateBooting, StateLockReleasing},
	StateBooting:       {StateTestRunning, StateLockReleasing},
	StateTestRunning:   {StateLockReleasing},
	StateLockReleasing: {StatePassed, StateFailed},
	StatePassed:        {},
	StateFailed:        {},
}

// CanTransition checks whether a state change is allowed.
func CanTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func IsTerminal(state State) bool {
	return len(validTransitions[state]) == 0
}

// Transition is one recorded state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// machine tracks a run's current state and its transition history,
// rejecting moves the table does not allow.
type machine struct {
	runID   string
	state   State
	history []Transition
	clock   Clock
}

func newMachine(runID string, clock Clock) *machine {
	return &machine{runID: runID, state: StateIdle, clock: clock}
}

func (m *machine) to(next State) error {
	if !CanTransition(m.state, next) {
		return fmt.Errorf("invalid state transition: %s -> %s", m.state, next)
	}
	m.history = append(m.history, Transition{From: m.state, To: next, At: m.clock.Now()})
	log.Printf("[INFO] hwtest: run %s: %s -> %s", m.runID, m.state, next)
	m.state = next
	return nil
}

// transitions returns a copy of the recorded history.
func (m *machine) transitions() []Transition {
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}
