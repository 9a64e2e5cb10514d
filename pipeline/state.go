package pipeline

import "github.com/pkg/errors"

// State is a step of a pipeline run.
type State string

// State constants
const (
	StateIdle              State = "Idle"
	StateProbing           State = "Probing"
	StateSelectingStrategy State = "SelectingStrategy"
	StateAcquiring         State = "Acquiring"
	StateDecoding          State = "Decoding"
	StateTransforming      State = "Transforming"
	StateEncoding          State = "Encoding"
	StateReplacing         State = "Replacing"
	StateDone              State = "Done"
	StateError             State = "Error"
)

// IsTerminal reports whether the state ends a run.
func IsTerminal(s State) bool {
	return s == StateDone || s == StateError
}

// itemStates are the per-target steps; any of them may move on to acquiring the
// next target, finish the pass, fail, or hand over to a fallback strategy.
var itemStates = map[State]State{
	StateDecoding:     StateTransforming,
	StateTransforming: StateEncoding,
	StateEncoding:     StateReplacing,
	StateReplacing:    "",
}

func isAllowedTransition(from, to State) bool {
	if to == StateError {
		return !IsTerminal(from)
	}
	switch from {
	case StateIdle:
		return to == StateProbing
	case StateProbing:
		return to == StateSelectingStrategy
	case StateSelectingStrategy:
		return to == StateAcquiring
	case StateAcquiring:
		// Done covers a batch whose last target failed to load.
		return to == StateDecoding || to == StateSelectingStrategy || to == StateDone
	}
	if next, ok := itemStates[from]; ok {
		return to == next || to == StateAcquiring || to == StateDone || to == StateSelectingStrategy
	}
	return false
}

// machine tracks the state of one run and records every state it passes through.
type machine struct {
	cur   State
	trace []State
}

func newMachine() *machine {
	return &machine{cur: StateIdle, trace: []State{StateIdle}}
}

// to performs a validated transition.
func (m *machine) to(next State) error {
	if !isAllowedTransition(m.cur, next) {
		return errors.Errorf("disallowed transition: %s -> %s", m.cur, next)
	}
	m.cur = next
	m.trace = append(m.trace, next)
	return nil
}

// fail moves to Error unless the run already ended.
func (m *machine) fail() {
	if !IsTerminal(m.cur) {
		m.cur = StateError
		m.trace = append(m.trace, StateError)
	}
}

func (m *machine) state() State { return m.cur }
