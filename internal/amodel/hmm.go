package amodel

import "fmt"

// PhysicalHMM is a named, ordered sequence of states. State 0 and the last
// state are non-emitting (the canonical begin/end states); A is the dense
// log-probability transition matrix with LogZero for absent arcs (spec §3).
type PhysicalHMM struct {
	Name   string
	States []*State // States[0] and States[len-1] are non-emitting
	A      [][]LogProb
}

// NumStates returns the total state count including the two non-emitting ends.
func (h *PhysicalHMM) NumStates() int { return len(h.States) }

// EmittingStates returns the interior, emitting states in order.
func (h *PhysicalHMM) EmittingStates() []*State {
	if len(h.States) <= 2 {
		return nil
	}
	return h.States[1 : len(h.States)-1]
}

// IsMultiPath reports whether the HMM has a direct initial->final arc, or
// any arc that skips over an emitting state, beyond the canonical strict
// left-to-right topology (spec §3).
func (h *PhysicalHMM) IsMultiPath() bool {
	n := len(h.A)
	if n == 0 {
		return false
	}
	if n > 1 && h.A[0][n-1] > LogZero {
		return true
	}
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if h.A[i][j] > LogZero {
				return true
			}
		}
	}
	return false
}

// Validate checks the transition matrix shape and the non-emitting-ends
// convention.
func (h *PhysicalHMM) Validate() error {
	n := len(h.States)
	if n < 2 {
		return fmt.Errorf("amodel: hmm %q has fewer than 2 states", h.Name)
	}
	if len(h.A) != n {
		return fmt.Errorf("amodel: hmm %q transition matrix has %d rows, want %d", h.Name, len(h.A), n)
	}
	for i, row := range h.A {
		if len(row) != n {
			return fmt.Errorf("amodel: hmm %q transition row %d has %d cols, want %d", h.Name, i, len(row), n)
		}
	}
	return nil
}

// LogicalKind distinguishes what a LogicalHMM name resolves to.
type LogicalKind int

const (
	// LogicalPhysical means the name resolves to an explicitly defined PhysicalHMM.
	LogicalPhysical LogicalKind = iota
	// LogicalPseudo means the name resolves to a synthesized PseudoHMMSet.
	LogicalPseudo
)

// LogicalHMM is a name the decoder actually references during search; it
// never addresses a PhysicalHMM directly (spec §3).
type LogicalHMM struct {
	Name     string
	Kind     LogicalKind
	Physical *PhysicalHMM  // set when Kind == LogicalPhysical
	Pseudo   *PseudoHMMSet // set when Kind == LogicalPseudo
}

// NumStates returns the number of states along this logical HMM, including
// the two non-emitting ends.
func (l *LogicalHMM) NumStates() int {
	switch l.Kind {
	case LogicalPhysical:
		return l.Physical.NumStates()
	case LogicalPseudo:
		return l.Pseudo.NumStates()
	default:
		return 0
	}
}

// TransitionLogProb returns A[i][j] for this logical HMM. Pseudo sets borrow
// the transition matrix of the first contributing HMM (spec §3).
func (l *LogicalHMM) TransitionLogProb(i, j int) LogProb {
	switch l.Kind {
	case LogicalPhysical:
		return l.Physical.A[i][j]
	case LogicalPseudo:
		return l.Pseudo.A[i][j]
	default:
		return LogZero
	}
}

// EmittingState returns the k-th emitting state (0-based, excluding the
// non-emitting entry state) of a LogicalPhysical HMM. Pass 2's exact
// cross-word rescoring only ever resolves boundary phones down to a
// concrete physical triphone, never a pooled pseudo set, so this is never
// called on a LogicalPseudo HMM.
func (l *LogicalHMM) EmittingState(k int) *State {
	return l.Physical.States[k+1]
}
