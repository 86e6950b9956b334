package lexicon

import "github.com/example/lvcsr-decode/internal/amodel"

// numStates returns the slot's total state count (including the two
// non-emitting ends), regardless of whether it resolved to a fixed logical
// HMM or a pooled cross-word set.
func (s PhoneSlot) numStates() int {
	if s.Plain != nil {
		return s.Plain.NumStates()
	}
	return s.Boundary.NumStates()
}

func (s PhoneSlot) transition(i, j int) amodel.LogProb {
	if s.Plain != nil {
		return s.Plain.TransitionLogProb(i, j)
	}
	return s.Boundary.A[i][j]
}

// emissionKind reports which kind of WCHMM node the slot's k-th emitting
// state becomes.
func (s PhoneSlot) emissionKind() EmissionKind {
	if s.Plain != nil {
		return EmitPlain
	}
	switch s.Boundary.Context {
	case amodel.ContextLeft:
		// Left neighbor is known, right neighbor is pooled: the node's score
		// depends on the (unresolved) right context.
		return EmitRightContextSet
	case amodel.ContextRight:
		return EmitLeftContextSet
	default:
		return EmitBothContextSet
	}
}

// stateAt returns the k-th emitting state directly when the slot resolved
// to a fixed logical HMM, or nil plus the pooled set otherwise.
func (s PhoneSlot) stateAt(k int) (*amodel.State, *amodel.CDStateSet) {
	if s.Plain != nil {
		if s.Plain.Kind == amodel.LogicalPseudo {
			return nil, s.Plain.Pseudo.PooledSets[k]
		}
		return s.Plain.Physical.States[k], nil
	}
	return nil, s.Boundary.PooledSets[k]
}
