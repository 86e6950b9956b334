package amodel

import "fmt"

// PhoneContext identifies which cross-word context slot a pseudo-phone
// covers: a biphone "L-C", a biphone "C+R", or a bare monophone "C".
type PhoneContext int

const (
	// ContextLeft is the "L-C" biphone: C in the context of a left neighbor.
	ContextLeft PhoneContext = iota
	// ContextRight is the "C+R" biphone: C in the context of a right neighbor.
	ContextRight
	// ContextMono is the bare monophone "C" with no context.
	ContextMono
)

// PseudoHMMSet is the synthetic HMM built for a biphone or monophone with no
// explicit definition (spec §3): the k-th state is the union (CDStateSet) of
// the k-th states of every logical HMM sharing the relevant left context,
// right context, or base phone. Its transition matrix borrows that of the
// first contributing HMM.
type PseudoHMMSet struct {
	Base       string
	Context    PhoneContext
	Neighbor   string // the L or R phone name; empty for ContextMono
	PooledSets []*CDStateSet
	A          [][]LogProb
}

// NumStates returns the number of pooled states including the two
// non-emitting ends (which are not pooled, just copied from the donor HMM).
func (p *PseudoHMMSet) NumStates() int { return len(p.PooledSets) }

// BuildPseudoHMMSet pools the k-th states of contributors into CD_State_Set
// entries and borrows the transition matrix of contributors[0].
func BuildPseudoHMMSet(base string, ctx PhoneContext, neighbor string, contributors []*PhysicalHMM, nextSid func() StateID) (*PseudoHMMSet, error) {
	if len(contributors) == 0 {
		return nil, fmt.Errorf("amodel: pseudo set %q has no contributors", base)
	}
	n := contributors[0].NumStates()
	for _, c := range contributors {
		if c.NumStates() != n {
			return nil, fmt.Errorf("amodel: pseudo set %q contributors disagree on state count (%d vs %d in %q)", base, n, c.NumStates(), c.Name)
		}
	}
	pooled := make([]*CDStateSet, n)
	for k := 0; k < n; k++ {
		if k == 0 || k == n-1 {
			// Non-emitting ends are not pooled; keep a trivial single-member set
			// so index arithmetic stays uniform across the whole HMM.
			pooled[k] = &CDStateSet{Sid: nextSid(), Members: []*State{contributors[0].States[k]}}
			continue
		}
		members := make([]*State, 0, len(contributors))
		for _, c := range contributors {
			members = append(members, c.States[k])
		}
		pooled[k] = &CDStateSet{Sid: nextSid(), Members: members}
	}
	return &PseudoHMMSet{
		Base:       base,
		Context:    ctx,
		Neighbor:   neighbor,
		PooledSets: pooled,
		A:          contributors[0].A,
	}, nil
}

// Name renders the pseudo-phone's canonical string form, e.g. "a-k" for a
// left-context biphone, "k+e" for right-context, or "k" for a monophone.
func (p *PseudoHMMSet) Name() string {
	switch p.Context {
	case ContextLeft:
		return p.Neighbor + "-" + p.Base
	case ContextRight:
		return p.Base + "+" + p.Neighbor
	default:
		return p.Base
	}
}
