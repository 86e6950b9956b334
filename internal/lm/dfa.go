package lm

import "fmt"

// CategoryID indexes a word category in a DFA grammar.
type CategoryID int32

// DFAStateID indexes a grammar state.
type DFAStateID int32

// Arc is an outgoing transition labeled with a word category (spec §3).
type Arc struct {
	Category CategoryID
	Next     DFAStateID
}

// DFAState is one grammar state: its outgoing arcs plus initial/accepting flags.
type DFAState struct {
	Arcs     []Arc
	Initial  bool
	Accept   bool
}

// DFA is a finite-state category grammar (spec §3).
type DFA struct {
	States []DFAState
	// cpair[c] is the set of categories that may legally precede
	// category c — the category-pair constraint, precomputed once at load
	// (spec §4 supplemented feature, grounded on cpair.c) instead of
	// derived by walking arcs during search.
	cpair map[CategoryID]map[CategoryID]bool
	// beginAllowed / endAllowed are the category sets permitted at
	// sentence begin/end.
	beginAllowed map[CategoryID]bool
	endAllowed   map[CategoryID]bool
}

// NewDFA builds category-pair, begin, and end tables from the raw state
// list by walking every arc once (spec §4: this replaces repeated
// arc-walking at search time with an O(1) CanPrecede check).
func NewDFA(states []DFAState) *DFA {
	d := &DFA{
		States:       states,
		cpair:        make(map[CategoryID]map[CategoryID]bool),
		beginAllowed: make(map[CategoryID]bool),
		endAllowed:   make(map[CategoryID]bool),
	}
	for from, st := range states {
		for _, arc := range st.Arcs {
			if st.Initial {
				d.beginAllowed[arc.Category] = true
			}
			if int(arc.Next) < len(states) && states[arc.Next].Accept {
				d.endAllowed[arc.Category] = true
			}
			for _, arc2 := range states[arc.Next].Arcs {
				if d.cpair[arc2.Category] == nil {
					d.cpair[arc2.Category] = make(map[CategoryID]bool)
				}
				d.cpair[arc2.Category][arc.Category] = true
			}
			_ = from
		}
	}
	return d
}

// CanPrecede reports whether prev may legally precede next under the
// category-pair constraint.
func (d *DFA) CanPrecede(prev, next CategoryID) bool {
	set, ok := d.cpair[next]
	if !ok {
		return false
	}
	return set[prev]
}

// BeginAllowed reports whether category c may start a sentence.
func (d *DFA) BeginAllowed(c CategoryID) bool { return d.beginAllowed[c] }

// EndAllowed reports whether category c may end a sentence.
func (d *DFA) EndAllowed(c CategoryID) bool { return d.endAllowed[c] }

// Transition returns the next state when category cat is taken from state
// id, or an error if no such arc exists.
func (d *DFA) Transition(id DFAStateID, cat CategoryID) (DFAStateID, error) {
	if int(id) < 0 || int(id) >= len(d.States) {
		return 0, fmt.Errorf("lm: dfa state %d out of range", id)
	}
	for _, arc := range d.States[id].Arcs {
		if arc.Category == cat {
			return arc.Next, nil
		}
	}
	return 0, fmt.Errorf("lm: no arc for category %d from state %d", cat, id)
}

// IsAccepting reports whether id is a final-accepting state.
func (d *DFA) IsAccepting(id DFAStateID) bool {
	if int(id) < 0 || int(id) >= len(d.States) {
		return false
	}
	return d.States[id].Accept
}
