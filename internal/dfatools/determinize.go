// Package dfatools provides grammar-graph transforms for internal/lm.DFA
// values built by the lexicon-tools command: subset-construction
// determinization and partition-refinement minimization, independently
// written in Go rather than ported line-for-line (dfa_determinize.c and
// dfa_minimize.c represent states as bitmaps over a fixed array and have no
// Go-shaped equivalent to port; the state-set and partition-refinement
// algorithms they implement are reproduced here against internal/lm.DFA's
// exported Arc/DFAState shape).
package dfatools

import (
	"sort"
	"strconv"
	"strings"

	"github.com/example/lvcsr-decode/internal/lm"
)

// stateSet is a sorted, deduplicated list of original state indices,
// canonicalized into a string key for subset-identity lookups.
type stateSet []int

func (s stateSet) key() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func newStateSet(indices map[int]bool) stateSet {
	s := make(stateSet, 0, len(indices))
	for i := range indices {
		s = append(s, i)
	}
	sort.Ints(s)
	return s
}

// subsetNode is one state of the determinized automaton: the set of
// original states it represents and the index it was assigned.
type subsetNode struct {
	set   stateSet
	index int
}

// Determinize runs subset construction over d, collapsing any state that
// has more than one outgoing arc for the same category into a single
// merged state reachable by that category (dfa_determinize.c's
// determinize(), state sets here keyed by a sorted index list instead of a
// bitmap over a fixed-size array).
func Determinize(d *lm.DFA) *lm.DFA {
	if d == nil || len(d.States) == 0 {
		return d
	}

	categories := collectCategories(d)

	initial := map[int]bool{}
	for i, st := range d.States {
		if st.Initial {
			initial[i] = true
		}
	}
	if len(initial) == 0 {
		return d
	}

	nodesByKey := map[string]*subsetNode{}
	var nodes []*subsetNode

	intern := func(s stateSet) *subsetNode {
		k := s.key()
		if n, ok := nodesByKey[k]; ok {
			return n
		}
		n := &subsetNode{set: s, index: len(nodes)}
		nodesByKey[k] = n
		nodes = append(nodes, n)
		return n
	}

	type arcRecord struct {
		from int
		cat  lm.CategoryID
		to   int
	}
	var arcRecords []arcRecord

	start := intern(newStateSet(initial))
	queue := []*subsetNode{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, cat := range categories {
			next := map[int]bool{}
			for _, si := range cur.set {
				for _, arc := range d.States[si].Arcs {
					if arc.Category == cat {
						next[int(arc.Next)] = true
					}
				}
			}
			if len(next) == 0 {
				continue
			}
			nextSet := newStateSet(next)
			before := len(nodes)
			nb := intern(nextSet)
			if nb.index >= before {
				queue = append(queue, nb)
			}
			arcRecords = append(arcRecords, arcRecord{from: cur.index, cat: cat, to: nb.index})
		}
	}

	newStates := make([]lm.DFAState, len(nodes))
	for _, n := range nodes {
		accept := false
		for _, si := range n.set {
			if d.States[si].Accept {
				accept = true
				break
			}
		}
		newStates[n.index] = lm.DFAState{Initial: n.index == start.index, Accept: accept}
	}
	for _, a := range arcRecords {
		newStates[a.from].Arcs = append(newStates[a.from].Arcs, lm.Arc{Category: a.cat, Next: lm.DFAStateID(a.to)})
	}

	return lm.NewDFA(newStates)
}

func collectCategories(d *lm.DFA) []lm.CategoryID {
	set := map[lm.CategoryID]bool{}
	for _, st := range d.States {
		for _, arc := range st.Arcs {
			set[arc.Category] = true
		}
	}
	cats := make([]lm.CategoryID, 0, len(set))
	for c := range set {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}
