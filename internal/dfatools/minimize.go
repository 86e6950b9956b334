package dfatools

import (
	"sort"

	"github.com/example/lvcsr-decode/internal/lm"
)

// Minimize collapses equivalent states of an already-deterministic d using
// Moore's partition-refinement algorithm (dfa_minimize.c's minimize():
// start from the accept/non-accept split and repeatedly refine by
// per-category transition target, stopping when a refinement pass leaves
// the partition unchanged). Call Determinize first if d may be
// nondeterministic; Minimize assumes at most one outgoing arc per category
// from any state.
func Minimize(d *lm.DFA) *lm.DFA {
	if d == nil || len(d.States) == 0 {
		return d
	}

	n := len(d.States)
	categories := collectCategories(d)

	// group[i] is the partition block state i currently belongs to.
	group := make([]int, n)
	for i, st := range d.States {
		if st.Accept {
			group[i] = 1
		} else {
			group[i] = 0
		}
	}

	transition := func(from int, cat lm.CategoryID) int {
		for _, arc := range d.States[from].Arcs {
			if arc.Category == cat {
				return int(arc.Next)
			}
		}
		return -1
	}

	for {
		// signature identifies a state by its current group plus, for every
		// category, the group its transition lands in (-1 for no transition).
		sigIndex := map[string]int{}
		newGroup := make([]int, n)
		nextID := 0

		for i := 0; i < n; i++ {
			sig := signature(group[i], categories, func(cat lm.CategoryID) int {
				t := transition(i, cat)
				if t < 0 {
					return -1
				}
				return group[t]
			})
			id, ok := sigIndex[sig]
			if !ok {
				id = nextID
				nextID++
				sigIndex[sig] = id
			}
			newGroup[i] = id
		}

		changed := false
		for i := range group {
			if group[i] != newGroup[i] {
				changed = true
				break
			}
		}
		group = newGroup
		if !changed {
			break
		}
	}

	numGroups := 0
	for _, g := range group {
		if g+1 > numGroups {
			numGroups = g + 1
		}
	}

	newStates := make([]lm.DFAState, numGroups)
	seenArc := make([]map[lm.CategoryID]bool, numGroups)
	for i := range seenArc {
		seenArc[i] = map[lm.CategoryID]bool{}
	}

	for i, st := range d.States {
		g := group[i]
		if st.Initial {
			newStates[g].Initial = true
		}
		if st.Accept {
			newStates[g].Accept = true
		}
		for _, arc := range st.Arcs {
			toGroup := group[arc.Next]
			if seenArc[g][arc.Category] {
				continue
			}
			seenArc[g][arc.Category] = true
			newStates[g].Arcs = append(newStates[g].Arcs, lm.Arc{Category: arc.Category, Next: lm.DFAStateID(toGroup)})
		}
	}
	for _, st := range newStates {
		sort.Slice(st.Arcs, func(i, j int) bool { return st.Arcs[i].Category < st.Arcs[j].Category })
	}

	return lm.NewDFA(newStates)
}

func signature(group int, categories []lm.CategoryID, targetGroup func(lm.CategoryID) int) string {
	parts := make([]int, 0, len(categories)+1)
	parts = append(parts, group)
	for _, c := range categories {
		parts = append(parts, targetGroup(c))
	}
	return intsKey(parts)
}

func intsKey(vals []int) string {
	s := make(stateSet, len(vals))
	copy(s, vals)
	return s.key()
}
