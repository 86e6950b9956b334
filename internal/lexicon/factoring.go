package lexicon

import (
	"sort"

	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lm"
)

// AssignFactoring fills in every node's Scid (spec §3, §4.2 step 3): a
// positive value indexes SuccessorLists at a branch node carrying more than
// one reachable word, a negative value indexes UnigramFactors at a
// non-branching node below a branch, and zero means no look-ahead is
// attached (word-end nodes, where pass 1 switches to the exact bigram).
//
// ngram may be nil when the tree is built under a DFA grammar, in which
// case only successor lists are produced (spec §4.3: "DFA: no probability
// factoring; category-pair is a hard filter").
func AssignFactoring(t *Tree, ngram *lm.NGram) error {
	endWordAt := make(map[NodeID]lm.WordID, len(t.Words))
	for _, span := range t.Words {
		endWordAt[span.EndNode] = span.WordID
	}

	descendants := make([]map[lm.WordID]bool, len(t.Nodes))
	for id := len(t.Nodes) - 1; id >= 0; id-- {
		set := make(map[lm.WordID]bool)
		if w, ok := endWordAt[NodeID(id)]; ok {
			set[w] = true
		}
		for _, arc := range t.Nodes[id].Forward {
			for w := range descendants[arc.To] {
				set[w] = true
			}
		}
		descendants[id] = set
	}

	for id, node := range t.Nodes {
		if _, isWordEnd := endWordAt[NodeID(id)]; isWordEnd {
			node.Scid = 0
			continue
		}
		words := sortedWords(descendants[id])
		switch {
		case len(words) == 0:
			node.Scid = 0
		case len(node.Forward) > 1 && len(words) > 1:
			t.SuccessorLists = append(t.SuccessorLists, words)
			node.Scid = int32(len(t.SuccessorLists))
		default:
			if ngram == nil {
				node.Scid = 0
				continue
			}
			t.UnigramFactors = append(t.UnigramFactors, maxUnigram(ngram, words))
			node.Scid = -int32(len(t.UnigramFactors))
		}
	}
	return nil
}

func sortedWords(set map[lm.WordID]bool) []lm.WordID {
	out := make([]lm.WordID, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func maxUnigram(ngram *lm.NGram, words []lm.WordID) amodel.LogProb {
	best := lm.LogZero
	for _, w := range words {
		if p := ngram.UnigramLogProb(w); p > best {
			best = p
		}
	}
	return amodel.LogProb(best)
}

// SuccessorWords returns the successor-word list a positive scid indexes,
// or nil if scid does not reference one.
func (t *Tree) SuccessorWords(scid int32) []lm.WordID {
	if scid <= 0 || int(scid) > len(t.SuccessorLists) {
		return nil
	}
	return t.SuccessorLists[scid-1]
}

// UnigramFactor returns the precomputed unigram-max score a negative scid
// indexes, or amodel.LogZero if scid does not reference one.
func (t *Tree) UnigramFactor(scid int32) amodel.LogProb {
	if scid >= 0 || int(-scid) > len(t.UnigramFactors) {
		return amodel.LogZero
	}
	return t.UnigramFactors[-scid-1]
}
