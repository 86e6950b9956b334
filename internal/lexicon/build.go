package lexicon

import (
	"fmt"

	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lm"
)

// LMKind selects the lexicon-tree build policy (spec §4.2 step 2).
type LMKind int

const (
	LMNGram LMKind = iota
	LMDFA
)

// BuildOptions configures the tree build.
type BuildOptions struct {
	Kind          LMKind
	ShortWordLen  int  // words with <= this many phones are isolated from sharing in N-gram mode
	LowMemoryTree bool // disables short-word isolation to save nodes
}

// trieLevel is a build-time prefix-sharing index; one per distinct phone
// identity reachable from its parent. It is discarded once the tree is
// frozen — the runtime Tree only keeps Nodes, Words, and the factoring
// tables built from it.
type trieLevel struct {
	children  map[string]*trieLevel
	firstNode NodeID
	lastNode  NodeID
}

func newTrieLevel() *trieLevel {
	return &trieLevel{children: make(map[string]*trieLevel)}
}

// BuildTree builds the WCHMM lexicon tree(s) for dict under opts. In DFA
// mode it returns one tree per category (spec §4.2 step 2: "separate
// sub-trees are built per category, because category-pair constraint
// forbids arbitrary concatenation"); in N-gram mode the returned map has a
// single entry under category 0.
func BuildTree(dict *Dictionary, opts BuildOptions) (map[lm.CategoryID]*Tree, error) {
	trees := make(map[lm.CategoryID]*Tree)
	roots := make(map[lm.CategoryID]*trieLevel)

	categoryOf := func(w *Word) lm.CategoryID {
		if opts.Kind == LMDFA {
			return w.Category
		}
		return 0
	}

	for _, w := range dict.Words() {
		cat := categoryOf(w)
		tree, ok := trees[cat]
		if !ok {
			tree = newTree(cat)
			trees[cat] = tree
			roots[cat] = newTrieLevel()
		}
		isolate := opts.Kind == LMNGram && !opts.LowMemoryTree && w.NumPhones() <= opts.ShortWordLen
		if err := insertWord(tree, roots[cat], w, isolate); err != nil {
			return nil, fmt.Errorf("lexicon: inserting word %q: %w", w.Surface, err)
		}
	}
	return trees, nil
}

// insertWord walks (or, if isolate, always extends) the build-time trie,
// allocating one emitting-state node chain per phone the first time that
// phone identity is seen at that position, and reusing it for every later
// word that shares the same prefix.
func insertWord(t *Tree, root *trieLevel, w *Word, isolate bool) error {
	cur := root
	prev := (*trieLevel)(nil)
	span := &WordSpan{WordID: w.ID, PhoneNodes: make([][]NodeID, len(w.Phones))}

	for i, slot := range w.Phones {
		var child *trieLevel
		if isolate {
			child = newTrieLevel()
		} else {
			key := phoneKey(slot)
			var ok bool
			child, ok = cur.children[key]
			if !ok {
				child = newTrieLevel()
				cur.children[key] = child
			}
		}

		fromNode := NodeID(0)
		fromLogProb := amodel.LogProb(0)
		if prev != nil {
			fromNode = prev.lastNode
			fromLogProb = exitLogProb(w.Phones[i-1])
		}

		if child.firstNode == 0 {
			chain, err := buildPhoneChain(t, slot)
			if err != nil {
				return err
			}
			child.firstNode = chain[0]
			child.lastNode = chain[len(chain)-1]
			span.PhoneNodes[i] = chain
		} else {
			span.PhoneNodes[i] = chainBetween(t, child.firstNode, child.lastNode)
		}
		t.addArc(fromNode, child.firstNode, fromLogProb)

		prev = child
		cur = child
	}

	span.BeginNode = span.PhoneNodes[0][0]
	span.EndNode = prev.lastNode
	t.Words = append(t.Words, span)
	t.byWord[w.ID] = span
	return nil
}

// buildPhoneChain allocates one Node per emitting state of slot, wiring
// self-loops and intra-phone forward arcs from its transition matrix.
func buildPhoneChain(t *Tree, slot PhoneSlot) ([]NodeID, error) {
	n := slot.numStates()
	if n < 3 {
		return nil, fmt.Errorf("lexicon: phone %q has fewer than 3 states (no emitting states)", slot.Base)
	}
	emitting := n - 2
	ids := make([]NodeID, emitting)
	kind := slot.emissionKind()
	for k := 1; k <= emitting; k++ {
		state, pooled := slot.stateAt(k)
		node := &Node{Emission: kind, State: state, Pooled: pooled, SelfLoop: amodel.LogZero}
		if sl := slot.transition(k, k); sl > amodel.LogZero {
			node.SelfLoop = sl
		}
		node.IsPhoneEnd = k == emitting
		ids[k-1] = t.addNode(node)
	}
	for k := 1; k < emitting; k++ {
		t.addArc(ids[k-1], ids[k], slot.transition(k, k+1))
	}
	return ids, nil
}

// exitLogProb is the log-probability mass leaving slot's last emitting
// state for the (non-emitting) end state, i.e. the weight carried onto the
// next phone's first node.
func exitLogProb(slot PhoneSlot) amodel.LogProb {
	n := slot.numStates()
	return slot.transition(n-2, n-1)
}

// chainBetween reconstructs the node id sequence of an already-built phone
// by walking single-successor forward arcs from first to last. Used when a
// later word reuses a shared phone and still needs its own PhoneNodes entry.
func chainBetween(t *Tree, first, last NodeID) []NodeID {
	chain := []NodeID{first}
	cur := first
	for cur != last {
		node := t.Node(cur)
		var next NodeID
		found := false
		for _, arc := range node.Forward {
			if arc.To > cur && int(arc.To) < len(t.Nodes) {
				next = arc.To
				found = true
				break
			}
		}
		if !found {
			break
		}
		chain = append(chain, next)
		cur = next
	}
	return chain
}

func phoneKey(slot PhoneSlot) string {
	if slot.Plain != nil {
		return "P:" + slot.Plain.Name
	}
	return "B:" + slot.Boundary.Name()
}
