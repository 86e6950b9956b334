package lexicon

import (
	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lm"
)

// NodeID indexes a WCHMM node. Node 0 is always the tree's virtual root and
// carries no emission.
type NodeID int32

// EmissionKind classifies what a node's outprob call must do (spec §3).
type EmissionKind int

const (
	EmitRoot EmissionKind = iota
	EmitPlain
	EmitRightContextSet
	EmitLeftContextSet
	EmitBothContextSet
)

// Arc is a forward transition out of a node, to the first emitting node of
// the following phone (or, at a word end, nothing — cross-word transitions
// are resolved by pass 1 against the dictionary, not encoded as arcs).
type Arc struct {
	To      NodeID
	LogProb amodel.LogProb
}

// Node is one WCHMM tree node: a single emitting HMM state shared by every
// word path that currently passes through it (spec §3, §4.2).
type Node struct {
	ID         NodeID
	Emission   EmissionKind
	State      *amodel.State      // set when Emission == EmitPlain
	Pooled     *amodel.CDStateSet // set for the context-set emission kinds
	SelfLoop   amodel.LogProb
	Forward    []Arc
	IsPhoneEnd bool // last emitting node of a phone; branching is only possible here
	Scid       int32
}

// WordSpan records where one dictionary word lives in the tree (spec §3:
// "Per-word arrays: the node offsets of every phone, the word-end node").
type WordSpan struct {
	WordID     lm.WordID
	PhoneNodes [][]NodeID // PhoneNodes[i] is the emitting-node chain for phone i
	BeginNode  NodeID
	EndNode    NodeID
}

// Tree is the append-only, index-addressed lexicon search graph (spec §3).
// A separate Tree is built per DFA category when the LM is a grammar
// (spec §4.2 step 2); in N-gram mode there is exactly one Tree.
type Tree struct {
	Nodes          []*Node
	Words          []*WordSpan
	SuccessorLists [][]lm.WordID
	UnigramFactors []amodel.LogProb
	Category       lm.CategoryID
	byWord         map[lm.WordID]*WordSpan
}

func newTree(category lm.CategoryID) *Tree {
	t := &Tree{Category: category, byWord: make(map[lm.WordID]*WordSpan)}
	t.Nodes = append(t.Nodes, &Node{ID: 0, Emission: EmitRoot}) // node 0: virtual root
	return t
}

func (t *Tree) addNode(n *Node) NodeID {
	n.ID = NodeID(len(t.Nodes))
	t.Nodes = append(t.Nodes, n)
	return n.ID
}

func (t *Tree) Node(id NodeID) *Node { return t.Nodes[id] }

func (t *Tree) WordSpan(id lm.WordID) (*WordSpan, bool) {
	s, ok := t.byWord[id]
	return s, ok
}

// addArc records a forward transition, merging with an existing arc to the
// same destination rather than duplicating it (two word paths can rejoin a
// shared successor phone).
func (t *Tree) addArc(from NodeID, to NodeID, logProb amodel.LogProb) {
	n := t.Nodes[from]
	for i := range n.Forward {
		if n.Forward[i].To == to {
			if logProb > n.Forward[i].LogProb {
				n.Forward[i].LogProb = logProb
			}
			return
		}
	}
	n.Forward = append(n.Forward, Arc{To: to, LogProb: logProb})
}
