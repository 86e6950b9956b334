package lexicon

import (
	"testing"

	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lm"
)

func addMonophone(t *testing.T, ix *amodel.Index, name string) {
	t.Helper()
	states := make([]*amodel.State, 5)
	for i := range states {
		states[i] = &amodel.State{Sid: ix.NextStateID()}
	}
	a := make([][]amodel.LogProb, 5)
	for i := range a {
		a[i] = make([]amodel.LogProb, 5)
		for j := range a[i] {
			a[i][j] = amodel.LogZero
		}
	}
	for i := 0; i < 4; i++ {
		a[i][i+1] = -0.3
	}
	for i := 1; i < 4; i++ {
		a[i][i] = -1.0
	}
	phys := &amodel.PhysicalHMM{Name: name, States: states, A: a}
	if err := ix.AddPhysical(phys); err != nil {
		t.Fatal(err)
	}
	if err := ix.AddLogical(&amodel.LogicalHMM{Name: name, Kind: amodel.LogicalPhysical, Physical: phys}); err != nil {
		t.Fatal(err)
	}
}

func buildTestIndex(t *testing.T) *amodel.Index {
	t.Helper()
	ix := amodel.NewIndex()
	for _, name := range []string{"k", "a", "t", "s", "n", "a-t+s", "a-t+n"} {
		addMonophone(t, ix, name)
	}
	return ix
}

func buildTestDictionary(t *testing.T, ix *amodel.Index) *Dictionary {
	t.Helper()
	dict := NewDictionary()
	words := []struct {
		id     lm.WordID
		name   string
		phones []string
	}{
		{1, "cats", []string{"k", "a", "t", "s"}},
		{2, "catx", []string{"k", "a", "t", "n"}},
	}
	for _, w := range words {
		slots, err := ExpandPhoneSequence(ix, w.phones)
		if err != nil {
			t.Fatalf("expand %q: %v", w.name, err)
		}
		if err := dict.AddWord(&Word{ID: w.id, Surface: w.name, Phones: slots}); err != nil {
			t.Fatal(err)
		}
	}
	return dict
}

func TestExpandPhoneSequenceResolvesInteriorTriphone(t *testing.T) {
	ix := buildTestIndex(t)
	slots, err := ExpandPhoneSequence(ix, []string{"k", "a", "t", "s"})
	if err != nil {
		t.Fatal(err)
	}
	if slots[0].Boundary == nil || !slots[0].AtWordTop {
		t.Fatal("expected word-initial phone to be a boundary slot")
	}
	if slots[2].Plain == nil || slots[2].Plain.Name != "a-t+s" {
		t.Fatalf("expected interior phone to resolve to triphone a-t+s, got %+v", slots[2])
	}
	if slots[3].Boundary == nil || !slots[3].AtWordEnd {
		t.Fatal("expected word-final phone to be a boundary slot")
	}
}

func TestBuildTreeSharesPrefixAndBranches(t *testing.T) {
	ix := buildTestIndex(t)
	dict := buildTestDictionary(t, ix)

	trees, err := BuildTree(dict, BuildOptions{Kind: LMNGram, ShortWordLen: 0})
	if err != nil {
		t.Fatal(err)
	}
	tree := trees[0]

	span1, ok := tree.WordSpan(1)
	if !ok {
		t.Fatal("missing span for word 1")
	}
	span2, ok := tree.WordSpan(2)
	if !ok {
		t.Fatal("missing span for word 2")
	}
	if span1.PhoneNodes[0][0] != span2.PhoneNodes[0][0] {
		t.Fatal("expected both words to share the word-initial phone's first node")
	}
	if span1.PhoneNodes[1][0] != span2.PhoneNodes[1][0] {
		t.Fatal("expected both words to share the interior monophone-fallback phone node")
	}
	if span1.PhoneNodes[2][0] == span2.PhoneNodes[2][0] {
		t.Fatal("expected the diverging triphone phone to produce distinct nodes")
	}
	if span1.EndNode == span2.EndNode {
		t.Fatal("expected distinct word-end nodes")
	}
}

func TestAssignFactoringMarksBranchSuccessorList(t *testing.T) {
	ix := buildTestIndex(t)
	dict := buildTestDictionary(t, ix)
	trees, err := BuildTree(dict, BuildOptions{Kind: LMNGram, ShortWordLen: 0})
	if err != nil {
		t.Fatal(err)
	}
	tree := trees[0]

	ng := lm.NewNGram(1, lm.Forward)
	ng.AddEntry(nil, 1, -0.5, nil)
	ng.AddEntry(nil, 2, -0.9, nil)

	if err := AssignFactoring(tree, ng); err != nil {
		t.Fatal(err)
	}

	span1, _ := tree.WordSpan(1)
	sharedLast := span1.PhoneNodes[1][len(span1.PhoneNodes[1])-1]
	branchNode := tree.Node(sharedLast)
	if len(branchNode.Forward) != 2 {
		t.Fatalf("expected the shared monophone's exit node to branch into 2 successors, got %d", len(branchNode.Forward))
	}
	if branchNode.Scid <= 0 {
		t.Fatalf("expected a positive (successor-list) scid at the branch node, got %d", branchNode.Scid)
	}
	words := tree.SuccessorWords(branchNode.Scid)
	if len(words) != 2 {
		t.Fatalf("expected 2 reachable words from the branch node, got %v", words)
	}
}

func TestBuildTreeShortWordIsolation(t *testing.T) {
	ix := buildTestIndex(t)
	dict := NewDictionary()
	slots, err := ExpandPhoneSequence(ix, []string{"k", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if err := dict.AddWord(&Word{ID: 1, Surface: "short1", Phones: append([]PhoneSlot(nil), slots...)}); err != nil {
		t.Fatal(err)
	}
	slots2, err := ExpandPhoneSequence(ix, []string{"k", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if err := dict.AddWord(&Word{ID: 2, Surface: "short2", Phones: slots2}); err != nil {
		t.Fatal(err)
	}

	trees, err := BuildTree(dict, BuildOptions{Kind: LMNGram, ShortWordLen: 5})
	if err != nil {
		t.Fatal(err)
	}
	tree := trees[0]
	span1, _ := tree.WordSpan(1)
	span2, _ := tree.WordSpan(2)
	if span1.PhoneNodes[0][0] == span2.PhoneNodes[0][0] {
		t.Fatal("expected isolated short words not to share tree nodes")
	}
}
