package pass1

import (
	"testing"

	"github.com/example/lvcsr-decode/internal/acoustic"
	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lexicon"
	"github.com/example/lvcsr-decode/internal/lm"
)

// addSimpleMonophone registers a 5-state linear HMM (3 emitting states, a
// self-loop of -1.0 and a forward step of -0.3 at every emitting state) under
// name, giving every dictionary word built from it an identical, easy to
// reason about duration distribution.
func addSimpleMonophone(t *testing.T, ix *amodel.Index, name string, mean float32) {
	t.Helper()
	g, err := amodel.NewGaussian([]float32{mean}, []float32{1})
	if err != nil {
		t.Fatal(err)
	}
	mix := &amodel.MixturePDF{Components: []*amodel.Gaussian{g}, Weights: []float32{1}}
	states := make([]*amodel.State, 5)
	for i := range states {
		states[i] = &amodel.State{Sid: ix.NextStateID(), Streams: []*amodel.MixturePDF{mix}}
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

// buildTwoWordFixture builds a tiny N-gram-mode lexicon with two single-phone
// words ("aa" -> id 1, "bb" -> id 2) that do not share any tree nodes, and a
// forward bigram that strongly favors aa -> bb.
func buildTwoWordFixture(t *testing.T) (*lexicon.Tree, *lexicon.Dictionary, *amodel.Index, *lm.NGram) {
	t.Helper()
	ix := amodel.NewIndex()
	addSimpleMonophone(t, ix, "aa", 0)
	addSimpleMonophone(t, ix, "bb", 10)

	dict := lexicon.NewDictionary()
	for _, w := range []struct {
		id   lm.WordID
		name string
	}{{1, "aa"}, {2, "bb"}} {
		slots, err := lexicon.ExpandPhoneSequence(ix, []string{w.name})
		if err != nil {
			t.Fatalf("expand %q: %v", w.name, err)
		}
		if err := dict.AddWord(&lexicon.Word{ID: w.id, Surface: w.name, Phones: slots}); err != nil {
			t.Fatal(err)
		}
	}

	trees, err := lexicon.BuildTree(dict, lexicon.BuildOptions{Kind: lexicon.LMNGram})
	if err != nil {
		t.Fatal(err)
	}
	tree := trees[0]

	ng := lm.NewNGram(2, lm.Forward)
	ng.AddEntry(nil, 1, -0.1, nil)
	ng.AddEntry(nil, 2, -0.1, nil)
	ng.AddEntry([]lm.WordID{1}, 2, -0.05, nil)
	ng.AddEntry([]lm.WordID{2}, 1, -5.0, nil)
	if err := lexicon.AssignFactoring(tree, ng); err != nil {
		t.Fatal(err)
	}
	return tree, dict, ix, ng
}

// framesFavoring builds a sequence of frames whose single acoustic dimension
// sits near mean for the first half of the utterance and near mean2 for the
// second half, so word "aa" (mean 0) best explains the first half and word
// "bb" (mean 10) the second.
func framesFavoring(n int, firstMean, secondMean float32) []amodel.FrameVector {
	frames := make([]amodel.FrameVector, n)
	for i := range frames {
		m := firstMean
		if i >= n/2 {
			m = secondMean
		}
		frames[i] = amodel.FrameVector{Values: []float32{m}}
	}
	return frames
}

func TestDecoderRunProducesTrellisForBothWords(t *testing.T) {
	tree, dict, ix, ng := buildTwoWordFixture(t)
	eng := acoustic.NewEngine(acoustic.DefaultConfig())

	dec, err := NewDecoder(tree, dict, eng, ix, ng, nil, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	frames := framesFavoring(10, 0, 10)
	trellis, best, err := dec.Run(frames)
	if err != nil {
		t.Fatal(err)
	}
	if len(trellis.Entries) == 0 {
		t.Fatal("expected at least one trellis entry")
	}

	sawWord1 := false
	sawWord2 := false
	for _, e := range trellis.Entries {
		switch e.WordID {
		case 1:
			sawWord1 = true
		case 2:
			sawWord2 = true
		}
	}
	if !sawWord1 {
		t.Error("expected a trellis entry for word 1 (\"aa\")")
	}
	if !sawWord2 {
		t.Error("expected a trellis entry for word 2 (\"bb\"), reached via the aa->bb bigram")
	}

	if best < 0 {
		t.Fatal("expected a best-path fallback hypothesis to be found")
	}
	seq := trellis.WordSequence(best)
	if len(seq) == 0 {
		t.Fatal("expected a non-empty best word sequence")
	}
}

// buildTwoCategoryDFAFixture builds the same two single-phone words as
// buildTwoWordFixture but assigns them distinct DFA categories and returns a
// three-state grammar that only admits "bb" out of the *second* state, never
// the first. A decoder that fails to carry the real successor state forward
// after "aa" would still be sitting at the initial state and wrongly reject
// "bb" as inadmissible.
//
// The tree is built in N-gram mode so both categories land in a single tree;
// production DFA-mode trees are always split one-tree-per-category, but pass
// 1's own dfaState bookkeeping is independent of that tree-layout concern, so
// this rig exercises it without the split getting in the way.
func buildTwoCategoryDFAFixture(t *testing.T) (*lexicon.Tree, *lexicon.Dictionary, *amodel.Index, *lm.DFA) {
	t.Helper()
	ix := amodel.NewIndex()
	addSimpleMonophone(t, ix, "aa", 0)
	addSimpleMonophone(t, ix, "bb", 10)

	dict := lexicon.NewDictionary()
	for _, w := range []struct {
		id   lm.WordID
		name string
		cat  lm.CategoryID
	}{{1, "aa", 1}, {2, "bb", 2}} {
		slots, err := lexicon.ExpandPhoneSequence(ix, []string{w.name})
		if err != nil {
			t.Fatalf("expand %q: %v", w.name, err)
		}
		if err := dict.AddWord(&lexicon.Word{ID: w.id, Surface: w.name, Category: w.cat, Phones: slots}); err != nil {
			t.Fatal(err)
		}
	}

	trees, err := lexicon.BuildTree(dict, lexicon.BuildOptions{Kind: lexicon.LMNGram})
	if err != nil {
		t.Fatal(err)
	}
	tree := trees[0]

	// state 0 (initial): only category 1 ("aa") has an arc, into state 1.
	// state 1: only category 2 ("bb") has an arc, into state 2 (accept).
	// state 2 (accept): no further arcs.
	dfa := lm.NewDFA([]lm.DFAState{
		{Initial: true, Arcs: []lm.Arc{{Category: 1, Next: 1}}},
		{Arcs: []lm.Arc{{Category: 2, Next: 2}}},
		{Accept: true},
	})
	return tree, dict, ix, dfa
}

func TestDecoderCarriesDFAStateAcrossWords(t *testing.T) {
	tree, dict, ix, dfa := buildTwoCategoryDFAFixture(t)
	eng := acoustic.NewEngine(acoustic.DefaultConfig())

	dec, err := NewDecoder(tree, dict, eng, ix, nil, dfa, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	frames := framesFavoring(10, 0, 10)
	trellis, best, err := dec.Run(frames)
	if err != nil {
		t.Fatal(err)
	}

	sawWord1 := false
	sawWord2 := false
	for _, e := range trellis.Entries {
		switch e.WordID {
		case 1:
			sawWord1 = true
		case 2:
			sawWord2 = true
		}
	}
	if !sawWord1 {
		t.Error("expected a trellis entry for word 1 (\"aa\"), admissible from the grammar's initial state")
	}
	if !sawWord2 {
		t.Error("expected a trellis entry for word 2 (\"bb\"): only reachable if the token's dfaState advanced past the initial state after \"aa\"")
	}
	if best < 0 {
		t.Fatal("expected a best-path fallback hypothesis to reach the grammar's accepting state")
	}
	seq := trellis.WordSequence(best)
	if len(seq) != 2 || seq[0] != 1 || seq[1] != 2 {
		t.Errorf("expected best sequence [aa bb], got %v", seq)
	}
}

func TestDecoderRejectsDualLMConfiguration(t *testing.T) {
	tree, dict, ix, ng := buildTwoWordFixture(t)
	eng := acoustic.NewEngine(acoustic.DefaultConfig())
	dfa := lm.NewDFA([]lm.DFAState{{Initial: true, Accept: true}})

	if _, err := NewDecoder(tree, dict, eng, ix, nil, nil, DefaultConfig()); err == nil {
		t.Fatal("expected an error when neither bigram nor dfa is provided")
	}
	if _, err := NewDecoder(tree, dict, eng, ix, ng, dfa, DefaultConfig()); err == nil {
		t.Fatal("expected an error when both bigram and dfa are provided")
	}
}
