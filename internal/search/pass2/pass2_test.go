package pass2

import (
	"testing"

	"github.com/example/lvcsr-decode/internal/acoustic"
	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lexicon"
	"github.com/example/lvcsr-decode/internal/lm"
	"github.com/example/lvcsr-decode/internal/search/pass1"
)

func addMonophone(t *testing.T, ix *amodel.Index, name string, mean float32) {
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

// buildFixture builds a two-word ("aa"->1, "bb"->2) lexicon with a bigram
// that strongly favors aa->bb, runs pass 1 over a ten-frame utterance, and
// returns everything pass 2 needs to rescore the result.
func buildFixture(t *testing.T) (*lexicon.Dictionary, *amodel.Index, *lm.NGram, *pass1.Trellis, []amodel.FrameVector) {
	t.Helper()
	ix := amodel.NewIndex()
	addMonophone(t, ix, "aa", 0)
	addMonophone(t, ix, "bb", 10)

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

	eng := acoustic.NewEngine(acoustic.DefaultConfig())
	dec, err := pass1.NewDecoder(tree, dict, eng, ix, ng, nil, pass1.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	frames := make([]amodel.FrameVector, 10)
	for i := range frames {
		m := float32(0)
		if i >= 5 {
			m = 10
		}
		frames[i] = amodel.FrameVector{Values: []float32{m}}
	}

	trellis, _, err := dec.Run(frames)
	if err != nil {
		t.Fatal(err)
	}
	return dict, ix, ng, trellis, frames
}

func TestDecoderRunProducesHypotheses(t *testing.T) {
	dict, ix, ng, trellis, frames := buildFixture(t)
	eng := acoustic.NewEngine(acoustic.DefaultConfig())

	dec := NewDecoder(dict, ix, eng, ng, DefaultConfig())
	hyps, err := dec.Run(trellis, frames)
	if err != nil {
		t.Fatal(err)
	}
	if len(hyps) == 0 {
		t.Fatal("expected at least one complete hypothesis")
	}
	for _, h := range hyps {
		if len(h.Words) == 0 {
			t.Error("expected every hypothesis to have at least one word")
		}
	}

	found := false
	for _, h := range hyps {
		if len(h.Words) == 2 && h.Words[0] == 1 && h.Words[1] == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the aa->bb hypothesis among %d candidates", len(hyps))
	}
}

func TestSelectMBRPicksAHypothesis(t *testing.T) {
	hyps := []Hypothesis{
		{Words: []lm.WordID{1, 2}, Score: -10},
		{Words: []lm.WordID{1, 3}, Score: -10.5},
		{Words: []lm.WordID{1, 2}, Score: -11},
	}
	best, err := SelectMBR(hyps, DefaultMBRConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(best.Words) != 2 {
		t.Fatalf("expected a two-word hypothesis, got %v", best.Words)
	}
}

func TestSelectMBRRejectsEmptyList(t *testing.T) {
	if _, err := SelectMBR(nil, DefaultMBRConfig()); err == nil {
		t.Fatal("expected an error for an empty hypothesis list")
	}
}

func TestBuildConfusionNetworkAlignsHypotheses(t *testing.T) {
	hyps := []Hypothesis{
		{Words: []lm.WordID{1, 2}, Score: -10},
		{Words: []lm.WordID{1}, Score: -12},
	}
	cn := BuildConfusionNetwork(hyps, DefaultMBRConfig())
	if len(cn.Bins) != 2 {
		t.Fatalf("expected 2 bins (from the best hypothesis), got %d", len(cn.Bins))
	}
	if _, ok := cn.Bins[0].Candidates[1]; !ok {
		t.Error("expected word 1 to appear in the first bin")
	}
}

func TestBuildLatticeMirrorsTrellis(t *testing.T) {
	_, _, _, trellis, _ := buildFixture(t)
	lat := BuildLattice(trellis)
	if len(lat.Nodes) != len(trellis.Entries) {
		t.Fatalf("expected %d lattice nodes, got %d", len(trellis.Entries), len(lat.Nodes))
	}
}
