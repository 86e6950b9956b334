package result

import (
	"testing"

	"github.com/example/lvcsr-decode/internal/acoustic"
	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lexicon"
	"github.com/example/lvcsr-decode/internal/lm"
	"github.com/example/lvcsr-decode/internal/search/pass2"
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

func buildDict(t *testing.T) (*lexicon.Dictionary, *amodel.Index) {
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
	return dict, ix
}

func TestViterbiSegmentProducesWordBoundaries(t *testing.T) {
	dict, ix := buildDict(t)
	eng := acoustic.NewEngine(acoustic.DefaultConfig())

	frames := make([]amodel.FrameVector, 20)
	for i := range frames {
		m := float32(0)
		if i >= 10 {
			m = 10
		}
		frames[i] = amodel.FrameVector{Values: []float32{m}}
	}

	segs, err := ViterbiSegment(ix, dict, []lm.WordID{1, 2}, eng, frames, UnitWord)
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 word segments, got %d (%+v)", len(segs), segs)
	}
	if segs[0].Label != "aa" || segs[1].Label != "bb" {
		t.Errorf("unexpected labels: %+v", segs)
	}
	if segs[len(segs)-1].EndFrame != len(frames)-1 {
		t.Errorf("expected the last segment to end at the last frame, got %d", segs[len(segs)-1].EndFrame)
	}
}

func TestViterbiSegmentStateGranularityIsFiner(t *testing.T) {
	dict, ix := buildDict(t)
	eng := acoustic.NewEngine(acoustic.DefaultConfig())
	frames := make([]amodel.FrameVector, 20)
	for i := range frames {
		m := float32(0)
		if i >= 10 {
			m = 10
		}
		frames[i] = amodel.FrameVector{Values: []float32{m}}
	}

	wordSegs, err := ViterbiSegment(ix, dict, []lm.WordID{1, 2}, eng, frames, UnitWord)
	if err != nil {
		t.Fatal(err)
	}
	stateSegs, err := ViterbiSegment(ix, dict, []lm.WordID{1, 2}, eng, frames, UnitState)
	if err != nil {
		t.Fatal(err)
	}
	if len(stateSegs) < len(wordSegs) {
		t.Errorf("expected state-level segmentation to have at least as many segments as word-level, got %d vs %d", len(stateSegs), len(wordSegs))
	}
}

func TestFromHypothesisFormatsWords(t *testing.T) {
	dict, _ := buildDict(t)
	hyp := pass2.Hypothesis{Words: []lm.WordID{1, 2}, Score: -10, AMScore: -8, LMScore: -2}

	s, err := FromHypothesis(dict, hyp, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Words) != 2 || s.Words[0] != "aa" || s.Words[1] != "bb" {
		t.Errorf("unexpected surface words: %v", s.Words)
	}
	if len(s.Confidence) != 2 {
		t.Fatalf("expected one confidence value per word, got %d", len(s.Confidence))
	}
}

func TestFromHypothesisUsesConfusionNetworkConfidence(t *testing.T) {
	dict, _ := buildDict(t)
	hyps := []pass2.Hypothesis{
		{Words: []lm.WordID{1, 2}, Score: -10},
		{Words: []lm.WordID{1, 2}, Score: -11},
	}
	cn := pass2.BuildConfusionNetwork(hyps, pass2.DefaultMBRConfig())

	s, err := FromHypothesis(dict, hyps[0], cn)
	if err != nil {
		t.Fatal(err)
	}
	if s.Confidence[0] <= 0 {
		t.Errorf("expected positive confidence for word 0, got %v", s.Confidence[0])
	}
}
