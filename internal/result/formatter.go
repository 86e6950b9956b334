package result

import (
	"fmt"

	"github.com/example/lvcsr-decode/internal/lexicon"
	"github.com/example/lvcsr-decode/internal/lm"
	"github.com/example/lvcsr-decode/internal/search/pass2"
)

// Sentence is one formatted decode result (spec §4.5, §6 output block).
type Sentence struct {
	WordIDs    []lm.WordID
	Words      []string
	Phones     []string
	AMScore    float32
	LMScore    float32
	TotalScore float32
	Confidence []float64 // per word, aligned with WordIDs
	Alignment  []AlignmentSegment
}

// FromHypothesis builds a Sentence from a pass-2 N-best hypothesis, pulling
// per-word confidence from a confusion network when one was built alongside
// the N-best list (spec §4.5: "confidence scores either from N-best
// posteriors or from search-time posterior accumulation").
func FromHypothesis(dict *lexicon.Dictionary, hyp pass2.Hypothesis, cn *pass2.ConfusionNetwork) (Sentence, error) {
	words := make([]string, len(hyp.Words))
	var phones []string
	for i, wid := range hyp.Words {
		w, ok := dict.Word(wid)
		if !ok {
			return Sentence{}, fmt.Errorf("result: unknown word id %d", wid)
		}
		words[i] = w.Surface
		for _, slot := range w.Phones {
			phones = append(phones, slot.Base)
		}
	}

	conf := uniformConfidence(len(hyp.Words))
	if cn != nil {
		conf = confidenceFromConfusionNetwork(hyp.Words, cn)
	}

	return Sentence{
		WordIDs:    hyp.Words,
		Words:      words,
		Phones:     phones,
		AMScore:    hyp.AMScore,
		LMScore:    hyp.LMScore,
		TotalScore: hyp.Score,
		Confidence: conf,
	}, nil
}

func uniformConfidence(n int) []float64 {
	c := make([]float64, n)
	for i := range c {
		c[i] = 1
	}
	return c
}

// confidenceFromConfusionNetwork reads, for each word in words, the
// posterior mass its own id accumulated in the corresponding confusion
// bin — an approximation when words isn't exactly the confusion network's
// reference hypothesis (it assumes positional correspondence, true only
// when hyp is the same hypothesis BuildConfusionNetwork anchored on).
func confidenceFromConfusionNetwork(words []lm.WordID, cn *pass2.ConfusionNetwork) []float64 {
	conf := uniformConfidence(len(words))
	for i, wid := range words {
		if i >= len(cn.Bins) {
			break
		}
		if mass, ok := cn.Bins[i].Candidates[wid]; ok {
			conf[i] = mass
		}
	}
	return conf
}

// WithAlignment attaches a forced-alignment segmentation to s.
func WithAlignment(s Sentence, segs []AlignmentSegment) Sentence {
	s.Alignment = segs
	return s
}
