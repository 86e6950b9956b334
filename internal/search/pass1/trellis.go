// Package pass1 implements the frame-synchronous token-passing Viterbi
// search of spec §4.3: it walks the WCHMM lexicon tree frame by frame,
// producing a back-trellis of surviving word ends plus a single best-path
// fallback hypothesis.
package pass1

import (
	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lm"
)

// TrellisEntry is one surviving word end (spec §3 "Back-trellis"):
// {word_id, end_frame, begin_frame, cumulative_score, last_lm_context}.
type TrellisEntry struct {
	WordID     lm.WordID
	BeginFrame int
	EndFrame   int
	Score      amodel.LogProb
	LMContext  lm.WordID // the word preceding WordID, i.e. the context this word's LM score was conditioned on
	Pred       int32     // index into Trellis.Entries of the predecessor word end, or -1
}

// Trellis is pass 1's sparse-by-frame output.
type Trellis struct {
	Entries []TrellisEntry
	ByFrame [][]int32 // ByFrame[t] lists entry indices ending at frame t
}

func newTrellis(framenum int) *Trellis {
	return &Trellis{ByFrame: make([][]int32, framenum)}
}

func (tr *Trellis) add(e TrellisEntry) int32 {
	idx := int32(len(tr.Entries))
	tr.Entries = append(tr.Entries, e)
	tr.ByFrame[e.EndFrame] = append(tr.ByFrame[e.EndFrame], idx)
	return idx
}

// WordSequence reconstructs the word sequence ending at entry idx by
// following Pred links back to the sentence start.
func (tr *Trellis) WordSequence(idx int32) []lm.WordID {
	var out []lm.WordID
	for idx >= 0 {
		e := tr.Entries[idx]
		out = append([]lm.WordID{e.WordID}, out...)
		idx = e.Pred
	}
	return out
}
