package pass2

import (
	"container/heap"
	"fmt"

	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lexicon"
	"github.com/example/lvcsr-decode/internal/lm"
	"github.com/example/lvcsr-decode/internal/search/pass1"
)

// Config holds pass 2's tunables (spec §4.4, §9).
type Config struct {
	NBest            int
	StackSize        int // agenda is trimmed to this many hypotheses after every push batch
	HypoOverflow     int // safety valve: stop after this many pops regardless of convergence
	InsertionPenalty amodel.LogProb
}

// DefaultConfig returns reasonable pass-2 tunables.
func DefaultConfig() Config {
	return Config{NBest: 10, StackSize: 500, HypoOverflow: 20000, InsertionPenalty: -2}
}

// Hypothesis is one complete sentence candidate pass 2 produces.
type Hypothesis struct {
	Words   []lm.WordID
	Score   amodel.LogProb
	AMScore amodel.LogProb
	LMScore amodel.LogProb
}

// partial is a hypothesis under construction, growing right-to-left. Every
// word strictly to the right of `pending` has already been exactly rescored
// and folded into g; `pending` is the most recently attached word, whose
// own left-boundary phone cannot be resolved exactly until its predecessor
// is chosen.
type partial struct {
	frame                int // unprocessed prefix is [0, frame)
	words                []lm.WordID
	pendingWord          lm.WordID
	pendingTrellisIdx    int32
	pendingRightNeighbor string
	g                    amodel.LogProb
	amScore              amodel.LogProb
	lmScoreSum           amodel.LogProb
}

func (p *partial) priority(h amodel.LogProb) amodel.LogProb { return p.g + h }

type agenda struct {
	items []*partial
	h     func(frame int) amodel.LogProb
}

func (a *agenda) Len() int { return len(a.items) }
func (a *agenda) Less(i, j int) bool {
	return a.items[i].priority(a.h(a.items[i].frame)) > a.items[j].priority(a.h(a.items[j].frame))
}
func (a *agenda) Swap(i, j int) { a.items[i], a.items[j] = a.items[j], a.items[i] }
func (a *agenda) Push(x any)    { a.items = append(a.items, x.(*partial)) }
func (a *agenda) Pop() any {
	n := len(a.items)
	it := a.items[n-1]
	a.items = a.items[:n-1]
	return it
}

// Decoder is pass 2's backward A*-like stack decoder.
type Decoder struct {
	dict  *lexicon.Dictionary
	index *amodel.Index
	am    acousticScorer
	ngram *lm.NGram
	cfg   Config
}

// NewDecoder builds a pass-2 decoder. ngram should be the full-order
// forward model (spec §3: "the main forward or backward N-gram is used on
// pass 2"); this implementation always queries it in the forward direction.
func NewDecoder(dict *lexicon.Dictionary, index *amodel.Index, am acousticScorer, ngram *lm.NGram, cfg Config) *Decoder {
	return &Decoder{dict: dict, index: index, am: am, ngram: ngram, cfg: cfg}
}

func lastPhoneBase(w *lexicon.Word) string  { return w.Phones[len(w.Phones)-1].Base }
func firstPhoneBase(w *lexicon.Word) string { return w.Phones[0].Base }

// Run performs the backward A* search over trellis, returning up to
// cfg.NBest complete sentence hypotheses ordered best first (spec §4.4).
func (d *Decoder) Run(trellis *pass1.Trellis, frames []amodel.FrameVector) ([]Hypothesis, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("pass2: no frames to decode")
	}
	bestAt := bestScorePerFrame(trellis, len(frames))
	h := func(frame int) amodel.LogProb {
		if frame <= 0 {
			return 0
		}
		return bestAt[frame-1]
	}

	ag := &agenda{h: h}
	heap.Init(ag)
	lastFrame := len(frames) - 1
	for _, idx := range trellis.ByFrame[lastFrame] {
		e := trellis.Entries[idx]
		heap.Push(ag, &partial{
			frame:                e.BeginFrame,
			pendingWord:          e.WordID,
			pendingTrellisIdx:    idx,
			pendingRightNeighbor: "",
			g:                    0,
		})
	}

	var completed []Hypothesis
	pops := 0
	for ag.Len() > 0 && pops < d.cfg.HypoOverflow {
		pops++
		p := heap.Pop(ag).(*partial)

		if len(completed) >= d.cfg.NBest && p.priority(h(p.frame)) <= worstOf(completed) {
			break
		}

		if p.frame == 0 {
			hyp, err := d.finalize(p, trellis, frames)
			if err != nil {
				return nil, err
			}
			completed = insertSortedHyp(completed, hyp, d.cfg.NBest)
			continue
		}

		preds := trellis.ByFrame[p.frame-1]
		pendingWordObj, ok := d.dict.Word(p.pendingWord)
		if !ok {
			continue
		}
		for _, predIdx := range preds {
			predEntry := trellis.Entries[predIdx]
			predWord, ok := d.dict.Word(predEntry.WordID)
			if !ok {
				continue
			}
			acoustic, err := exactWordScore(d.index, pendingWordObj, lastPhoneBase(predWord), p.pendingRightNeighbor, d.am, frames, p.frame, exactEndFrame(trellis, p))
			if err != nil {
				return nil, err
			}
			lmScore := amodel.LogProb(d.ngram.ConditionalLogProb([]lm.WordID{predEntry.WordID}, p.pendingWord))
			if lmScore <= lm.LogZero {
				continue
			}
			np := &partial{
				frame:                predEntry.BeginFrame,
				words:                append(append([]lm.WordID(nil), p.words...), p.pendingWord),
				pendingWord:          predEntry.WordID,
				pendingTrellisIdx:    predIdx,
				pendingRightNeighbor: firstPhoneBase(pendingWordObj),
				g:                    p.g + acoustic + lmScore + d.cfg.InsertionPenalty,
				amScore:              p.amScore + acoustic,
				lmScoreSum:           p.lmScoreSum + lmScore,
			}
			heap.Push(ag, np)
		}
		if ag.Len() > d.cfg.StackSize {
			trimAgenda(ag, d.cfg.StackSize)
		}
	}

	reverseAll(completed)
	return completed, nil
}

// exactEndFrame returns the pending word's own end frame, recovered from the
// trellis entry that introduced it.
func exactEndFrame(trellis *pass1.Trellis, p *partial) int {
	return trellis.Entries[p.pendingTrellisIdx].EndFrame
}

// finalize scores the last remaining pending word (the sentence-initial
// word, whose left context is the utterance boundary) and assembles the
// complete hypothesis.
func (d *Decoder) finalize(p *partial, trellis *pass1.Trellis, frames []amodel.FrameVector) (Hypothesis, error) {
	w, ok := d.dict.Word(p.pendingWord)
	if !ok {
		return Hypothesis{}, fmt.Errorf("pass2: unknown word id %d", p.pendingWord)
	}
	endFrame := trellis.Entries[p.pendingTrellisIdx].EndFrame
	acoustic, err := exactWordScore(d.index, w, "", p.pendingRightNeighbor, d.am, frames, p.frame, endFrame)
	if err != nil {
		return Hypothesis{}, err
	}
	lmScore := amodel.LogProb(d.ngram.ConditionalLogProb(nil, p.pendingWord))
	words := append(append([]lm.WordID(nil), p.words...), p.pendingWord)
	return Hypothesis{
		Words:   words,
		Score:   p.g + acoustic + lmScore,
		AMScore: p.amScore + acoustic,
		LMScore: p.lmScoreSum + lmScore,
	}, nil
}

func bestScorePerFrame(trellis *pass1.Trellis, framenum int) []amodel.LogProb {
	best := make([]amodel.LogProb, framenum)
	for i := range best {
		best[i] = amodel.LogZero
	}
	for f, ids := range trellis.ByFrame {
		for _, idx := range ids {
			if s := trellis.Entries[idx].Score; s > best[f] {
				best[f] = s
			}
		}
	}
	return best
}

func worstOf(hyps []Hypothesis) amodel.LogProb {
	if len(hyps) == 0 {
		return amodel.LogZero
	}
	return hyps[len(hyps)-1].Score
}

// insertSortedHyp inserts hyp into hyps (kept sorted descending by Score),
// capping the slice at capN.
func insertSortedHyp(hyps []Hypothesis, hyp Hypothesis, capN int) []Hypothesis {
	i := 0
	for i < len(hyps) && hyps[i].Score >= hyp.Score {
		i++
	}
	hyps = append(hyps, Hypothesis{})
	copy(hyps[i+1:], hyps[i:])
	hyps[i] = hyp
	if len(hyps) > capN {
		hyps = hyps[:capN]
	}
	return hyps
}

func reverseAll(hyps []Hypothesis) {
	for _, h := range hyps {
		for i, j := 0, len(h.Words)-1; i < j; i, j = i+1, j-1 {
			h.Words[i], h.Words[j] = h.Words[j], h.Words[i]
		}
	}
}

// trimAgenda keeps only the best `size` hypotheses, the stack-size cap of
// spec §9's bounded-memory requirement.
func trimAgenda(ag *agenda, size int) {
	kept := make([]*partial, 0, size)
	for ag.Len() > 0 && len(kept) < size {
		kept = append(kept, heap.Pop(ag).(*partial))
	}
	ag.items = kept
	heap.Init(ag)
}
