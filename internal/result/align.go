// Package result implements spec §4.5's result formatter: turning a
// completed word-id sequence into display-ready surface/phone sequences
// with confidence and AM/LM sub-scores, plus optional forced alignment
// (viterbi_segment) at word, phone, or state granularity.
package result

import (
	"fmt"

	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lexicon"
	"github.com/example/lvcsr-decode/internal/lm"
)

// Unit selects which state-ids are treated as alignment-unit boundaries
// (spec §4.5).
type Unit int

const (
	UnitWord Unit = iota
	UnitPhone
	UnitState
)

// AlignmentSegment is one unit's forced-alignment result.
type AlignmentSegment struct {
	Label    string // surface word, phone base, or state id string
	EndFrame int
	AvgScore amodel.LogProb
}

// segLink is one emitting state in the sentence's fully concatenated exact
// phone chain, tagged with which word/phone it belongs to.
type segLink struct {
	state    *amodel.State
	selfLoop amodel.LogProb
	enter    amodel.LogProb
	wordIdx  int
	phoneIdx int
	word     *lexicon.Word
	phone    string
}

// acousticScorer is the subset of acoustic.Engine forced alignment needs.
type acousticScorer interface {
	Outprob(t int, state *amodel.State, param amodel.FrameVector) (amodel.LogProb, error)
}

func lastPhoneBase(w *lexicon.Word) string  { return w.Phones[len(w.Phones)-1].Base }
func firstPhoneBase(w *lexicon.Word) string { return w.Phones[0].Base }

// buildSentenceChain resolves every word-boundary phone in words to a
// concrete triphone given its real neighbor (the word before/after it in
// the sentence, or "" at the utterance edges), flattening the whole
// sentence into one emitting-state chain for a single global Viterbi pass
// (spec §4.5: "a single-model Viterbi over the concatenated HMM of the
// result word sequence"), grounded on the forced-alignment shape of
// original_source/libsent/src/phmm/vsegment.c.
func buildSentenceChain(idx *amodel.Index, dict *lexicon.Dictionary, words []lm.WordID) ([]segLink, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("result: empty word sequence")
	}
	resolved := make([]*lexicon.Word, len(words))
	for i, wid := range words {
		w, ok := dict.Word(wid)
		if !ok {
			return nil, fmt.Errorf("result: unknown word id %d", wid)
		}
		resolved[i] = w
	}

	var chain []segLink
	var carryEnter amodel.LogProb
	haveCarry := false
	for wi, w := range resolved {
		left := ""
		if wi > 0 {
			left = lastPhoneBase(resolved[wi-1])
		}
		right := ""
		if wi < len(resolved)-1 {
			right = firstPhoneBase(resolved[wi+1])
		}

		n := len(w.Phones)
		if n == 0 {
			return nil, fmt.Errorf("result: word %q has no phones", w.Surface)
		}
		hmms := make([]*amodel.LogicalHMM, n)
		for pi, slot := range w.Phones {
			switch {
			case n == 1:
				h, err := lexicon.ExpandWordInternal(idx, left, slot.Base, right)
				if err != nil {
					return nil, fmt.Errorf("result: resolving sole phone of %q: %w", w.Surface, err)
				}
				hmms[pi] = h
			case pi == 0:
				h, err := lexicon.ExpandWordInternal(idx, left, slot.Base, w.Phones[1].Base)
				if err != nil {
					return nil, fmt.Errorf("result: resolving word-initial phone of %q: %w", w.Surface, err)
				}
				hmms[pi] = h
			case pi == n-1:
				h, err := lexicon.ExpandWordInternal(idx, w.Phones[pi-1].Base, slot.Base, right)
				if err != nil {
					return nil, fmt.Errorf("result: resolving word-final phone of %q: %w", w.Surface, err)
				}
				hmms[pi] = h
			default:
				hmms[pi] = slot.Plain
			}
		}

		for pi, hmm := range hmms {
			total := hmm.NumStates()
			emit := total - 2
			if emit <= 0 {
				return nil, fmt.Errorf("result: hmm %q has no emitting states", hmm.Name)
			}
			for k := 0; k < emit; k++ {
				var enter amodel.LogProb
				if k == 0 {
					if haveCarry {
						enter = carryEnter
					} else {
						enter = hmm.TransitionLogProb(0, 1)
					}
				} else {
					enter = hmm.TransitionLogProb(k, k+1)
				}
				chain = append(chain, segLink{
					state:    hmm.EmittingState(k),
					selfLoop: hmm.TransitionLogProb(k+1, k+1),
					enter:    enter,
					wordIdx:  wi,
					phoneIdx: pi,
					word:     w,
					phone:    w.Phones[pi].Base,
				})
			}
			carryEnter = hmm.TransitionLogProb(emit, emit+1)
			haveCarry = true
		}
	}
	return chain, nil
}

// ViterbiSegment runs a strict left-to-right forced alignment of words
// against frames and collapses the resulting state path into segments at
// the requested granularity (spec §4.5).
func ViterbiSegment(idx *amodel.Index, dict *lexicon.Dictionary, words []lm.WordID, am acousticScorer, frames []amodel.FrameVector, unit Unit) ([]AlignmentSegment, error) {
	chain, err := buildSentenceChain(idx, dict, words)
	if err != nil {
		return nil, err
	}
	s := len(chain)
	tcount := len(frames)
	if tcount < s {
		return nil, fmt.Errorf("result: %d frames too few to host %d chain states", tcount, s)
	}

	dp := make([][]amodel.LogProb, tcount)
	back := make([][]int8, tcount) // 0 = came from self-loop, 1 = came from advance
	for t := range dp {
		dp[t] = make([]amodel.LogProb, s)
		back[t] = make([]int8, s)
		for i := range dp[t] {
			dp[t][i] = amodel.LogZero
		}
	}
	ll0, err := am.Outprob(0, chain[0].state, frames[0])
	if err != nil {
		return nil, err
	}
	dp[0][0] = ll0

	for t := 1; t < tcount; t++ {
		frame := frames[t]
		for i := 0; i < s; i++ {
			best := amodel.LogZero
			var from int8
			if dp[t-1][i] > amodel.LogZero {
				best = dp[t-1][i] + chain[i].selfLoop
				from = 0
			}
			if i > 0 && dp[t-1][i-1] > amodel.LogZero {
				if cand := dp[t-1][i-1] + chain[i].enter; cand > best {
					best = cand
					from = 1
				}
			}
			if best <= amodel.LogZero {
				continue
			}
			ll, err := am.Outprob(t, chain[i].state, frame)
			if err != nil {
				return nil, err
			}
			dp[t][i] = best + ll
			back[t][i] = from
		}
	}
	if dp[tcount-1][s-1] <= amodel.LogZero {
		return nil, fmt.Errorf("result: forced alignment failed to reach the final chain state")
	}

	path := make([]int, tcount)
	i := s - 1
	for t := tcount - 1; t >= 0; t-- {
		path[t] = i
		if t == 0 {
			break
		}
		if back[t][i] == 1 {
			i--
		}
	}

	return collapseUnits(chain, path, dp, unit), nil
}

// collapseUnits walks the frame-by-frame chain-index path and emits one
// AlignmentSegment per run of frames sharing the same unit label.
func collapseUnits(chain []segLink, path []int, dp [][]amodel.LogProb, unit Unit) []AlignmentSegment {
	var segs []AlignmentSegment
	labelOf := func(ci int) string {
		switch unit {
		case UnitWord:
			return chain[ci].word.Surface
		case UnitPhone:
			return chain[ci].phone
		default:
			return fmt.Sprintf("s%d", chain[ci].state.Sid)
		}
	}
	boundaryOf := func(ci int) int {
		switch unit {
		case UnitWord:
			return chain[ci].wordIdx
		case UnitPhone:
			return chain[ci].wordIdx*1_000_000 + chain[ci].phoneIdx
		default:
			return ci
		}
	}

	curBoundary := boundaryOf(path[0])
	curLabel := labelOf(path[0])
	var sum amodel.LogProb
	var count int
	for t, ci := range path {
		b := boundaryOf(ci)
		if b != curBoundary {
			segs = append(segs, AlignmentSegment{Label: curLabel, EndFrame: t - 1, AvgScore: sum / amodel.LogProb(count)})
			curBoundary = b
			curLabel = labelOf(ci)
			sum, count = 0, 0
		}
		sum += dp[t][ci]
		count++
	}
	segs = append(segs, AlignmentSegment{Label: curLabel, EndFrame: len(path) - 1, AvgScore: sum / amodel.LogProb(count)})
	return segs
}
