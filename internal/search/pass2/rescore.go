// Package pass2 implements the A*-like stack decoder of spec §4.4: it
// reconstructs sentence hypotheses backward from the trellis pass 1 left
// behind, rescoring every word with an exact (not pooled pseudo-phone)
// cross-word acoustic context and the pass-2 language model, then
// produces an N-best list, a word lattice, and an MBR-selected hypothesis.
// Each word's LM score is conditioned on the single word before it (the
// sentence-initial word on the unigram), whatever the model's order; longer
// contexts are not used.
package pass2

import (
	"fmt"

	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lexicon"
)

// chainLink is one emitting state of a word's flattened phone chain, with
// the transition cost of entering it from the previous chain position.
type chainLink struct {
	state    *amodel.State
	selfLoop amodel.LogProb
	enter    amodel.LogProb
}

// buildExactChain resolves w's word-boundary phones to concrete triphones
// given the actual left and right neighbor phones (known only now that the
// surrounding words in this hypothesis are fixed), instead of the pooled
// pseudo-phone sets the tree used during pass 1 (spec §4.1, §9 cdset.c
// fallback order), and flattens every phone's emitting states into one
// chain for Viterbi alignment.
func buildExactChain(idx *amodel.Index, w *lexicon.Word, leftNeighbor, rightNeighbor string) ([]chainLink, error) {
	n := len(w.Phones)
	if n == 0 {
		return nil, fmt.Errorf("pass2: word %q has no phones", w.Surface)
	}
	hmms := make([]*amodel.LogicalHMM, n)
	for i, slot := range w.Phones {
		switch {
		case n == 1:
			h, err := lexicon.ExpandWordInternal(idx, leftNeighbor, slot.Base, rightNeighbor)
			if err != nil {
				return nil, fmt.Errorf("pass2: resolving sole phone of %q: %w", w.Surface, err)
			}
			hmms[i] = h
		case i == 0:
			h, err := lexicon.ExpandWordInternal(idx, leftNeighbor, slot.Base, w.Phones[1].Base)
			if err != nil {
				return nil, fmt.Errorf("pass2: resolving word-initial phone of %q: %w", w.Surface, err)
			}
			hmms[i] = h
		case i == n-1:
			h, err := lexicon.ExpandWordInternal(idx, w.Phones[i-1].Base, slot.Base, rightNeighbor)
			if err != nil {
				return nil, fmt.Errorf("pass2: resolving word-final phone of %q: %w", w.Surface, err)
			}
			hmms[i] = h
		default:
			// Interior phones were already resolved exactly at dictionary
			// build time; no neighbor here ever depends on cross-word
			// context.
			hmms[i] = slot.Plain
		}
	}

	var chain []chainLink
	var carryEnter amodel.LogProb
	haveCarry := false
	for _, hmm := range hmms {
		total := hmm.NumStates()
		emit := total - 2
		if emit <= 0 {
			return nil, fmt.Errorf("pass2: hmm %q has no emitting states", hmm.Name)
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
			chain = append(chain, chainLink{
				state:    hmm.EmittingState(k),
				selfLoop: hmm.TransitionLogProb(k+1, k+1),
				enter:    enter,
			})
		}
		carryEnter = hmm.TransitionLogProb(emit, emit+1)
		haveCarry = true
	}
	return chain, nil
}

// acousticScorer is the subset of acoustic.Engine pass2 rescoring needs.
type acousticScorer interface {
	Outprob(t int, state *amodel.State, param amodel.FrameVector) (amodel.LogProb, error)
}

// exactWordScore runs a strict left-to-right Viterbi alignment of w's exact
// phone chain against frames[beginFrame:endFrame+1] (spec §4.4 "precise
// cross-word context recomputation on expansion", grounded on the forced
// alignment shape of original_source/libsent/src/phmm/vsegment.c). It
// returns amodel.LogZero if the segment is too short to host every emitting
// state at least once.
func exactWordScore(idx *amodel.Index, w *lexicon.Word, leftNeighbor, rightNeighbor string, am acousticScorer, frames []amodel.FrameVector, beginFrame, endFrame int) (amodel.LogProb, error) {
	chain, err := buildExactChain(idx, w, leftNeighbor, rightNeighbor)
	if err != nil {
		return 0, err
	}
	s := len(chain)
	tcount := endFrame - beginFrame + 1
	if tcount < s {
		return amodel.LogZero, nil
	}

	dp := make([][]amodel.LogProb, tcount)
	for t := range dp {
		dp[t] = make([]amodel.LogProb, s)
		for i := range dp[t] {
			dp[t][i] = amodel.LogZero
		}
	}
	ll0, err := am.Outprob(beginFrame, chain[0].state, frames[beginFrame])
	if err != nil {
		return 0, err
	}
	dp[0][0] = ll0

	for t := 1; t < tcount; t++ {
		frame := frames[beginFrame+t]
		for i := 0; i < s; i++ {
			best := amodel.LogZero
			if dp[t-1][i] > amodel.LogZero {
				if cand := dp[t-1][i] + chain[i].selfLoop; cand > best {
					best = cand
				}
			}
			if i > 0 && dp[t-1][i-1] > amodel.LogZero {
				if cand := dp[t-1][i-1] + chain[i].enter; cand > best {
					best = cand
				}
			}
			if best <= amodel.LogZero {
				continue
			}
			ll, err := am.Outprob(beginFrame+t, chain[i].state, frame)
			if err != nil {
				return 0, err
			}
			dp[t][i] = best + ll
		}
	}
	return dp[tcount-1][s-1], nil
}
