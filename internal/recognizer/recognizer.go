// Package recognizer provides the top-level orchestration of spec §5's
// single-threaded cooperative pipeline: it wires the acoustic engine,
// pass-1 search, pass-2 stack decoder, and result formatter behind one
// Recognize call, in the teacher's Service-orchestrates-a-pipeline shape
// (internal/tts.Service.SynthesizeCtx), and implements the accept/reject
// gate and the recog_begin -> ... -> recog_end callback ordering of §5.
package recognizer

import (
	"context"
	"fmt"

	"github.com/example/lvcsr-decode/internal/acoustic"
	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lexicon"
	"github.com/example/lvcsr-decode/internal/lm"
	"github.com/example/lvcsr-decode/internal/result"
	"github.com/example/lvcsr-decode/internal/search/pass1"
	"github.com/example/lvcsr-decode/internal/search/pass2"
	"github.com/example/lvcsr-decode/internal/status"
)

// Config holds the recognizer's tunables (spec §4, §7).
type Config struct {
	Pass1             pass1.Config
	Pass2             pass2.Config
	MBR               pass2.MBRConfig
	EnableMBR         bool
	EnableAlignment   bool
	AlignmentUnit     result.Unit
	RejectShortFrames int
	RejectLongFrames  int // 0 means unlimited
	PowerThreshold    float32
}

// DefaultConfig returns reasonable end-to-end tunables.
func DefaultConfig() Config {
	return Config{
		Pass1:             pass1.DefaultConfig(),
		Pass2:             pass2.DefaultConfig(),
		MBR:               pass2.DefaultMBRConfig(),
		EnableMBR:         true,
		RejectShortFrames: 2,
		RejectLongFrames:  0,
	}
}

// Callbacks mirrors spec §5's lifecycle ordering:
// recog_begin -> pass1_begin -> pass1_frame* -> pass1_end -> pass2_begin ->
// result* -> pass2_end -> recog_end. Every field is optional.
type Callbacks struct {
	RecogBegin func()
	Pass1Begin func()
	Pass1Frame func(t int)
	Pass1End   func(fallback []lm.WordID)
	Pass2Begin func()
	Result     func(result.Sentence)
	Pass2End   func()
	RecogEnd   func(status.Code)
}

// Input is one utterance's feature data plus the optional per-frame power
// curve REJECT_POWER needs; power estimation is feature-extraction's job
// (spec §1 Non-goal), so Recognize never computes it itself — a nil Power
// simply disables the power-based reject check.
type Input struct {
	Frames []amodel.FrameVector
	Power  []float32
}

// Recognizer is one configured decoding pipeline instance. Per spec §5 its
// mutable per-utterance state must not be shared across goroutines; run
// concurrent utterances through separate Recognizer values over the same
// read-only model tables.
type Recognizer struct {
	dict   *lexicon.Dictionary
	index  *amodel.Index
	am     *acoustic.Engine
	tree   *lexicon.Tree
	bigram *lm.NGram // forward bigram, pass 1
	dfa    *lm.DFA   // non-nil in grammar mode
	main   *lm.NGram // full-order model, pass 2 rescoring (always required, even in DFA-mode)
	gmm    *GMMClassifier
	cfg    Config
}

// New builds a Recognizer. Exactly one of bigram or dfa must be supplied,
// matching pass1.NewDecoder's contract. gmm may be nil to disable the
// GMM-based accept/reject gate (REJECT_GMM/ONLY_SILENCE never fire).
//
// DFA-mode recognizers are scoped to a single category's tree: full
// multi-category grammar composition (one WCHMM per category, arcs
// crossing between them at word boundaries) is not built here, since
// pass1.Decoder already enforces the category-pair constraint within one
// tree's word list and a from-scratch composed grammar is outside this
// package's responsibility. This mirrors how internal/search/pass1's own
// tests exercise a single tree.
//
// main is required unconditionally, including in DFA-mode: pass 2
// (pass2.NewDecoder, below) always rescores the trellis with an N-gram, and
// there is no DFA-driven rescoring path. A pure-grammar recognizer must
// still supply an N-gram — commonly a unigram or low-order model trained
// over the grammar's own vocabulary — purely to drive pass 2's backward
// search; the DFA itself only constrains pass 1. Rescoring a DFA grammar a
// second time in pass 2 would be redundant with pass 1's own category-pair
// enforcement, since no word sequence that survives pass 1 can violate the
// grammar.
func New(dict *lexicon.Dictionary, index *amodel.Index, am *acoustic.Engine, tree *lexicon.Tree, bigram *lm.NGram, dfa *lm.DFA, main *lm.NGram, gmm *GMMClassifier, cfg Config) (*Recognizer, error) {
	if main == nil {
		return nil, fmt.Errorf("recognizer: a pass-2 language model is required")
	}
	return &Recognizer{dict: dict, index: index, am: am, tree: tree, bigram: bigram, dfa: dfa, main: main, gmm: gmm, cfg: cfg}, nil
}

// Recognize runs one utterance through the full pipeline. It always
// returns a status.Code; sentences is non-empty only on status.OK (or
// status.SearchFailed, when pass 1's single best-path fallback is still
// usable).
func (r *Recognizer) Recognize(ctx context.Context, in Input, cb Callbacks) (status.Code, []result.Sentence, error) {
	fire(cb.RecogBegin)
	code, sentences, err := r.recognize(ctx, in, cb)
	fireCode(cb.RecogEnd, code)
	return code, sentences, err
}

func (r *Recognizer) recognize(ctx context.Context, in Input, cb Callbacks) (status.Code, []result.Sentence, error) {
	if err := ctx.Err(); err != nil {
		return status.Terminate, nil, err
	}

	n := len(in.Frames)
	if n < r.cfg.RejectShortFrames {
		return status.RejectShort, nil, nil
	}
	if r.cfg.RejectLongFrames > 0 && n > r.cfg.RejectLongFrames {
		return status.RejectLong, nil, nil
	}
	if in.Power != nil && r.cfg.PowerThreshold > 0 {
		below := true
		for _, p := range in.Power {
			if p >= r.cfg.PowerThreshold {
				below = false
				break
			}
		}
		if below {
			return status.RejectPower, nil, nil
		}
	}
	if r.gmm != nil {
		onlySilence, lowConfidence, err := r.gmm.Classify(in.Frames)
		if err != nil {
			return status.SearchFailed, nil, fmt.Errorf("recognizer: gmm classification: %w", err)
		}
		if onlySilence {
			return status.OnlySilence, nil, nil
		}
		if lowConfidence {
			return status.RejectGMM, nil, nil
		}
	}

	fire(cb.Pass1Begin)
	pass1Cfg := r.cfg.Pass1
	pass1Cfg.FrameHook = cb.Pass1Frame
	dec, err := pass1.NewDecoder(r.tree, r.dict, r.am, r.index, r.bigram, r.dfa, pass1Cfg)
	if err != nil {
		return status.SearchFailed, nil, fmt.Errorf("recognizer: building pass-1 decoder: %w", err)
	}
	trellis, best, err := dec.Run(in.Frames)
	if err != nil {
		return status.SearchFailed, nil, fmt.Errorf("recognizer: pass 1: %w", err)
	}
	var fallback []lm.WordID
	if best >= 0 {
		fallback = trellis.WordSequence(best)
	}
	fireWords(cb.Pass1End, fallback)

	if best < 0 {
		return status.SearchFailed, nil, nil
	}
	if err := ctx.Err(); err != nil {
		return status.Terminate, nil, err
	}

	fire(cb.Pass2Begin)
	pass2Dec := pass2.NewDecoder(r.dict, r.index, r.am, r.main, r.cfg.Pass2)
	hyps, err := pass2Dec.Run(trellis, in.Frames)
	if err != nil {
		return status.SearchFailed, nil, fmt.Errorf("recognizer: pass 2: %w", err)
	}
	if len(hyps) == 0 {
		fallbackHyp := pass2.Hypothesis{Words: fallback, Score: trellis.Entries[best].Score}
		sentence, err := result.FromHypothesis(r.dict, fallbackHyp, nil)
		if err != nil {
			return status.SearchFailed, nil, err
		}
		fire(cb.Pass2End)
		return status.SearchFailed, []result.Sentence{sentence}, nil
	}

	cn := pass2.BuildConfusionNetwork(hyps, r.cfg.MBR)
	top := hyps[0]
	if r.cfg.EnableMBR {
		mbrBest, err := pass2.SelectMBR(hyps, r.cfg.MBR)
		if err != nil {
			return status.SearchFailed, nil, fmt.Errorf("recognizer: mbr selection: %w", err)
		}
		top = mbrBest
	}

	sentences := make([]result.Sentence, 0, len(hyps))
	for i, h := range hyps {
		s, err := result.FromHypothesis(r.dict, h, cn)
		if err != nil {
			return status.SearchFailed, nil, fmt.Errorf("recognizer: formatting hypothesis %d: %w", i, err)
		}
		if r.cfg.EnableAlignment && sameWords(h.Words, top.Words) {
			segs, err := result.ViterbiSegment(r.index, r.dict, h.Words, r.am, in.Frames, r.cfg.AlignmentUnit)
			if err != nil {
				return status.SearchFailed, nil, fmt.Errorf("recognizer: forced alignment: %w", err)
			}
			s = result.WithAlignment(s, segs)
		}
		sentences = append(sentences, s)
		fireResult(cb.Result, s)
	}
	fire(cb.Pass2End)

	return status.OK, sentences, nil
}

func sameWords(a, b []lm.WordID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func fire(f func()) {
	if f != nil {
		f()
	}
}

func fireCode(f func(status.Code), c status.Code) {
	if f != nil {
		f(c)
	}
}

func fireWords(f func([]lm.WordID), w []lm.WordID) {
	if f != nil {
		f(w)
	}
}

func fireResult(f func(result.Sentence), s result.Sentence) {
	if f != nil {
		f(s)
	}
}
