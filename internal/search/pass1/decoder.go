package pass1

import (
	"fmt"
	"sort"

	"github.com/example/lvcsr-decode/internal/acoustic"
	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lexicon"
	"github.com/example/lvcsr-decode/internal/lm"
)

// Config holds pass 1's tunables (spec §4.3, §9).
type Config struct {
	BeamWidth        amodel.LogProb // tokens more than BeamWidth below the frame's best are dropped
	HypoLimit        int            // 0 means unlimited
	WordPairApprox   bool           // merge by (node, predecessor word) instead of by node alone
	InsertionPenalty amodel.LogProb
	PauseWordID      lm.WordID // meaningful only when HasPauseWord is set
	HasPauseWord     bool
	// FrameHook, if set, is called once per frame after that frame's tokens
	// are pruned (spec §5 callback ordering: "pass1_frame*"). It takes no
	// lock and must not mutate the decoder.
	FrameHook func(t int)
}

// DefaultConfig returns reasonable pass-1 tunables.
func DefaultConfig() Config {
	return Config{BeamWidth: -150, InsertionPenalty: -2}
}

// token is pass 1's per-node search state (spec §3 "Search tokens").
type token struct {
	score      amodel.LogProb
	lmContext  lm.WordID
	beginFrame int
	pred       int32 // trellis index of the word preceding lmContext's word, or -1
	dfaState   lm.DFAStateID
}

// hypoKey identifies one surviving hypothesis at a tree node. Under plain
// Viterbi convergence ctx is always zero, so every path through a node
// merges into one; under the word-pair approximation (spec §4.3) ctx is the
// token's predecessor word, so one hypothesis survives per distinct
// predecessor sharing that node.
type hypoKey struct {
	node lexicon.NodeID
	ctx  lm.WordID
}

// Decoder runs the frame-synchronous Viterbi search over one WCHMM tree.
type Decoder struct {
	tree   *lexicon.Tree
	dict   *lexicon.Dictionary
	am     *acoustic.Engine
	index  *amodel.Index
	bigram *lm.NGram // forward 2-gram, required in N-gram mode
	dfa    *lm.DFA   // non-nil in grammar mode
	cfg    Config

	active map[hypoKey]token
}

// NewDecoder builds a pass-1 decoder. Exactly one of bigram or dfa must be
// non-nil.
func NewDecoder(tree *lexicon.Tree, dict *lexicon.Dictionary, am *acoustic.Engine, index *amodel.Index, bigram *lm.NGram, dfa *lm.DFA, cfg Config) (*Decoder, error) {
	if (bigram == nil) == (dfa == nil) {
		return nil, fmt.Errorf("pass1: exactly one of bigram or dfa must be provided")
	}
	return &Decoder{tree: tree, dict: dict, am: am, index: index, bigram: bigram, dfa: dfa, cfg: cfg}, nil
}

// Run executes the search over frames, returning the back-trellis and the
// index of the single best-scoring complete word sequence (spec §4.3's
// fallback), or -1 if no token ever reached a sentence-final word end.
func (d *Decoder) Run(frames []amodel.FrameVector) (*Trellis, int32, error) {
	n := len(frames)
	if n == 0 {
		return nil, -1, fmt.Errorf("pass1: no frames to decode")
	}
	d.am.Prepare(n, d.index.TotalStateNum())
	trellis := newTrellis(n)

	d.active = make(map[hypoKey]token)
	if err := d.seed(frames[0], trellis); err != nil {
		return nil, -1, err
	}

	for t := 1; t < n; t++ {
		next, err := d.step(t, frames[t], trellis)
		if err != nil {
			return nil, -1, err
		}
		d.active = d.prune(next)
		if d.cfg.FrameHook != nil {
			d.cfg.FrameHook(t)
		}
	}

	best := d.finalize(n-1, trellis)
	return trellis, best, nil
}

// seed places a token on every admissible sentence-initial word's begin
// node with that word's own frame-0 outprob applied.
func (d *Decoder) seed(frame0 amodel.FrameVector, trellis *Trellis) error {
	for _, w := range d.dict.Words() {
		if !d.beginAllowed(w) {
			continue
		}
		span, ok := d.tree.WordSpan(w.ID)
		if !ok {
			continue
		}
		ll, err := d.nodeOutprob(0, span.BeginNode, frame0)
		if err != nil {
			return err
		}
		tok := token{score: ll, lmContext: 0, beginFrame: 0, pred: -1, dfaState: d.dfaStartState()}
		d.mergeInto(d.active, span.BeginNode, tok)
	}
	return nil
}

func (d *Decoder) beginAllowed(w *lexicon.Word) bool {
	if d.dfa == nil {
		return true
	}
	return d.dfa.BeginAllowed(w.Category)
}

func (d *Decoder) dfaStartState() lm.DFAStateID {
	return 0
}

// step advances every active token by one frame: within-phone continuation
// (self-loop and forward arcs) plus, for tokens sitting on a word-end node,
// cross-word expansion onto every admissible next word. Both kinds of
// continuation merge into one proposal set before outprob is applied, so a
// node never pays for its emission more than once per frame.
func (d *Decoder) step(t int, frame amodel.FrameVector, trellis *Trellis) (map[hypoKey]token, error) {
	proposals := make(map[hypoKey]token)

	for key, tok := range d.active {
		n := d.tree.Node(key.node)
		if n.SelfLoop > amodel.LogZero {
			cand := tok
			cand.score += n.SelfLoop
			d.mergeInto(proposals, key.node, cand)
		}
		for _, arc := range n.Forward {
			cand := tok
			cand.score += arc.LogProb
			d.mergeInto(proposals, arc.To, cand)
		}
		if word, ok := d.wordEndAt(key.node); ok {
			if err := d.expandCrossWord(t, word, tok, trellis, proposals); err != nil {
				return nil, err
			}
		}
	}

	for key, tok := range proposals {
		ll, err := d.nodeOutprob(t, key.node, frame)
		if err != nil {
			return nil, err
		}
		tok.score += ll
		proposals[key] = tok
	}
	return proposals, nil
}

// wordEndAt reports whether nodeID is some word's EndNode.
func (d *Decoder) wordEndAt(nodeID lexicon.NodeID) (*lexicon.Word, bool) {
	for _, span := range d.tree.Words {
		if span.EndNode == nodeID {
			w, ok := d.dict.Word(span.WordID)
			return w, ok
		}
	}
	return nil, false
}

// expandCrossWord emits a trellis entry for word ending at frame t under
// tok, then proposes a continuation token at every admissible next word's
// begin node (spec §4.3 step 2).
func (d *Decoder) expandCrossWord(t int, word *lexicon.Word, tok token, trellis *Trellis, proposals map[hypoKey]token) error {
	entry := TrellisEntry{
		WordID:     word.ID,
		BeginFrame: tok.beginFrame,
		EndFrame:   t - 1,
		Score:      tok.score,
		LMContext:  tok.lmContext,
		Pred:       tok.pred,
	}
	idx := trellis.add(entry)

	for _, succ := range d.admissibleSuccessors(word, tok.dfaState) {
		if err := d.proposeEntry(t, word, succ.word, tok.score, idx, succ.state, proposals); err != nil {
			return err
		}
		if d.cfg.HasPauseWord && succ.word.ID == d.cfg.PauseWordID {
			// Pre-expand past the pause at the same frame so a hypothesis
			// can skip it entirely (spec §4.3 "Short-pause handling").
			for _, afterPause := range d.admissibleSuccessors(succ.word, succ.state) {
				if err := d.proposeEntry(t, word, afterPause.word, tok.score, idx, afterPause.state, proposals); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// proposeEntry scores the transition from `from` (already on the trellis as
// predIdx) into `to`, and merges the resulting token onto to's begin node.
// dfaState is the grammar state entered by taking `to`, already resolved by
// admissibleSuccessors, and is what the new token carries forward.
func (d *Decoder) proposeEntry(t int, from, to *lexicon.Word, baseScore amodel.LogProb, predIdx int32, dfaState lm.DFAStateID, proposals map[hypoKey]token) error {
	span, ok := d.tree.WordSpan(to.ID)
	if !ok {
		return nil
	}
	lmScore := d.lmScore(from.ID, to.ID)
	if lmScore <= lm.LogZero {
		return nil
	}
	cand := token{
		score:      baseScore + lmScore + d.cfg.InsertionPenalty,
		lmContext:  from.ID,
		beginFrame: t,
		pred:       predIdx,
		dfaState:   dfaState,
	}
	d.mergeInto(proposals, span.BeginNode, cand)
	return nil
}

// dfaSuccessor pairs an admissible next word with the grammar state
// entering it, so that state can be carried forward on the token without
// re-deriving it later (spec §4.3 step 2: "the DFA state tracked in the
// token").
type dfaSuccessor struct {
	word  *lexicon.Word
	state lm.DFAStateID
}

// admissibleSuccessors lists every word that may legally follow `from` out
// of dfaState. The category-pair table (lm.DFA.CanPrecede) is checked
// first as an O(1) filter before the per-state arc walk in Transition, so
// Transition is only ever called for candidates the grammar could plausibly
// admit.
func (d *Decoder) admissibleSuccessors(from *lexicon.Word, dfaState lm.DFAStateID) []dfaSuccessor {
	words := d.dict.Words()
	if d.dfa == nil {
		out := make([]dfaSuccessor, len(words))
		for i, w := range words {
			out[i] = dfaSuccessor{word: w}
		}
		return out
	}
	var out []dfaSuccessor
	for _, w := range words {
		if !d.dfa.CanPrecede(from.Category, w.Category) {
			continue
		}
		next, err := d.dfa.Transition(dfaState, w.Category)
		if err != nil {
			continue
		}
		out = append(out, dfaSuccessor{word: w, state: next})
	}
	return out
}

func (d *Decoder) lmScore(from, to lm.WordID) amodel.LogProb {
	if d.bigram != nil {
		return amodel.LogProb(d.bigram.ConditionalLogProb([]lm.WordID{from}, to))
	}
	return 0 // DFA mode: category-pair is a hard filter, no probability factoring (spec §4.3)
}

// nodeOutprob dispatches to the engine's plain or pooled outprob call
// depending on the node's emission kind.
func (d *Decoder) nodeOutprob(t int, id lexicon.NodeID, frame amodel.FrameVector) (amodel.LogProb, error) {
	n := d.tree.Node(id)
	if n.Emission == lexicon.EmitPlain {
		return d.am.Outprob(t, n.State, frame)
	}
	return d.am.OutprobCD(t, n.Pooled, frame)
}

// mergeKey computes the hypothesis key a token should merge under: plain
// Viterbi convergence collapses every predecessor onto one hypothesis per
// node, while the word-pair approximation keeps one per predecessor word.
func (d *Decoder) mergeKey(node lexicon.NodeID, cand token) hypoKey {
	if d.cfg.WordPairApprox {
		return hypoKey{node: node, ctx: cand.lmContext}
	}
	return hypoKey{node: node}
}

func (d *Decoder) mergeInto(m map[hypoKey]token, node lexicon.NodeID, cand token) {
	key := d.mergeKey(node, cand)
	if existing, ok := m[key]; ok {
		if cand.score > existing.score {
			m[key] = cand
		}
		return
	}
	m[key] = cand
}

// prune applies the global score beam and the optional hypothesis-count
// limit (spec §4.3 step 3).
func (d *Decoder) prune(tokens map[hypoKey]token) map[hypoKey]token {
	if len(tokens) == 0 {
		return tokens
	}
	best := amodel.LogProb(-1e30)
	for _, tok := range tokens {
		if tok.score > best {
			best = tok.score
		}
	}
	threshold := best + d.cfg.BeamWidth
	kept := make(map[hypoKey]token, len(tokens))
	for key, tok := range tokens {
		if tok.score >= threshold {
			kept[key] = tok
		}
	}
	if d.cfg.HypoLimit > 0 && len(kept) > d.cfg.HypoLimit {
		type scored struct {
			key hypoKey
			tok token
		}
		all := make([]scored, 0, len(kept))
		for key, tok := range kept {
			all = append(all, scored{key, tok})
		}
		sort.Slice(all, func(i, j int) bool { return all[i].tok.score > all[j].tok.score })
		kept = make(map[hypoKey]token, d.cfg.HypoLimit)
		for _, s := range all[:d.cfg.HypoLimit] {
			kept[s.key] = s.tok
		}
	}
	return kept
}

// finalize emits trellis entries for every word-end token still active at
// the last frame and returns the index of the single best one, which
// pass 1's fallback result is built from.
func (d *Decoder) finalize(lastFrame int, trellis *Trellis) int32 {
	var best int32 = -1
	var bestScore amodel.LogProb
	for key, tok := range d.active {
		word, ok := d.wordEndAt(key.node)
		if !ok {
			continue
		}
		if d.dfa != nil && !d.dfa.EndAllowed(word.Category) {
			continue
		}
		entry := TrellisEntry{
			WordID:     word.ID,
			BeginFrame: tok.beginFrame,
			EndFrame:   lastFrame,
			Score:      tok.score,
			LMContext:  tok.lmContext,
			Pred:       tok.pred,
		}
		idx := trellis.add(entry)
		if best == -1 || tok.score > bestScore {
			best = idx
			bestScore = tok.score
		}
	}
	return best
}
