package pass2

import (
	"math"

	"github.com/agnivade/levenshtein"

	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lm"
	"github.com/example/lvcsr-decode/internal/search/pass1"
)

// epsWord marks a deletion/insertion slot in a word-level alignment; no real
// dictionary word is ever assigned this id.
const epsWord lm.WordID = -1

// MBRConfig tunes minimum-Bayes-risk rescoring (spec §4.4, grounded on
// original_source/libjulius/src/mbr.c's posterior-weighted risk shape).
type MBRConfig struct {
	// ScaleFactor controls how sharply the N-best list's scores are turned
	// into a posterior distribution: weight_i = 10^((score_i-max)*ScaleFactor).
	ScaleFactor float64
}

// DefaultMBRConfig mirrors mbr.c's typical acoustic/LM score scaling.
func DefaultMBRConfig() MBRConfig { return MBRConfig{ScaleFactor: 0.05} }

// posteriorWeights turns each hypothesis's raw log score into a normalized
// posterior probability over the N-best list.
func posteriorWeights(hyps []Hypothesis, cfg MBRConfig) []float64 {
	if len(hyps) == 0 {
		return nil
	}
	max := hyps[0].Score
	for _, h := range hyps {
		if h.Score > max {
			max = h.Score
		}
	}
	weights := make([]float64, len(hyps))
	var sum float64
	for i, h := range hyps {
		w := math.Pow(10, float64(h.Score-max)*cfg.ScaleFactor)
		weights[i] = w
		sum += w
	}
	if sum > 0 {
		for i := range weights {
			weights[i] /= sum
		}
	}
	return weights
}

// wordsToRunes maps a word sequence to a string so agnivade/levenshtein can
// compute a word-level (not character-level) edit distance: every distinct
// word id becomes one private-use-area rune.
func wordsToRunes(words []lm.WordID) string {
	rs := make([]rune, len(words))
	for i, w := range words {
		rs[i] = rune(0xE000 + int(w&0x0FFF))
	}
	return string(rs)
}

// SelectMBR picks the hypothesis in hyps minimizing expected word error
// against the posterior distribution of the whole N-best list (spec §4.4
// "MBR-selected hypothesis"), rather than simply returning the top-scoring
// one.
func SelectMBR(hyps []Hypothesis, cfg MBRConfig) (Hypothesis, error) {
	if len(hyps) == 0 {
		return Hypothesis{}, errNoHypotheses
	}
	weights := posteriorWeights(hyps, cfg)
	encoded := make([]string, len(hyps))
	for i, h := range hyps {
		encoded[i] = wordsToRunes(h.Words)
	}

	bestIdx := 0
	bestRisk := math.Inf(1)
	for i := range hyps {
		var risk float64
		for j := range hyps {
			if i == j {
				continue
			}
			d := levenshtein.ComputeDistance(encoded[i], encoded[j])
			risk += weights[j] * float64(d)
		}
		if risk < bestRisk {
			bestRisk = risk
			bestIdx = i
		}
	}
	return hyps[bestIdx], nil
}

type decodeError string

func (e decodeError) Error() string { return string(e) }

const errNoHypotheses = decodeError("pass2: no hypotheses to select from")

// ConfusionBin is one aligned slot of a confusion network: the set of words
// (plus a possible deletion, keyed by epsWord) competing for that slot and
// their accumulated posterior mass.
type ConfusionBin struct {
	Candidates map[lm.WordID]float64
}

// ConfusionNetwork is the sausage-shaped alternative to a full lattice,
// useful for word-level confidence display (spec §4.4, §6).
type ConfusionNetwork struct {
	Bins []ConfusionBin
}

// BuildConfusionNetwork aligns every hypothesis in hyps against the
// top-scoring one, anchoring insertions and substitutions to the reference
// hypothesis's word positions. This is a deliberate simplification of a full
// multiple-sequence-alignment sausage (mbr.c builds one from an explicit
// lattice, which pass 2 here does not retain in full): with an N-best list
// rather than a lattice, anchoring to the single best path's positions is
// the tractable approximation.
func BuildConfusionNetwork(hyps []Hypothesis, cfg MBRConfig) *ConfusionNetwork {
	if len(hyps) == 0 {
		return &ConfusionNetwork{}
	}
	ref := hyps[0].Words
	weights := posteriorWeights(hyps, cfg)

	bins := make([]ConfusionBin, len(ref))
	for i := range bins {
		bins[i].Candidates = map[lm.WordID]float64{}
	}
	if len(ref) == 0 {
		return &ConfusionNetwork{Bins: bins}
	}

	for hi, hyp := range hyps {
		pairs := alignWords(ref, hyp.Words)
		pos := 0
		for _, pr := range pairs {
			if pr[0] != epsWord {
				if pos >= len(bins) {
					pos = len(bins) - 1
				}
				bins[pos].Candidates[pr[1]] += weights[hi]
				pos++
			} else if pos > 0 {
				bins[pos-1].Candidates[pr[1]] += weights[hi]
			} else {
				bins[0].Candidates[pr[1]] += weights[hi]
			}
		}
	}
	return &ConfusionNetwork{Bins: bins}
}

// alignWords runs a Needleman-Wunsch word-level alignment of ref against
// hyp (unit substitution/insertion/deletion cost) and returns the aligned
// pairs in order, using epsWord for a gap on either side.
func alignWords(ref, hyp []lm.WordID) [][2]lm.WordID {
	n, m := len(ref), len(hyp)
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
		dp[i][0] = i
	}
	for j := 0; j <= m; j++ {
		dp[0][j] = j
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			sub := dp[i-1][j-1]
			if ref[i-1] != hyp[j-1] {
				sub++
			}
			del := dp[i-1][j] + 1
			ins := dp[i][j-1] + 1
			best := sub
			if del < best {
				best = del
			}
			if ins < best {
				best = ins
			}
			dp[i][j] = best
		}
	}

	var pairs [][2]lm.WordID
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && dp[i][j] == dp[i-1][j-1]+cost(ref[i-1], hyp[j-1]):
			pairs = append(pairs, [2]lm.WordID{ref[i-1], hyp[j-1]})
			i--
			j--
		case i > 0 && dp[i][j] == dp[i-1][j]+1:
			pairs = append(pairs, [2]lm.WordID{ref[i-1], epsWord})
			i--
		default:
			pairs = append(pairs, [2]lm.WordID{epsWord, hyp[j-1]})
			j--
		}
	}
	for l, r := 0, len(pairs)-1; l < r; l, r = l+1, r-1 {
		pairs[l], pairs[r] = pairs[r], pairs[l]
	}
	return pairs
}

func cost(a, b lm.WordID) int {
	if a == b {
		return 0
	}
	return 1
}

// LatticeNode is one trellis-derived word hypothesis exposed as lattice
// data for downstream consumers (spec §4.4, §6 lattice output).
type LatticeNode struct {
	WordID     lm.WordID
	BeginFrame int
	EndFrame   int
	Score      amodel.LogProb
}

// LatticeEdge links a word to its surviving predecessor.
type LatticeEdge struct {
	From, To int
}

// Lattice is the trellis pass 1 produced, re-exposed as a generic node/edge
// graph rather than pass1's internal frame-indexed form.
type Lattice struct {
	Nodes []LatticeNode
	Edges []LatticeEdge
}

// BuildLattice converts pass 1's back-trellis into a standalone lattice: one
// node per surviving word end, one edge per Pred link.
func BuildLattice(trellis *pass1.Trellis) *Lattice {
	nodes := make([]LatticeNode, len(trellis.Entries))
	var edges []LatticeEdge
	for i, e := range trellis.Entries {
		nodes[i] = LatticeNode{WordID: e.WordID, BeginFrame: e.BeginFrame, EndFrame: e.EndFrame, Score: e.Score}
		if e.Pred >= 0 {
			edges = append(edges, LatticeEdge{From: int(e.Pred), To: i})
		}
	}
	return &Lattice{Nodes: nodes, Edges: edges}
}
