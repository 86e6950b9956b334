package acoustic

import (
	"sort"

	"github.com/example/lvcsr-decode/internal/amodel"
)

// componentScore is one surviving mixture component's Gaussian-only
// log-likelihood (no mixture weight applied yet), spec §4.1: "All pruners
// emit {mixture_id, score}[] of length <= configured top-N; callers add
// mixture weights and log-sum."
type componentScore struct {
	idx   int
	score amodel.LogProb
}

// insertSorted inserts cs into kept (sorted by descending score), evicting
// the worst entry once kept reaches cap.
func insertSorted(kept []componentScore, cs componentScore, capN int) []componentScore {
	i := sort.Search(len(kept), func(i int) bool { return kept[i].score < cs.score })
	kept = append(kept, componentScore{})
	copy(kept[i+1:], kept[i:])
	kept[i] = cs
	if len(kept) > capN {
		kept = kept[:capN]
	}
	return kept
}

func (e *Engine) pruneComponents(gaussians []*amodel.Gaussian, x []float32, missing []bool, cb amodel.CodebookID) ([]componentScore, error) {
	if len(gaussians) == 0 {
		return nil, nil
	}
	switch e.cfg.Prune {
	case PruneSafe:
		return e.pruneSafe(gaussians, x, missing)
	case PruneHeuristic:
		return e.pruneHeuristic(gaussians, x, missing)
	case PruneBeam:
		return e.pruneBeam(gaussians, x, missing, cb)
	default:
		return pruneNone(gaussians, x, missing)
	}
}

func pruneNone(gaussians []*amodel.Gaussian, x []float32, missing []bool) ([]componentScore, error) {
	out := make([]componentScore, len(gaussians))
	for i, g := range gaussians {
		ll, err := g.LogLikelihood(x, missing)
		if err != nil {
			return nil, err
		}
		out[i] = componentScore{idx: i, score: ll}
	}
	return out, nil
}

// topNOrAll returns the configured top-N, clamped to the number of
// components (a topN <= 0 means "no limit", i.e. behave like PruneNone).
func (e *Engine) topNOrAll(n int) int {
	if e.cfg.TopN <= 0 || e.cfg.TopN >= n {
		return n
	}
	return e.cfg.TopN
}

// pruneSafe seeds the top-N set from the first components, then for every
// remaining component accumulates its weighted squared difference
// dimension by dimension, stopping as soon as the running value proves the
// component cannot beat the current worst kept score (spec §4.1 "safe"
// mode).
func (e *Engine) pruneSafe(gaussians []*amodel.Gaussian, x []float32, missing []bool) ([]componentScore, error) {
	topN := e.topNOrAll(len(gaussians))
	if topN == len(gaussians) {
		return pruneNone(gaussians, x, missing)
	}
	kept := make([]componentScore, 0, topN)
	for i := 0; i < topN; i++ {
		ll, err := gaussians[i].LogLikelihood(x, missing)
		if err != nil {
			return nil, err
		}
		kept = insertSorted(kept, componentScore{idx: i, score: ll}, topN)
	}
	threshold := kept[len(kept)-1].score
	for i := topN; i < len(gaussians); i++ {
		g := gaussians[i]
		sum, exceeded := partialWeightedSquaredDiff(x, g, missing, nil, threshold)
		if exceeded {
			continue
		}
		ll := amodel.LogProb(-0.5 * (g.GConst + sum))
		if ll > threshold {
			kept = insertSorted(kept, componentScore{idx: i, score: ll}, topN)
			threshold = kept[len(kept)-1].score
		}
	}
	return kept, nil
}

// pruneHeuristic applies the same early-exit bound as pruneSafe but walks
// each Gaussian's dimensions in descending invVar order, so the
// highest-discriminating dimensions dominate the running partial sum first
// and the bound tightens sooner (spec §4.1 "heuristic" mode's per-dimension
// suffix-max idea, realized here as a dimension visiting order rather than a
// precomputed suffix table).
func (e *Engine) pruneHeuristic(gaussians []*amodel.Gaussian, x []float32, missing []bool) ([]componentScore, error) {
	topN := e.topNOrAll(len(gaussians))
	if topN == len(gaussians) {
		return pruneNone(gaussians, x, missing)
	}
	kept := make([]componentScore, 0, topN)
	for i := 0; i < topN; i++ {
		ll, err := gaussians[i].LogLikelihood(x, missing)
		if err != nil {
			return nil, err
		}
		kept = insertSorted(kept, componentScore{idx: i, score: ll}, topN)
	}
	threshold := kept[len(kept)-1].score
	for i := topN; i < len(gaussians); i++ {
		g := gaussians[i]
		order := dimensionOrderByInvVar(g)
		sum, exceeded := partialWeightedSquaredDiff(x, g, missing, order, threshold)
		if exceeded {
			continue
		}
		ll := amodel.LogProb(-0.5 * (g.GConst + sum))
		if ll > threshold {
			kept = insertSorted(kept, componentScore{idx: i, score: ll}, topN)
			threshold = kept[len(kept)-1].score
		}
	}
	return kept, nil
}

func dimensionOrderByInvVar(g *amodel.Gaussian) []int {
	order := make([]int, len(g.InvVar))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return g.InvVar[order[i]] > g.InvVar[order[j]] })
	return order
}

// partialWeightedSquaredDiff accumulates (x_i - mean_i)^2 * invVar_i over
// dims (in the given visiting order, or left-to-right if nil), returning
// early with exceeded=true once the running optimistic score — treating
// every unvisited dimension as contributing zero — already falls at or
// below threshold, since every remaining term can only make the score
// worse.
func partialWeightedSquaredDiff(x []float32, g *amodel.Gaussian, missing []bool, order []int, threshold amodel.LogProb) (float32, bool) {
	var sum float32
	n := len(g.Mean)
	for k := 0; k < n; k++ {
		d := k
		if order != nil {
			d = order[k]
		}
		if missing != nil && missing[d] {
			continue
		}
		diff := x[d] - g.Mean[d]
		sum += diff * diff * g.InvVar[d]
		bound := amodel.LogProb(-0.5 * (g.GConst + sum))
		if bound <= threshold {
			return sum, true
		}
	}
	return sum, false
}

// pruneBeam maintains a per-dimension upper bound derived from the
// previous frame's top components for the same codebook (or, absent that,
// the first topN components this frame) plus a fixed slack, pruning a
// component as soon as any single dimension's term exceeds its bound
// (spec §4.1 "beam" mode).
func (e *Engine) pruneBeam(gaussians []*amodel.Gaussian, x []float32, missing []bool, cb amodel.CodebookID) ([]componentScore, error) {
	topN := e.topNOrAll(len(gaussians))
	if topN == len(gaussians) {
		return pruneNone(gaussians, x, missing)
	}
	seed := e.prevTop[cb]
	if len(seed) == 0 {
		seed = make([]int, topN)
		for i := range seed {
			seed[i] = i
		}
	}
	dim := len(gaussians[0].Mean)
	bound := make([]float32, dim)
	inSeed := make(map[int]bool, len(seed))
	kept := make([]componentScore, 0, topN)
	for _, idx := range seed {
		if idx < 0 || idx >= len(gaussians) {
			continue
		}
		inSeed[idx] = true
		g := gaussians[idx]
		sum := float32(0)
		for d := 0; d < dim; d++ {
			if missing != nil && missing[d] {
				continue
			}
			diff := x[d] - g.Mean[d]
			term := diff * diff * g.InvVar[d]
			if term > bound[d] {
				bound[d] = term
			}
			sum += term
		}
		ll := amodel.LogProb(-0.5 * (g.GConst + sum))
		kept = insertSorted(kept, componentScore{idx: idx, score: ll}, topN)
	}
	for d := range bound {
		bound[d] += e.cfg.BeamSlack
	}
	for i, g := range gaussians {
		if inSeed[i] {
			continue
		}
		pruned := false
		sum := float32(0)
		for d := 0; d < dim; d++ {
			if missing != nil && missing[d] {
				continue
			}
			diff := x[d] - g.Mean[d]
			term := diff * diff * g.InvVar[d]
			if term > bound[d] {
				pruned = true
				break
			}
			sum += term
		}
		if pruned {
			continue
		}
		ll := amodel.LogProb(-0.5 * (g.GConst + sum))
		if len(kept) < topN || ll > kept[len(kept)-1].score {
			kept = insertSorted(kept, componentScore{idx: i, score: ll}, topN)
		}
	}
	ids := make([]int, len(kept))
	for i, cs := range kept {
		ids[i] = cs.idx
	}
	e.prevTop[cb] = ids
	return kept, nil
}
