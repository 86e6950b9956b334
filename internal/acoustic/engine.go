package acoustic

import (
	"fmt"
	"math"

	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/vecmath"
)

// tiedKey is the tied-mixture cache key: (frame, codebook).
type tiedKey struct {
	frame int
	cb    amodel.CodebookID
}

// Engine is the acoustic likelihood engine of spec §4.1: a cached,
// pluggable-pruning Gaussian-mixture outprob evaluator. An Engine is reused
// across utterances; Prepare resets its per-utterance state.
type Engine struct {
	cfg     Config
	cache   *cache
	tied    map[tiedKey][]componentScore
	prevTop map[amodel.CodebookID][]int
	gms     *GMSTable
}

// NewEngine constructs an Engine under cfg. Call Prepare before the first
// Outprob call of an utterance.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, tied: make(map[tiedKey][]componentScore), prevTop: make(map[amodel.CodebookID][]int)}
}

// Prepare resizes and zeroes the per-frame cache and clears the
// tied-mixture and beam-seed state ahead of a new utterance (spec §4.1:
// "prepare(framenum) resizes per-frame caches and zeroes them").
func (e *Engine) Prepare(framenum, totalStates int) {
	e.cache = newCache(framenum, totalStates)
	e.tied = make(map[tiedKey][]componentScore)
	e.prevTop = make(map[amodel.CodebookID][]int)
	if e.gms != nil {
		e.gms.reset()
	}
}

// AttachGMS enables Gaussian mixture selection for subsequent Outprob calls.
func (e *Engine) AttachGMS(g *GMSTable) { e.gms = g }

// Outprob returns logP(vec | state), caching by (t, state.Sid) (spec
// §4.1's public contract).
func (e *Engine) Outprob(t int, state *amodel.State, param amodel.FrameVector) (amodel.LogProb, error) {
	if e.cache == nil {
		return 0, fmt.Errorf("acoustic: Outprob called before Prepare")
	}
	if v, ok := e.cache.get(t, state.Sid); ok {
		return v, nil
	}
	if e.gms != nil {
		if score, useFallback, err := e.gms.FallbackScore(t, state.Sid, e, param); err != nil {
			return 0, err
		} else if useFallback {
			e.cache.set(t, state.Sid, score)
			return score, nil
		}
	}
	ll, err := e.computeState(t, state, param)
	if err != nil {
		return 0, err
	}
	e.cache.set(t, state.Sid, ll)
	return ll, nil
}

// OutprobCD pools the scores of a pseudo-phone state set under the
// configured combiner (spec §4.1: "outprob_cd(t, pseudo_state_set, param)").
func (e *Engine) OutprobCD(t int, set *amodel.CDStateSet, param amodel.FrameVector) (amodel.LogProb, error) {
	if e.cache == nil {
		return 0, fmt.Errorf("acoustic: OutprobCD called before Prepare")
	}
	if v, ok := e.cache.get(t, set.Sid); ok {
		return v, nil
	}
	scores := make([]amodel.LogProb, 0, set.Len())
	for _, member := range set.Members {
		ll, err := e.Outprob(t, member, param)
		if err != nil {
			return 0, err
		}
		scores = append(scores, ll)
	}
	pooled := combine(scores, e.cfg.CDCombiner, e.cfg.CDTopK)
	e.cache.set(t, set.Sid, pooled)
	return pooled, nil
}

func combine(scores []amodel.LogProb, how CDCombiner, topK int) amodel.LogProb {
	if len(scores) == 0 {
		return amodel.LogZero
	}
	switch how {
	case CombineMax:
		best := scores[0]
		for _, s := range scores[1:] {
			if s > best {
				best = s
			}
		}
		return best
	case CombineTopK:
		sorted := append([]amodel.LogProb(nil), scores...)
		for i := 1; i < len(sorted); i++ {
			for j := i; j > 0 && sorted[j] > sorted[j-1]; j-- {
				sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
			}
		}
		k := topK
		if k <= 0 || k > len(sorted) {
			k = len(sorted)
		}
		return mean(sorted[:k])
	default: // CombineAverage
		return mean(scores)
	}
}

func mean(scores []amodel.LogProb) amodel.LogProb {
	var sum float64
	for _, s := range scores {
		sum += float64(s)
	}
	return amodel.LogProb(sum / float64(len(scores)))
}

// computeState evaluates every stream's mixture and sums the per-stream
// log-likelihoods (spec §3: "stream vector lengths sum to total vector
// length").
func (e *Engine) computeState(t int, state *amodel.State, param amodel.FrameVector) (amodel.LogProb, error) {
	if len(state.Streams) == 1 {
		ll, err := e.mixtureLogLikelihood(t, state.Streams[0], param.Values, param.Missing)
		return ll, err
	}
	lens, err := state.StreamVectorLengths()
	if err != nil {
		return 0, err
	}
	var total amodel.LogProb
	offset := 0
	for i, mix := range state.Streams {
		n := lens[i]
		if offset+n > len(param.Values) {
			return 0, fmt.Errorf("acoustic: frame vector too short for stream %d of state %d", i, state.Sid)
		}
		var missSlice []bool
		if param.Missing != nil {
			missSlice = param.Missing[offset : offset+n]
		}
		ll, err := e.mixtureLogLikelihood(t, mix, param.Values[offset:offset+n], missSlice)
		if err != nil {
			return 0, err
		}
		total += ll
		offset += n
	}
	return total, nil
}

// mixtureLogLikelihood computes the weighted log-sum over a mixture's
// pruned components, going through the tied-mixture cache when the mixture
// references a shared codebook (spec §4.1 "Tied-mixture cache").
func (e *Engine) mixtureLogLikelihood(t int, mix *amodel.MixturePDF, x []float32, missing []bool) (amodel.LogProb, error) {
	scores, err := e.componentScores(t, mix, x, missing)
	if err != nil {
		return 0, err
	}
	if len(scores) == 0 {
		return amodel.LogZero, nil
	}
	logs := make([]float32, 0, len(scores))
	for _, cs := range scores {
		_, weight, err := mix.Component(cs.idx)
		if err != nil {
			return 0, err
		}
		if weight <= 0 {
			continue
		}
		logs = append(logs, float32(cs.score)+float32(math.Log(float64(weight))))
	}
	if len(logs) == 0 {
		return amodel.LogZero, nil
	}
	return amodel.LogProb(vecmath.LogSumExp(logs)), nil
}

func (e *Engine) componentScores(t int, mix *amodel.MixturePDF, x []float32, missing []bool) ([]componentScore, error) {
	if !mix.IsTiedMixture() {
		return e.pruneComponents(mix.Components, x, missing, 0)
	}
	key := tiedKey{frame: t, cb: mix.Codebook.ID}
	if cached, ok := e.tied[key]; ok {
		return cached, nil
	}
	scores, err := e.pruneComponents(mix.Codebook.Components, x, missing, mix.Codebook.ID)
	if err != nil {
		return nil, err
	}
	e.tied[key] = scores
	return scores, nil
}

// evalMixtureExact computes a mixture's full (unpruned) weighted
// log-likelihood, bypassing pruning and the per-frame cache. Used by GMS to
// score its small monophone GS states, which must always be exact.
func evalMixtureExact(mix *amodel.MixturePDF, x []float32, missing []bool) (amodel.LogProb, error) {
	n := mix.NumComponents()
	logs := make([]float32, 0, n)
	for i := 0; i < n; i++ {
		g, weight, err := mix.Component(i)
		if err != nil {
			return 0, err
		}
		if weight <= 0 {
			continue
		}
		ll, err := g.LogLikelihood(x, missing)
		if err != nil {
			return 0, err
		}
		logs = append(logs, float32(ll)+float32(math.Log(float64(weight))))
	}
	if len(logs) == 0 {
		return amodel.LogZero, nil
	}
	return amodel.LogProb(vecmath.LogSumExp(logs)), nil
}
