package acoustic

import (
	"sort"

	"github.com/example/lvcsr-decode/internal/amodel"
)

// GMSTable implements Gaussian mixture selection (spec §4.1 "Gaussian
// mixture selection (optional)"): a small monophone HMM's states (the "GS
// states") are scored exactly every frame, the top M are kept, and every
// triphone state that maps to a GS state outside the top M returns that GS
// state's score directly instead of evaluating its own (larger) mixture.
type GMSTable struct {
	gsStates    []*amodel.State
	triToGS     map[amodel.StateID]int // triphone state id -> index into gsStates
	clusterSize int
	perFrame    map[int]*gmsFrameResult
}

type gmsFrameResult struct {
	scores []amodel.LogProb
	topM   map[int]bool
}

// NewGMSTable builds a GMS table from the GS-state HMM and a static
// triphone-to-GS-state mapping (computed once at model load, spec §4.1:
// "every triphone state maps statically to one GS state").
func NewGMSTable(gsStates []*amodel.State, triToGS map[amodel.StateID]int, clusterSize int) *GMSTable {
	return &GMSTable{gsStates: gsStates, triToGS: triToGS, clusterSize: clusterSize, perFrame: make(map[int]*gmsFrameResult)}
}

func (g *GMSTable) reset() { g.perFrame = make(map[int]*gmsFrameResult) }

// FallbackScore reports whether sid may skip precise computation at frame t
// and use the cheap GS fallback score instead.
func (g *GMSTable) FallbackScore(t int, sid amodel.StateID, e *Engine, param amodel.FrameVector) (amodel.LogProb, bool, error) {
	gsIdx, mapped := g.triToGS[sid]
	if !mapped {
		return 0, false, nil
	}
	frame, err := g.ensureFrame(t, param)
	if err != nil {
		return 0, false, err
	}
	if frame.topM[gsIdx] {
		return 0, false, nil // in the top M: caller must compute the precise mixture
	}
	return frame.scores[gsIdx], true, nil
}

// ensureFrame computes every GS state's exact score at frame t on first
// access and keeps the top M, memoized for the rest of the frame's outprob
// calls.
func (g *GMSTable) ensureFrame(t int, param amodel.FrameVector) (*gmsFrameResult, error) {
	if frame, ok := g.perFrame[t]; ok {
		return frame, nil
	}
	scores := make([]amodel.LogProb, len(g.gsStates))
	for i, st := range g.gsStates {
		ll, err := evalMixtureExact(st.Streams[0], param.Values, param.Missing)
		if err != nil {
			return nil, err
		}
		scores[i] = ll
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })
	m := g.clusterSize
	if m <= 0 || m > len(order) {
		m = len(order)
	}
	topM := make(map[int]bool, m)
	for _, idx := range order[:m] {
		topM[idx] = true
	}
	frame := &gmsFrameResult{scores: scores, topM: topM}
	g.perFrame[t] = frame
	return frame, nil
}
