// Package acoustic computes frame-state log-likelihoods for the search
// passes (spec §4.1): a cached outprob engine over Gaussian-mixture states,
// with four interchangeable Gaussian pruning strategies, a tied-mixture
// cache shared across states referencing the same codebook, and optional
// Gaussian mixture selection (GMS) for coarse-to-fine pruning.
package acoustic

import "github.com/example/lvcsr-decode/internal/amodel"

// PruneMode selects how a mixture's component scores are computed.
type PruneMode int

const (
	PruneNone PruneMode = iota
	PruneSafe
	PruneHeuristic
	PruneBeam
)

func (m PruneMode) String() string {
	switch m {
	case PruneNone:
		return "none"
	case PruneSafe:
		return "safe"
	case PruneHeuristic:
		return "heuristic"
	case PruneBeam:
		return "beam"
	default:
		return "unknown"
	}
}

// CDCombiner selects how outprob_cd pools scores across a pooled
// (pseudo-phone) state set.
type CDCombiner int

const (
	CombineAverage CDCombiner = iota
	CombineMax
	CombineTopK
)

// Config holds the tunables spec §4.1 exposes for the likelihood engine.
type Config struct {
	Prune          PruneMode
	TopN           int // max Gaussians retained per mixture evaluation
	BeamSlack      float32
	CDCombiner     CDCombiner
	CDTopK         int
	GMSEnabled     bool
	GMSClusterSize int // M: number of GS states kept per frame
}

// DefaultConfig returns the engine's recommended tunables.
func DefaultConfig() Config {
	return Config{
		Prune:      PruneSafe,
		TopN:       8,
		BeamSlack:  2.0,
		CDCombiner: CombineAverage,
		CDTopK:     4,
	}
}

// unset is the cache sentinel: strictly below amodel.LogZero so that a real
// (possibly very bad) log-likelihood is never confused with "not yet
// computed" (spec §4.1: "Cache structure... entries initialized to an
// unset sentinel strictly below LOG_ZERO").
const unset = amodel.LogProb(-2.0e10)
