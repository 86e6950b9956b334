package amodel

import "fmt"

// State owns one mixture PDF per stream (spec §3). Its Sid is the globally
// unique cache key used by internal/acoustic; callers never address a State
// by pointer identity for caching, only by Sid, so caches can be plain
// slices indexed by int.
type State struct {
	Sid     StateID
	Streams []*MixturePDF
}

// StreamVectorLengths returns the per-stream dimensionality implied by the
// first component of each stream's mixture, used to validate the "stream
// vector lengths sum to total vector length" invariant (spec §3).
func (s *State) StreamVectorLengths() ([]int, error) {
	lens := make([]int, len(s.Streams))
	for i, m := range s.Streams {
		if m.NumComponents() == 0 {
			return nil, fmt.Errorf("amodel: state %d stream %d has no mixture components", s.Sid, i)
		}
		g, _, err := m.Component(0)
		if err != nil {
			return nil, err
		}
		lens[i] = g.Dim()
	}
	return lens, nil
}

// CDStateSet is the synthetic state produced by pooling the k-th states of
// every logical HMM sharing a left context, right context, or base phone
// (spec §3's pseudo-HMM construction). Its Sid is its own — pseudo states
// are cached exactly like physical ones.
type CDStateSet struct {
	Sid     StateID
	Members []*State
}

// Len returns the number of physical states pooled into this set.
func (c *CDStateSet) Len() int { return len(c.Members) }
