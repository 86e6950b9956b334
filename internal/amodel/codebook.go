package amodel

import "fmt"

// CodebookID identifies a shared Gaussian codebook used in tied-mixture mode.
type CodebookID int32

// Codebook is a shared set of Gaussian densities referenced by many mixture
// PDFs (spec §3). Component order is fixed at build time and is the index
// space used by Gaussian pruning and by the tied-mixture cache.
type Codebook struct {
	ID         CodebookID
	Components []*Gaussian
}

// Len returns the number of Gaussian components in the codebook.
func (c *Codebook) Len() int { return len(c.Components) }

// MixturePDF is a weighted set of Gaussian densities, or — in tied-mixture
// mode — a reference to a shared Codebook plus a per-state weight vector
// over that codebook's components (spec §3).
type MixturePDF struct {
	// Direct mode: Components/Weights own their Gaussians.
	Components []*Gaussian
	Weights    []float32 // natural-domain mixture weights, sums to ~1

	// Tied-mixture mode: Codebook != nil, TiedWeights indexed like Codebook.Components.
	Codebook    *Codebook
	TiedWeights []float32
}

// IsTiedMixture reports whether this PDF references a shared codebook.
func (m *MixturePDF) IsTiedMixture() bool { return m.Codebook != nil }

// NumComponents returns the number of mixture components, whichever mode is active.
func (m *MixturePDF) NumComponents() int {
	if m.IsTiedMixture() {
		return m.Codebook.Len()
	}
	return len(m.Components)
}

// Component returns the i-th Gaussian and its natural-domain mixture weight.
func (m *MixturePDF) Component(i int) (*Gaussian, float32, error) {
	if m.IsTiedMixture() {
		if i < 0 || i >= len(m.Codebook.Components) {
			return nil, 0, fmt.Errorf("amodel: tied-mixture component %d out of range", i)
		}
		return m.Codebook.Components[i], m.TiedWeights[i], nil
	}
	if i < 0 || i >= len(m.Components) {
		return nil, 0, fmt.Errorf("amodel: mixture component %d out of range", i)
	}
	return m.Components[i], m.Weights[i], nil
}
