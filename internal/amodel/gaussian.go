package amodel

import (
	"fmt"
	"math"

	"github.com/example/lvcsr-decode/internal/vecmath"
)

// Gaussian is a single diagonal-covariance Gaussian density. Variance is
// stored inverted (1/sigma^2) at construction time, matching spec §3's "load
// time" invariant, so the acoustic engine's hot loop never divides.
type Gaussian struct {
	Mean    []float32
	InvVar  []float32
	GConst  float32
	dim     int
}

// NewGaussian builds a Gaussian from a mean and a (non-inverted) variance
// vector, computing GConst = D*log(2*pi) + sum(log(variance_i)) as spec §3
// requires, using the un-inverted variances.
func NewGaussian(mean, variance []float32) (*Gaussian, error) {
	if len(mean) != len(variance) {
		return nil, fmt.Errorf("amodel: mean/variance length mismatch (%d vs %d)", len(mean), len(variance))
	}
	d := len(mean)
	invVar := make([]float32, d)
	gconst := float64(d) * math.Log(2*math.Pi)
	for i, v := range variance {
		if v <= 0 {
			return nil, fmt.Errorf("amodel: non-positive variance at dim %d: %v", i, v)
		}
		invVar[i] = float32(1.0 / float64(v))
		gconst += math.Log(float64(v))
	}
	return &Gaussian{
		Mean:   append([]float32(nil), mean...),
		InvVar: invVar,
		GConst: float32(gconst),
		dim:    d,
	}, nil
}

// Dim returns the Gaussian's dimensionality.
func (g *Gaussian) Dim() int { return g.dim }

// LogLikelihood returns log N(x; mean, diag(variance)) for the given frame
// slice, which must already be restricted to this Gaussian's stream.
// -0.5 * (GConst + sum_i (x_i - mean_i)^2 * invVar_i), skipping MSD-missing
// dimensions.
func (g *Gaussian) LogLikelihood(x []float32, missing []bool) (float32, error) {
	if len(x) != g.dim {
		return 0, fmt.Errorf("amodel: frame dim %d does not match Gaussian dim %d", len(x), g.dim)
	}
	sq := vecmath.WeightedSquaredDiff(x, g.Mean, g.InvVar, missing)
	return -0.5 * (g.GConst + sq), nil
}
