package vecmath

import "math"

// LogZero represents an effectively impossible log-probability. Julius-style
// decoders use a large negative sentinel rather than -Inf so that arithmetic
// involving it stays well-defined and comparable across platforms.
const LogZero = float32(-1.0e10)

// Axpy computes dst[i] += alpha*src[i] for i in [0, min(len(dst), len(src))).
func Axpy(dst []float32, alpha float32, src []float32) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	if n == 0 || alpha == 0 {
		return
	}
	for i := 0; i < n; i++ {
		dst[i] += alpha * src[i]
	}
}

// LogSumExp combines a set of log-domain scores into a single log-domain
// sum, used to merge weighted Gaussian component likelihoods into a
// mixture likelihood. An empty slice returns LogZero.
func LogSumExp(logs []float32) float32 {
	if len(logs) == 0 {
		return LogZero
	}
	maxV := logs[0]
	for _, v := range logs[1:] {
		if v > maxV {
			maxV = v
		}
	}
	if maxV <= LogZero {
		return LogZero
	}
	var sum float64
	for _, v := range logs {
		sum += math.Exp(float64(v - maxV))
	}
	return maxV + float32(math.Log(sum))
}
