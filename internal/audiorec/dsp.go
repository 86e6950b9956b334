package audiorec

import "math"

// PeakNormalize scales samples so the peak absolute amplitude reaches 1.0.
// Silent input is returned unchanged.
func PeakNormalize(samples []float32) []float32 {
	var peak float32
	for _, s := range samples {
		if a := float32(math.Abs(float64(s))); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return samples
	}

	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s / peak
	}

	return out
}

// DCBlock removes DC offset with a one-pole high-pass filter, the digital
// equivalent of adinrec's -zmean option (subtract the running mean rather
// than a fixed value, so it tracks slow offset drift across a capture).
func DCBlock(samples []float32, sampleRate int) []float32 {
	if len(samples) == 0 {
		return samples
	}

	const cutoffHz = 80.0
	r := 1.0 - (2 * math.Pi * cutoffHz / float64(sampleRate))

	out := make([]float32, len(samples))
	var prevIn, prevOut float64
	for i, s := range samples {
		x := float64(s)
		y := x - prevIn + r*prevOut
		out[i] = float32(y)
		prevIn = x
		prevOut = y
	}

	return out
}
