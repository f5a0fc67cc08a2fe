// Package vad classifies audio chunks as voiced or silent by amplitude
// thresholding. The threshold is a fraction of full scale, so 0.01 means
// "any sample louder than 1% of the S16 range counts as voice".
package vad

import "math"

// Voiced reports whether the chunk's peak amplitude exceeds threshold.
// It is pure and monotonic in threshold: lowering the threshold never turns
// a voiced chunk silent.
func Voiced(samples []int16, threshold float64) bool {
	return Peak(samples) > threshold
}

// Peak returns the maximum absolute sample amplitude, normalized to 0..1.
func Peak(samples []int16) float64 {
	var peak int32
	for _, s := range samples {
		v := int32(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return float64(peak) / 32768.0
}

// Level returns the RMS energy of the chunk, normalized to 0..1. Used for
// the recording level meter, not for the voiced/silent decision.
func Level(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range samples {
		n := float64(s) / 32768.0
		sumSquares += n * n
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}
