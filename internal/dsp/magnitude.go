package dsp

import "math"

// Magnitude collapses a 3-axis acceleration window into a single
// motion-intensity signal: result[t] = sqrt(x²+y²+z²). Direction is
// discarded on purpose; the artifact logic downstream only needs how
// much the wrist moved, not where.
func Magnitude(axes [][3]float64) []float64 {
	out := make([]float64, len(axes))
	for i, s := range axes {
		out[i] = math.Sqrt(s[0]*s[0] + s[1]*s[1] + s[2]*s[2])
	}
	return out
}
