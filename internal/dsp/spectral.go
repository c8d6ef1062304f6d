// Package dsp holds the signal-processing primitives of the estimation
// pipeline: band-limited dominant-frequency extraction, 3-axis motion
// magnitude, time-domain peak detection, Butterworth conditioning
// filters, and the NLMS adaptive canceller.
package dsp

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Band is a closed frequency interval in Hz.
type Band struct {
	MinHz float64
	MaxHz float64
}

// Contains reports whether f lies inside the band.
func (b Band) Contains(f float64) bool {
	return f >= b.MinHz && f <= b.MaxHz
}

// Estimate is the dominant spectral component of one analysis window:
// the frequency of the strongest in-band FFT bin and that bin's
// magnitude. Magnitudes are |FFT|, not PSD-normalized, and are only
// comparable between estimates produced with the same transform length
// from the same signal scale.
type Estimate struct {
	FreqHz float64
	Power  float64
}

// BPM converts the estimate's frequency to beats per minute.
func (e Estimate) BPM() float64 {
	return e.FreqHz * 60.0
}

// minSamples is the shortest window worth transforming; below this the
// FFT is degenerate and the window contributes no estimate.
const minSamples = 10

// FindDominant returns the dominant frequency and its magnitude within
// band for one real-valued window sampled at rate Hz. The window is
// detrended (best-fit line removed), Hann-tapered, and transformed with
// a zero-padded real FFT of fftLength bins, so the bin width is
// rate/fftLength. The second return is false when the window is too
// short or no in-band bin carries energy; callers must treat that as
// "no estimate", not as zero.
func FindDominant(samples []float64, rate float64, band Band, fftLength int) (Estimate, bool) {
	if len(samples) < minSamples || rate <= 0 || fftLength < minSamples {
		return Estimate{}, false
	}

	tapered := Detrend(samples)
	floats.Mul(tapered, window.Hann(len(tapered)))

	// Zero-pad (or truncate) to the transform length before the FFT.
	buf := make([]float64, fftLength)
	copy(buf, tapered)

	spectrum := fft.FFTReal(buf)

	// Real input: only the non-negative half of the spectrum is unique.
	binWidth := rate / float64(fftLength)
	best := Estimate{}
	found := false
	for i := 0; i <= fftLength/2; i++ {
		f := float64(i) * binWidth
		if !band.Contains(f) {
			continue
		}
		mag := cmplx.Abs(spectrum[i])
		if mag > 0 && (!found || mag > best.Power) {
			best = Estimate{FreqHz: f, Power: mag}
			found = true
		}
	}
	return best, found
}

// Detrend returns a copy of samples with the least-squares line
// removed. Suppresses DC offset and slow drift that would otherwise
// leak across the whole spectrum.
func Detrend(samples []float64) []float64 {
	n := len(samples)
	out := make([]float64, n)
	if n < 2 {
		copy(out, samples)
		return out
	}

	xs := make([]float64, n)
	floats.Span(xs, 0, float64(n-1))
	alpha, beta := stat.LinearRegression(xs, samples, nil, false)

	for i, v := range samples {
		out[i] = v - (alpha + beta*xs[i])
	}
	return out
}
