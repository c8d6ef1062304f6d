package dsp

import (
	"fmt"
	"math"
)

// Biquad is a 2nd-order IIR section in Direct-Form II transposed.
// Used for the conditioning filters applied before estimation: a
// band-pass on the PPG channel and a gentle low-pass on the IMU axes.
type Biquad struct {
	b [3]float64
	a [3]float64
	w [2]float64
}

// butterQ is the pole quality of a 2nd-order Butterworth section.
const butterQ = math.Sqrt2 / 2

// NewLowPass designs a 2nd-order Butterworth low-pass section with the
// given cutoff, via the bilinear transform.
func NewLowPass(cutoffHz, rate float64) (*Biquad, error) {
	if err := checkCutoff(cutoffHz, rate); err != nil {
		return nil, err
	}
	k := math.Tan(math.Pi * cutoffHz / rate)
	norm := 1 / (1 + k/butterQ + k*k)
	return &Biquad{
		b: [3]float64{k * k * norm, 2 * k * k * norm, k * k * norm},
		a: [3]float64{1, 2 * (k*k - 1) * norm, (1 - k/butterQ + k*k) * norm},
	}, nil
}

// NewHighPass designs a 2nd-order Butterworth high-pass section.
func NewHighPass(cutoffHz, rate float64) (*Biquad, error) {
	if err := checkCutoff(cutoffHz, rate); err != nil {
		return nil, err
	}
	k := math.Tan(math.Pi * cutoffHz / rate)
	norm := 1 / (1 + k/butterQ + k*k)
	return &Biquad{
		b: [3]float64{norm, -2 * norm, norm},
		a: [3]float64{1, 2 * (k*k - 1) * norm, (1 - k/butterQ + k*k) * norm},
	}, nil
}

func checkCutoff(cutoffHz, rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("filter: sample rate must be positive, got %g", rate)
	}
	if cutoffHz <= 0 || cutoffHz >= rate/2 {
		return fmt.Errorf("filter: cutoff %g Hz outside (0, %g) at rate %g Hz",
			cutoffHz, rate/2, rate)
	}
	return nil
}

// Filter processes one sample, updating the section state.
func (f *Biquad) Filter(sample float64) float64 {
	y := f.w[0] + f.b[0]*sample
	f.w[0] = f.w[1] - f.a[1]*y + f.b[1]*sample
	f.w[1] = f.b[2]*sample - f.a[2]*y
	return y
}

// edgePad is the reflected-edge extension used by ZeroPhase. More than
// 3x the section order, per Gustafsson's initial-state method.
const edgePad = 6

// ZeroPhase filters the signal forward then backward through the
// section so the result has no phase delay, mirroring the signal at
// both edges to suppress startup transients. Signals of edgePad
// samples or fewer are returned unchanged.
func (f *Biquad) ZeroPhase(signal []float64) []float64 {
	n := len(signal)
	if n <= edgePad {
		out := make([]float64, n)
		copy(out, signal)
		return out
	}

	// Steady-state section state for a step input, scaled by the first
	// reflected sample on each pass.
	kdc := (f.b[0] + f.b[1] + f.b[2]) / (1 + f.a[1] + f.a[2])
	var si [2]float64
	si[1] = f.b[2] - kdc*f.a[2]
	si[0] = si[1] + f.b[1] - kdc*f.a[1]

	v := make([]float64, 0, n+2*edgePad)

	f.w = [2]float64{
		si[0] * (2*signal[0] - signal[edgePad]),
		si[1] * (2*signal[0] - signal[edgePad]),
	}
	for i := edgePad; i >= 1; i-- {
		v = append(v, f.Filter(2*signal[0]-signal[i]))
	}
	for _, s := range signal {
		v = append(v, f.Filter(s))
	}
	last := signal[n-1]
	for i := 1; i <= edgePad; i++ {
		v = append(v, f.Filter(2*last-signal[n-1-i]))
	}

	f.w = [2]float64{si[0] * v[len(v)-1], si[1] * v[len(v)-1]}
	for i := len(v) - 1; i >= 0; i-- {
		v[i] = f.Filter(v[i])
	}

	return v[edgePad : n+edgePad]
}

// Chain is a cascade of biquad sections applied in order.
type Chain []*Biquad

// NewBandPass builds a band-pass as a high-pass section followed by a
// low-pass section, the conditioning shape used on the PPG channel.
func NewBandPass(lowHz, highHz, rate float64) (Chain, error) {
	if lowHz >= highHz {
		return nil, fmt.Errorf("filter: band edges inverted: %g >= %g", lowHz, highHz)
	}
	hp, err := NewHighPass(lowHz, rate)
	if err != nil {
		return nil, err
	}
	lp, err := NewLowPass(highHz, rate)
	if err != nil {
		return nil, err
	}
	return Chain{hp, lp}, nil
}

// ZeroPhase runs the signal through every section with zero-phase
// filtering.
func (c Chain) ZeroPhase(signal []float64) []float64 {
	out := signal
	for _, section := range c {
		out = section.ZeroPhase(out)
	}
	return out
}
