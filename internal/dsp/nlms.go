package dsp

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// nlmsEpsilon keeps the normalized step finite when the reference
// window carries no energy. With a constant reference the step tends
// toward rate/epsilon, which is large but bounded; weights may still
// drift in that regime and callers should feed a reference with real
// motion content.
const nlmsEpsilon = 1e-6

// Canceller is a normalized LMS adaptive filter that subtracts the
// motion-correlated component from a PPG signal, using the motion
// magnitude as the noise reference. The weight vector persists across
// one whole recording and is mutated in strict sample order; a
// Canceller must not be shared between recordings or goroutines.
type Canceller struct {
	order   int
	rate    float64
	weights []float64
}

// NewCanceller returns a canceller with the given FIR order (number of
// adaptive taps) and learning rate, weights all zero.
func NewCanceller(order int, rate float64) (*Canceller, error) {
	if order <= 0 {
		return nil, fmt.Errorf("nlms: order must be positive, got %d", order)
	}
	if rate <= 0 {
		return nil, fmt.Errorf("nlms: learning rate must be positive, got %g", rate)
	}
	return &Canceller{
		order:   order,
		rate:    rate,
		weights: make([]float64, order),
	}, nil
}

// Cancel runs the filter over the full recording and returns the
// cleaned signal. For each sample it predicts the noise component from
// the most recent reference samples (most-recent-first against the
// weight indices, a causal FIR), emits primary-prediction, and takes a
// gradient step normalized by the reference window energy. The first
// order samples have no history and stay zero; downstream windowing
// absorbs them. Single pass, no lookahead.
func (c *Canceller) Cancel(primary, reference []float64) ([]float64, error) {
	if len(primary) != len(reference) {
		return nil, fmt.Errorf("nlms: primary/reference length mismatch: %d vs %d",
			len(primary), len(reference))
	}

	cleaned := make([]float64, len(primary))
	refWin := make([]float64, c.order)

	for i := c.order; i < len(primary); i++ {
		for k := 0; k < c.order; k++ {
			refWin[k] = reference[i-1-k]
		}

		predicted := floats.Dot(c.weights, refWin)
		residual := primary[i] - predicted
		cleaned[i] = residual

		energy := floats.Dot(refWin, refWin)
		step := c.rate / (energy + nlmsEpsilon)
		floats.AddScaled(c.weights, step*residual, refWin)
	}
	return cleaned, nil
}

// Weights returns a copy of the current adaptive weights, mostly for
// inspection in tests.
func (c *Canceller) Weights() []float64 {
	out := make([]float64, len(c.weights))
	copy(out, c.weights)
	return out
}
