package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowPassAttenuatesHighFrequency(t *testing.T) {
	const rate = 500.0
	lp, err := NewLowPass(20, rate)
	require.NoError(t, err)

	tone := sinusoid(80, rate, 2000)
	out := lp.ZeroPhase(tone)
	assert.Less(t, rms(out[200:1800]), rms(tone[200:1800])/4)
}

func TestLowPassPreservesPassband(t *testing.T) {
	const rate = 500.0
	lp, err := NewLowPass(20, rate)
	require.NoError(t, err)

	tone := sinusoid(2, rate, 2000)
	out := lp.ZeroPhase(tone)
	assert.InDelta(t, rms(tone[200:1800]), rms(out[200:1800]), 0.05)
}

func TestZeroPhaseNoDelay(t *testing.T) {
	const rate = 500.0
	lp, err := NewLowPass(20, rate)
	require.NoError(t, err)

	tone := sinusoid(2, rate, 2000)
	out := lp.ZeroPhase(tone)

	// Forward-backward filtering cancels phase shift: samples away from
	// the edges line up with the input.
	for i := 200; i < 1800; i++ {
		assert.InDelta(t, tone[i], out[i], 0.05)
	}
}

func TestBandPassIsolatesCardiacBand(t *testing.T) {
	const rate = 500.0
	band, err := NewBandPass(0.5, 5.0, rate)
	require.NoError(t, err)

	slow := sinusoid(0.05, rate, 5000) // drift, below band
	heart := sinusoid(2.0, rate, 5000)
	noise := sinusoid(60.0, rate, 5000)
	mixed := make([]float64, 5000)
	for i := range mixed {
		mixed[i] = 2*slow[i] + heart[i] + 0.5*noise[i]
	}

	out := band.ZeroPhase(mixed)
	est, ok := FindDominant(out[500:4500], rate, Band{MinHz: 0.1, MaxHz: 100}, 8192)
	require.True(t, ok)
	assert.InDelta(t, 2.0, est.FreqHz, rate/8192*2)
}

func TestZeroPhaseShortSignalUnchanged(t *testing.T) {
	lp, err := NewLowPass(20, 500)
	require.NoError(t, err)
	sig := []float64{1, 2, 3}
	assert.Equal(t, sig, lp.ZeroPhase(sig))
}

func TestFilterDesignRejectsBadCutoffs(t *testing.T) {
	_, err := NewLowPass(0, 500)
	assert.Error(t, err)
	_, err = NewLowPass(300, 500) // above Nyquist
	assert.Error(t, err)
	_, err = NewHighPass(-1, 500)
	assert.Error(t, err)
	_, err = NewBandPass(5, 0.5, 500)
	assert.Error(t, err)
}
