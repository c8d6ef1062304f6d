package estimator

import (
	"sort"

	"github.com/heartlab/wristbpm/internal/dsp"
)

// Candidate is one window's provisional heart-rate estimate, before
// motion-artifact classification.
type Candidate struct {
	TimeS float64
	BPM   float64

	// Power is the spectral magnitude of the cardiac peak; only the
	// spectral strategy fills it.
	Power float64

	// Instants are the per-beat instantaneous BPM values; only the
	// peak-counting strategy fills them. The classifier prunes this set
	// and re-derives BPM from the survivors.
	Instants []float64
}

// Generator produces at most one candidate per analysis window. The
// two strategies are interchangeable and never mixed within a run.
type Generator interface {
	Name() string
	Generate(window []float64, startS float64) (Candidate, bool)
}

func newGenerator(cfg Config) Generator {
	if cfg.Strategy == StrategyPeakCount {
		return &peakCountGenerator{cfg: cfg}
	}
	return &spectralGenerator{cfg: cfg}
}

// spectralGenerator takes the strongest cardiac-band component of the
// window spectrum as the candidate.
type spectralGenerator struct {
	cfg Config
}

func (g *spectralGenerator) Name() string { return string(StrategySpectral) }

func (g *spectralGenerator) Generate(window []float64, startS float64) (Candidate, bool) {
	est, ok := dsp.FindDominant(window, g.cfg.SampleRate, g.cfg.CardiacBand, g.cfg.FFTLength)
	if !ok {
		return Candidate{}, false
	}
	return Candidate{
		TimeS: startS,
		BPM:   est.BPM(),
		Power: est.Power,
	}, true
}

// peakCountGenerator detects systolic peaks directly in the time
// domain and converts the inter-peak intervals to instantaneous BPM,
// keeping only physiologically plausible values. The candidate BPM is
// the median of the instants; a window with fewer than two plausible
// instants yields nothing.
type peakCountGenerator struct {
	cfg Config
}

func (g *peakCountGenerator) Name() string { return string(StrategyPeakCount) }

func (g *peakCountGenerator) Generate(window []float64, startS float64) (Candidate, bool) {
	peaks := dsp.FindPeaks(window, g.cfg.MinPeakDistance(), g.cfg.MinPeakProminence)
	if len(peaks) < 2 {
		return Candidate{}, false
	}

	instants := make([]float64, 0, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		gap := float64(peaks[i]-peaks[i-1]) / g.cfg.SampleRate
		v := 60.0 / gap
		if v >= g.cfg.BPMMin && v <= g.cfg.BPMMax {
			instants = append(instants, v)
		}
	}
	if len(instants) < 2 {
		return Candidate{}, false
	}

	return Candidate{
		TimeS:    startS,
		BPM:      median(instants),
		Instants: instants,
	}, true
}

// median returns the middle value, averaging the two central values
// for even-length input.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
