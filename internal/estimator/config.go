package estimator

import (
	"fmt"

	"github.com/heartlab/wristbpm/internal/dsp"
)

// Strategy selects how BPM candidates are produced per window.
type Strategy string

const (
	// StrategySpectral takes the dominant cardiac-band frequency of the
	// window's spectrum.
	StrategySpectral Strategy = "spectral"
	// StrategyPeakCount detects systolic peaks in the time domain and
	// converts inter-peak intervals to instantaneous BPM.
	StrategyPeakCount Strategy = "peaks"
)

// Policy selects how candidates colliding with motion are treated.
type Policy string

const (
	// PolicyNaive rejects any candidate colliding with the motion
	// fundamental or its first harmonic.
	PolicyNaive Policy = "naive"
	// PolicyPowerRatio rejects a colliding candidate only when the
	// motion peak is convincingly stronger than the PPG peak.
	PolicyPowerRatio Policy = "power"
)

// Config carries every tunable of the estimation core. All state is
// explicit; there are no package-level tunables.
type Config struct {
	SampleRate    float64 // Hz, shared by PPG and IMU channels
	WindowSeconds float64
	StepSeconds   float64
	FFTLength     int

	CardiacBand dsp.Band // where the heart fundamental is searched
	MotionBand  dsp.Band // where the step cadence is searched

	CollisionThresholdHz float64 // PPG/motion frequency collision margin
	PowerRatioThreshold  float64 // motion must be this many times stronger

	// Peak-counting strategy.
	BPMMin            float64
	BPMMax            float64
	MinPeakProminence float64
	ExclusionBPM      float64 // BPM-space distance from the motion rate

	// Optional NLMS pre-pass over the whole recording.
	UseNLMS   bool
	NLMSOrder int
	NLMSRate  float64

	Strategy Strategy
	Policy   Policy
}

// DefaultConfig returns the tuned production parameters: 8 s windows
// at 1 s steps over 500 Hz signals, 4096-bin transforms, spectral
// candidates with the power tie-break classifier.
func DefaultConfig() Config {
	return Config{
		SampleRate:    500,
		WindowSeconds: 8,
		StepSeconds:   1,
		FFTLength:     4096,

		CardiacBand: dsp.Band{MinHz: 0.8, MaxHz: 4.0}, // 48-240 BPM
		MotionBand:  dsp.Band{MinHz: 1.0, MaxHz: 3.5}, // 60-210 steps/min

		CollisionThresholdHz: 0.25,
		PowerRatioThreshold:  2.0,

		BPMMin:            50,
		BPMMax:            240,
		MinPeakProminence: 0.1,
		ExclusionBPM:      15,

		UseNLMS:   false,
		NLMSOrder: 15,
		NLMSRate:  0.01,

		Strategy: StrategySpectral,
		Policy:   PolicyPowerRatio,
	}
}

// Validate checks the configuration for values the pipeline cannot
// work with.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("estimator: sample rate must be positive, got %g", c.SampleRate)
	}
	if c.WindowSeconds <= 0 || c.StepSeconds <= 0 {
		return fmt.Errorf("estimator: window (%gs) and step (%gs) must be positive",
			c.WindowSeconds, c.StepSeconds)
	}
	if c.StepSeconds > c.WindowSeconds {
		return fmt.Errorf("estimator: step %gs exceeds window %gs; windows must overlap",
			c.StepSeconds, c.WindowSeconds)
	}
	if c.FFTLength < c.WindowSamples() {
		return fmt.Errorf("estimator: FFT length %d shorter than window (%d samples)",
			c.FFTLength, c.WindowSamples())
	}
	if c.CardiacBand.MinHz >= c.CardiacBand.MaxHz {
		return fmt.Errorf("estimator: cardiac band inverted: %+v", c.CardiacBand)
	}
	if c.MotionBand.MinHz >= c.MotionBand.MaxHz {
		return fmt.Errorf("estimator: motion band inverted: %+v", c.MotionBand)
	}
	if c.BPMMin >= c.BPMMax {
		return fmt.Errorf("estimator: BPM range inverted: [%g, %g]", c.BPMMin, c.BPMMax)
	}
	if c.UseNLMS && (c.NLMSOrder <= 0 || c.NLMSRate <= 0) {
		return fmt.Errorf("estimator: NLMS order %d / rate %g invalid",
			c.NLMSOrder, c.NLMSRate)
	}
	switch c.Strategy {
	case StrategySpectral, StrategyPeakCount:
	default:
		return fmt.Errorf("estimator: unknown strategy %q", c.Strategy)
	}
	switch c.Policy {
	case PolicyNaive, PolicyPowerRatio:
	default:
		return fmt.Errorf("estimator: unknown policy %q", c.Policy)
	}
	return nil
}

// WindowSamples is the analysis window length in samples.
func (c Config) WindowSamples() int {
	return int(c.WindowSeconds * c.SampleRate)
}

// StepSamples is the sliding-window advance in samples.
func (c Config) StepSamples() int {
	return int(c.StepSeconds * c.SampleRate)
}

// MinPeakDistance is the smallest allowed spacing between systolic
// peaks, derived from the fastest plausible heart rate.
func (c Config) MinPeakDistance() int {
	return int(60.0 / c.BPMMax * c.SampleRate)
}
