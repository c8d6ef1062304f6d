// Package estimator implements the heart-rate estimation core: a
// sliding analysis window over a conditioned PPG recording, a
// per-window candidate generator, and a motion-artifact classifier
// fed by the co-located accelerometer.
package estimator

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/heartlab/wristbpm/internal/bpm"
	"github.com/heartlab/wristbpm/internal/dsp"
)

// Pipeline walks a fixed-length window across one recording and
// assembles the accepted candidates into a BPM series. It holds no
// cross-window state; the optional NLMS pre-pass runs once over the
// whole signal before any window is cut.
type Pipeline struct {
	cfg Config
	gen Generator
	cls Classifier
	log *zap.Logger
}

// New builds a pipeline for the configured strategy and policy.
func New(cfg Config, log *zap.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		cfg: cfg,
		gen: newGenerator(cfg),
		cls: newClassifier(cfg),
		log: log,
	}, nil
}

// Outcome is the result of one full-recording pass.
type Outcome struct {
	Series bpm.Series
	// Validated is false when the recording had no motion channel: every
	// candidate was accepted without artifact screening and the series
	// carries lower confidence.
	Validated bool
	// Windows counts analysis windows examined; Rejected counts the
	// candidates the classifier discarded as motion artifacts.
	Windows  int
	Rejected int
}

// Run processes one complete recording. ppg is the conditioned PPG
// channel; imu is the conditioned 3-axis acceleration aligned by
// sample index, or nil when the recording has no motion channel. The
// pass either completes or fails outright; an empty series with a nil
// error is a valid result.
func (p *Pipeline) Run(ppg []float64, imu [][3]float64) (Outcome, error) {
	if err := checkSignals(ppg, imu); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Validated: imu != nil}
	if !out.Validated {
		p.log.Warn("recording has no motion channel; accepting all candidates unvalidated",
			zap.String("strategy", p.gen.Name()))
	}

	var motionMag []float64
	if imu != nil {
		motionMag = dsp.Magnitude(imu)
	}

	if p.cfg.UseNLMS {
		if motionMag == nil {
			p.log.Warn("NLMS pre-pass requested but no motion reference; skipping")
		} else {
			canceller, err := dsp.NewCanceller(p.cfg.NLMSOrder, p.cfg.NLMSRate)
			if err != nil {
				return Outcome{}, err
			}
			ppg, err = canceller.Cancel(ppg, motionMag)
			if err != nil {
				return Outcome{}, fmt.Errorf("NLMS pre-pass: %w", err)
			}
		}
	}

	windowSamples := p.cfg.WindowSamples()
	stepSamples := p.cfg.StepSamples()

	for i := 0; i+windowSamples <= len(ppg); i += stepSamples {
		out.Windows++
		startS := float64(i) / p.cfg.SampleRate

		cand, ok := p.gen.Generate(ppg[i:i+windowSamples], startS)
		if !ok {
			continue
		}

		if out.Validated {
			motion := p.motionEstimate(motionMag[i : i+windowSamples])
			cand, ok = p.cls.Classify(cand, motion)
			if !ok {
				out.Rejected++
				continue
			}
		}

		out.Series = append(out.Series, bpm.Sample{TimeS: cand.TimeS, BPM: cand.BPM})
	}

	p.log.Info("recording processed",
		zap.String("strategy", p.gen.Name()),
		zap.String("policy", p.cls.Name()),
		zap.Bool("validated", out.Validated),
		zap.Int("windows", out.Windows),
		zap.Int("accepted", len(out.Series)),
		zap.Int("rejected", out.Rejected))
	return out, nil
}

// motionEstimate returns the dominant motion component of one window,
// or nil when the motion spectrum carries no in-band energy.
func (p *Pipeline) motionEstimate(window []float64) *dsp.Estimate {
	est, ok := dsp.FindDominant(window, p.cfg.SampleRate, p.cfg.MotionBand, p.cfg.FFTLength)
	if !ok {
		return nil
	}
	return &est
}

// checkSignals rejects malformed input: an empty or all-non-finite PPG
// channel, or an IMU channel misaligned with it. Such a recording
// fails on its own; callers isolate the failure and move on.
func checkSignals(ppg []float64, imu [][3]float64) error {
	if len(ppg) == 0 {
		return fmt.Errorf("estimator: empty PPG signal")
	}
	finite := false
	for _, v := range ppg {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			finite = true
			break
		}
	}
	if !finite {
		return fmt.Errorf("estimator: PPG signal contains no finite samples")
	}
	if imu != nil && len(imu) != len(ppg) {
		return fmt.Errorf("estimator: IMU length %d does not match PPG length %d",
			len(imu), len(ppg))
	}
	return nil
}
