package record

import (
	"fmt"

	"github.com/heartlab/wristbpm/internal/dsp"
)

// ConditionConfig are the pre-estimation filter settings: a band-pass
// isolating the cardiac range on the PPG channel and a gentle low-pass
// removing sensor jitter from each IMU axis.
type ConditionConfig struct {
	PPGLowHz  float64
	PPGHighHz float64
	IMULowHz  float64
}

// DefaultConditionConfig matches the dataset preparation used for
// tuning: 0.5-5 Hz PPG band, 20 Hz IMU low-pass. 20 Hz is high enough
// to keep real wrist motion (walking, running) intact.
func DefaultConditionConfig() ConditionConfig {
	return ConditionConfig{
		PPGLowHz:  0.5,
		PPGHighHz: 5.0,
		IMULowHz:  20.0,
	}
}

// Condition applies zero-phase conditioning filters to the recording
// in place. Safe to call on recordings without an IMU channel.
func Condition(rec *Recording, cfg ConditionConfig) error {
	band, err := dsp.NewBandPass(cfg.PPGLowHz, cfg.PPGHighHz, rec.SampleRate)
	if err != nil {
		return fmt.Errorf("conditioning %s: %w", rec.Name, err)
	}
	rec.PPG = band.ZeroPhase(rec.PPG)

	if rec.IMU == nil {
		return nil
	}

	axis := make([]float64, len(rec.IMU))
	for a := 0; a < 3; a++ {
		lp, err := dsp.NewLowPass(cfg.IMULowHz, rec.SampleRate)
		if err != nil {
			return fmt.Errorf("conditioning %s: %w", rec.Name, err)
		}
		for i := range rec.IMU {
			axis[i] = rec.IMU[i][a]
		}
		filtered := lp.ZeroPhase(axis)
		for i := range rec.IMU {
			rec.IMU[i][a] = filtered[i]
		}
	}
	return nil
}
