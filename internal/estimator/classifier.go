package estimator

import (
	"math"

	"github.com/heartlab/wristbpm/internal/dsp"
)

// Classifier decides whether a window's candidate is a genuine cardiac
// estimate or a motion artifact, given the motion channel's dominant
// component for the same window. A nil motion estimate means there is
// nothing to judge against and the candidate is always trusted.
//
// Classify returns the (possibly adjusted) candidate and whether it
// was accepted: peak-count candidates have their instantaneous values
// pruned in BPM space and their median recomputed from the survivors.
type Classifier interface {
	Name() string
	Classify(cand Candidate, motion *dsp.Estimate) (Candidate, bool)
}

func newClassifier(cfg Config) Classifier {
	if cfg.Policy == PolicyNaive {
		return &naiveClassifier{cfg: cfg}
	}
	return &powerRatioClassifier{cfg: cfg}
}

// collides reports whether the candidate frequency lands on the motion
// fundamental or its first harmonic. Footstep cadence's second
// harmonic often sits right in the cardiac range, hence the 2x check.
// Only the motion harmonic is tested against the PPG fundamental,
// never the reverse.
func collides(ppgHz, motionHz, thresholdHz float64) bool {
	return math.Abs(ppgHz-motionHz) < thresholdHz ||
		math.Abs(ppgHz-2*motionHz) < thresholdHz
}

// pruneInstants drops instantaneous BPM values within exclusionBPM of
// the motion-derived rate and reports the survivors.
func pruneInstants(instants []float64, motionBPM, exclusionBPM float64) []float64 {
	survivors := make([]float64, 0, len(instants))
	for _, v := range instants {
		if math.Abs(v-motionBPM) > exclusionBPM {
			survivors = append(survivors, v)
		}
	}
	return survivors
}

// classifyInstants is the peak-count path shared by both policies: the
// tie-break operates in BPM space directly, and the window needs at
// least two surviving instants to keep a (median) estimate.
func classifyInstants(cand Candidate, motion *dsp.Estimate, exclusionBPM float64) (Candidate, bool) {
	survivors := pruneInstants(cand.Instants, motion.BPM(), exclusionBPM)
	if len(survivors) < 2 {
		return Candidate{}, false
	}
	cand.Instants = survivors
	cand.BPM = median(survivors)
	return cand, true
}

// naiveClassifier rejects on any frequency collision, regardless of
// how strong the motion peak is.
type naiveClassifier struct {
	cfg Config
}

func (c *naiveClassifier) Name() string { return string(PolicyNaive) }

func (c *naiveClassifier) Classify(cand Candidate, motion *dsp.Estimate) (Candidate, bool) {
	if motion == nil {
		return cand, true
	}
	if len(cand.Instants) > 0 {
		return classifyInstants(cand, motion, c.cfg.ExclusionBPM)
	}
	if collides(cand.BPM/60.0, motion.FreqHz, c.cfg.CollisionThresholdHz) {
		return Candidate{}, false
	}
	return cand, true
}

// powerRatioClassifier rejects a colliding candidate only when the
// scaled motion power exceeds the PPG peak power, i.e. motion is
// convincingly the better explanation for the observed frequency.
type powerRatioClassifier struct {
	cfg Config
}

func (c *powerRatioClassifier) Name() string { return string(PolicyPowerRatio) }

func (c *powerRatioClassifier) Classify(cand Candidate, motion *dsp.Estimate) (Candidate, bool) {
	if motion == nil {
		return cand, true
	}
	if len(cand.Instants) > 0 {
		return classifyInstants(cand, motion, c.cfg.ExclusionBPM)
	}
	if collides(cand.BPM/60.0, motion.FreqHz, c.cfg.CollisionThresholdHz) &&
		motion.Power*c.cfg.PowerRatioThreshold > cand.Power {
		return Candidate{}, false
	}
	return cand, true
}
