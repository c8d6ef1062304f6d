// Package validate compares an estimated BPM series against the
// ECG-derived ground truth produced by an external R-peak detector.
package validate

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/heartlab/wristbpm/internal/bpm"
)

// Metrics summarizes the agreement between estimate and truth over the
// samples that could be aligned in time.
type Metrics struct {
	// Matched counts estimate samples with a truth sample within the
	// alignment gap; Unmatched counts the rest.
	Matched   int
	Unmatched int
	MAE       float64
	RMSE      float64
	// WithinTol is the fraction of matched samples whose absolute error
	// is at most the tolerance passed to Compare.
	WithinTol float64
}

// Compare aligns each estimate sample with the nearest ground-truth
// sample in time (at most maxGapS seconds away) and computes error
// metrics, with tolBPM as the "close enough" band for WithinTol.
// Estimates with no truth sample nearby are counted but excluded from
// the error statistics.
func Compare(estimate, truth bpm.Series, maxGapS, tolBPM float64) (Metrics, error) {
	if len(truth) == 0 {
		return Metrics{}, fmt.Errorf("validate: empty ground truth")
	}
	if !truth.IsSorted() || !estimate.IsSorted() {
		return Metrics{}, fmt.Errorf("validate: series must be ascending by time")
	}

	var m Metrics
	var absErrs, sqErrs []float64
	within := 0

	for _, e := range estimate {
		t, ok := nearest(truth, e.TimeS, maxGapS)
		if !ok {
			m.Unmatched++
			continue
		}
		m.Matched++
		diff := math.Abs(e.BPM - t.BPM)
		absErrs = append(absErrs, diff)
		sqErrs = append(sqErrs, diff*diff)
		if diff <= tolBPM {
			within++
		}
	}

	if m.Matched > 0 {
		m.MAE = stat.Mean(absErrs, nil)
		m.RMSE = math.Sqrt(stat.Mean(sqErrs, nil))
		m.WithinTol = float64(within) / float64(m.Matched)
	}
	return m, nil
}

// nearest finds the truth sample closest in time to ts, rejecting
// matches farther than maxGapS.
func nearest(truth bpm.Series, ts, maxGapS float64) (bpm.Sample, bool) {
	i := sort.Search(len(truth), func(i int) bool { return truth[i].TimeS >= ts })

	best := bpm.Sample{}
	bestGap := math.Inf(1)
	for _, j := range []int{i - 1, i} {
		if j < 0 || j >= len(truth) {
			continue
		}
		gap := math.Abs(truth[j].TimeS - ts)
		if gap < bestGap {
			best, bestGap = truth[j], gap
		}
	}
	if bestGap > maxGapS {
		return bpm.Sample{}, false
	}
	return best, true
}
