package dsp

import "sort"

// FindPeaks locates local maxima in a 1-D signal subject to a minimum
// prominence and a minimum horizontal separation in samples, and
// returns their indices in ascending order. Plateau maxima report the
// middle sample of the plateau. When two qualifying peaks are closer
// than minDistance, the taller one wins.
func FindPeaks(signal []float64, minDistance int, minProminence float64) []int {
	maxima := localMaxima(signal)
	if len(maxima) == 0 {
		return nil
	}

	kept := maxima[:0]
	for _, idx := range maxima {
		if prominence(signal, idx) >= minProminence {
			kept = append(kept, idx)
		}
	}
	if minDistance > 1 {
		kept = enforceDistance(signal, kept, minDistance)
	}
	return kept
}

// localMaxima returns indices of strict local maxima, treating flat
// plateaus as a single peak at their midpoint.
func localMaxima(signal []float64) []int {
	var out []int
	i := 1
	for i < len(signal)-1 {
		if signal[i] <= signal[i-1] {
			i++
			continue
		}
		// Rising edge at i; walk any plateau.
		j := i
		for j < len(signal)-1 && signal[j+1] == signal[i] {
			j++
		}
		if j < len(signal)-1 && signal[j+1] < signal[i] {
			out = append(out, (i+j)/2)
		}
		i = j + 1
	}
	return out
}

// prominence measures how far a peak rises above its surroundings: on
// each side, walk outward until a sample higher than the peak (or the
// signal edge) and record the lowest sample passed; the prominence is
// the peak height minus the higher of the two side minima.
func prominence(signal []float64, peak int) float64 {
	height := signal[peak]

	leftMin := height
	for i := peak - 1; i >= 0; i-- {
		if signal[i] > height {
			break
		}
		if signal[i] < leftMin {
			leftMin = signal[i]
		}
	}

	rightMin := height
	for i := peak + 1; i < len(signal); i++ {
		if signal[i] > height {
			break
		}
		if signal[i] < rightMin {
			rightMin = signal[i]
		}
	}

	base := leftMin
	if rightMin > base {
		base = rightMin
	}
	return height - base
}

// enforceDistance keeps the tallest peaks first, discarding any peak
// within minDistance samples of one already kept.
func enforceDistance(signal []float64, peaks []int, minDistance int) []int {
	byHeight := make([]int, len(peaks))
	copy(byHeight, peaks)
	sort.SliceStable(byHeight, func(a, b int) bool {
		return signal[byHeight[a]] > signal[byHeight[b]]
	})

	removed := make(map[int]bool, len(peaks))
	for _, p := range byHeight {
		if removed[p] {
			continue
		}
		for _, q := range peaks {
			if q == p || removed[q] {
				continue
			}
			if q > p-minDistance && q < p+minDistance {
				removed[q] = true
			}
		}
	}

	out := peaks[:0]
	for _, p := range peaks {
		if !removed[p] {
			out = append(out, p)
		}
	}
	return out
}
