// Package bpm holds the output data model shared by the estimation
// core, reporting, validation, and storage: a time-indexed series of
// accepted heart-rate measurements.
package bpm

import "sort"

// Sample is one accepted measurement: window start time in seconds
// from the beginning of the recording, and the estimated rate.
type Sample struct {
	TimeS float64
	BPM   float64
}

// Series is an append-only sequence of samples, ascending by time.
// An empty series is a valid outcome and is not a failure.
type Series []Sample

// BPMs returns the rate values in order.
func (s Series) BPMs() []float64 {
	out := make([]float64, len(s))
	for i, m := range s {
		out[i] = m.BPM
	}
	return out
}

// SortByTime restores ascending time order, for callers that produced
// samples out of order (e.g. parallel window workers).
func (s Series) SortByTime() {
	sort.Slice(s, func(i, j int) bool { return s[i].TimeS < s[j].TimeS })
}

// IsSorted reports whether the series is in ascending time order.
func (s Series) IsSorted() bool {
	return sort.SliceIsSorted(s, func(i, j int) bool { return s[i].TimeS < s[j].TimeS })
}
