package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/heartlab/wristbpm/internal/bpm"
)

// Summary condenses one result series.
type Summary struct {
	Count  int
	Mean   float64
	Median float64
}

// Summarize computes count, mean, and median of the series' rates.
// A zero Summary is returned for an empty series.
func Summarize(series bpm.Series) Summary {
	if len(series) == 0 {
		return Summary{}
	}
	values := series.BPMs()
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return Summary{
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		Median: median,
	}
}

// FileSummary pairs a result file with its statistics.
type FileSummary struct {
	File    string
	Summary Summary
	Err     error
}

// SummarizeDir summarizes every .csv result file in dir, sorted by
// file name. A file that fails to parse contributes an entry with Err
// set instead of aborting the rest.
func SummarizeDir(dir string) ([]FileSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	var out []FileSummary
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		fs := FileSummary{File: e.Name()}
		series, err := ReadSeriesFile(filepath.Join(dir, e.Name()))
		if err != nil {
			fs.Err = err
		} else {
			fs.Summary = Summarize(series)
		}
		out = append(out, fs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}
