// Package report writes the tabular output of an estimation run and
// computes summary statistics over result files.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/heartlab/wristbpm/internal/bpm"
)

// Header of the result table. Timestamps are seconds from recording
// start; rates carry two decimals.
var header = []string{"timestamp_seconds", "bpm"}

// WriteSeries writes the series as CSV. A zero-row table (header only)
// is a valid output, distinct from a write failure.
func WriteSeries(w io.Writer, series bpm.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, s := range series {
		row := []string{
			strconv.FormatFloat(s.TimeS, 'f', 2, 64),
			strconv.FormatFloat(s.BPM, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSeriesFile writes the series to path, creating or truncating
// the file.
func WriteSeriesFile(path string, series bpm.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSeries(f, series); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadSeries parses a two-column (timestamp, bpm) CSV, skipping a
// single non-numeric header row if present. Ground-truth files from
// the ECG reference detector use the same shape.
func ReadSeries(r io.Reader) (bpm.Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing series: %w", err)
	}

	var series bpm.Series
	for i, row := range rows {
		t, errT := strconv.ParseFloat(row[0], 64)
		v, errV := strconv.ParseFloat(row[1], 64)
		if errT != nil || errV != nil {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("series row %d: %q,%q not numeric", i+1, row[0], row[1])
		}
		series = append(series, bpm.Sample{TimeS: t, BPM: v})
	}
	if !series.IsSorted() {
		return nil, fmt.Errorf("series timestamps not ascending")
	}
	return series, nil
}

// ReadSeriesFile reads a result or ground-truth CSV from path.
func ReadSeriesFile(path string) (bpm.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSeries(f)
}
