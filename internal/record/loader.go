// Package record loads wrist-sensor recordings from disk: one PPG
// channel and an optional 3-axis accelerometer channel, recorded at
// the same rate and aligned by sample index. Recordings are stored as
// a pair of files named <name>_ppg.<ext> and <name>_imu.<ext>, where
// ext is csv (one column per channel) or wav (16-bit PCM, 1 or 3
// channels).
package record

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-audio/wav"
)

// Recording is one complete capture. IMU is nil when the recording has
// no motion channel; consumers must degrade accordingly.
type Recording struct {
	Name       string
	SampleRate float64
	PPG        []float64
	IMU        [][3]float64
}

// Duration is the recording length in seconds.
func (r *Recording) Duration() float64 {
	if r.SampleRate <= 0 {
		return 0
	}
	return float64(len(r.PPG)) / r.SampleRate
}

var signalExtensions = []string{".csv", ".wav"}

// Load reads the recording with the given base name from dir,
// attaching the IMU channel when its file exists. rate is the nominal
// sample rate used for CSV files; WAV files carry their own rate and
// it must match.
func Load(dir, name string, rate float64) (*Recording, error) {
	rec := &Recording{Name: name, SampleRate: rate}

	ppgPath, err := resolve(dir, name+"_ppg")
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", name, err)
	}
	rec.PPG, err = loadChannels(ppgPath, 1, rec)
	if err != nil {
		return nil, fmt.Errorf("recording %s: PPG: %w", name, err)
	}

	imuPath, err := resolve(dir, name+"_imu")
	if err == nil {
		flat, err := loadChannels(imuPath, 3, rec)
		if err != nil {
			return nil, fmt.Errorf("recording %s: IMU: %w", name, err)
		}
		rec.IMU = make([][3]float64, len(flat)/3)
		for i := range rec.IMU {
			rec.IMU[i] = [3]float64{flat[3*i], flat[3*i+1], flat[3*i+2]}
		}
		if len(rec.IMU) != len(rec.PPG) {
			return nil, fmt.Errorf("recording %s: IMU has %d samples, PPG has %d",
				name, len(rec.IMU), len(rec.PPG))
		}
	}

	if err := rec.validate(); err != nil {
		return nil, fmt.Errorf("recording %s: %w", name, err)
	}
	return rec, nil
}

// Discover lists the base names of all recordings in dir, sorted.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base := e.Name()
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		if !strings.HasSuffix(stem, "_ppg") || !validExtension(ext) {
			continue
		}
		name := strings.TrimSuffix(stem, "_ppg")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func validExtension(ext string) bool {
	for _, e := range signalExtensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// resolve finds <stem>.csv or <stem>.wav under dir.
func resolve(dir, stem string) (string, error) {
	for _, ext := range signalExtensions {
		path := filepath.Join(dir, stem+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no %s.{csv,wav} in %s", stem, dir)
}

// loadChannels reads an interleaved multi-channel signal file,
// validating the channel count. The result is row-major:
// sample 0 ch 0, sample 0 ch 1, ...
func loadChannels(path string, channels int, rec *Recording) ([]float64, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return loadWAV(path, channels, rec)
	default:
		return loadCSV(path, channels)
	}
}

// loadCSV reads one row per sample with one column per channel. A
// single non-numeric leading row is treated as a header and skipped.
func loadCSV(path string, channels int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = channels
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	start := 0
	if _, err := strconv.ParseFloat(rows[0][0], 64); err != nil {
		start = 1
	}

	out := make([]float64, 0, (len(rows)-start)*channels)
	for _, row := range rows[start:] {
		for _, field := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: bad sample %q: %w", path, field, err)
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// loadWAV reads a 16-bit PCM WAV with the expected channel count,
// normalizing samples to [-1, 1]. The file's sample rate must match
// the recording's.
func loadWAV(path string, channels int, rec *Recording) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if buf.Format.NumChannels != channels {
		return nil, fmt.Errorf("%s: expected %d channels, file has %d",
			path, channels, buf.Format.NumChannels)
	}
	if rec.SampleRate > 0 && float64(buf.Format.SampleRate) != rec.SampleRate {
		return nil, fmt.Errorf("%s: sample rate %d does not match expected %g",
			path, buf.Format.SampleRate, rec.SampleRate)
	}

	bits := buf.SourceBitDepth
	if bits == 0 {
		bits = 16
	}
	scale := 1.0 / float64(int(1)<<(bits-1))
	out := make([]float64, len(buf.Data))
	for i, s := range buf.Data {
		out[i] = float64(s) * scale
	}
	return out, nil
}

// validate rejects recordings the pipeline cannot process: an empty
// PPG channel or one with no finite samples at all.
func (r *Recording) validate() error {
	if len(r.PPG) == 0 {
		return fmt.Errorf("empty PPG channel")
	}
	for _, v := range r.PPG {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return nil
		}
	}
	return fmt.Errorf("PPG channel has no finite samples")
}
