package batch

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartlab/wristbpm/internal/estimator"
	"github.com/heartlab/wristbpm/internal/record"
	"github.com/heartlab/wristbpm/internal/report"
	"github.com/heartlab/wristbpm/internal/storage"
)

// writeToneRecording writes a CSV recording of a pure cardiac tone
// plus, optionally, a stationary IMU channel.
func writeToneRecording(t *testing.T, dir, name string, freqHz float64, n int, withIMU bool) {
	t.Helper()
	var ppg strings.Builder
	var imu strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&ppg, "%.8f\n", math.Sin(2*math.Pi*freqHz*float64(i)/500))
		imu.WriteString("0,0,0\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+"_ppg.csv"), []byte(ppg.String()), 0o644))
	if withIMU {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+"_imu.csv"), []byte(imu.String()), 0o644))
	}
}

func TestProcessDirIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	writeToneRecording(t, dir, "s1_walk", 2.0, 8000, true)
	writeToneRecording(t, dir, "s3_rest", 1.2, 8000, false)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s2_bad_ppg.csv"),
		[]byte("not,a,signal\n"), 0o644))

	out := t.TempDir()
	runner := Runner{
		Config:    estimator.DefaultConfig(),
		Condition: record.DefaultConditionConfig(),
		OutDir:    out,
	}

	results, err := runner.ProcessDir(context.Background(), dir)
	require.NoError(t, err, "one bad recording must not abort the batch")
	require.Len(t, results, 3)

	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Record] = r
	}

	walk := byName["s1_walk"]
	assert.Equal(t, StatusCompleted, walk.Status)
	assert.True(t, walk.Validated)
	require.NotEmpty(t, walk.Series)
	assert.InDelta(t, 120, walk.Series[0].BPM, 10)

	bad := byName["s2_bad"]
	assert.Equal(t, StatusFailed, bad.Status)
	assert.Error(t, bad.Err)

	rest := byName["s3_rest"]
	assert.Equal(t, StatusCompleted, rest.Status)
	assert.False(t, rest.Validated, "no IMU file means unvalidated mode")

	// Completed recordings got their CSVs; the failed one did not.
	series, err := report.ReadSeriesFile(filepath.Join(out, "s1_walk_bpm.csv"))
	require.NoError(t, err)
	assert.Len(t, series, len(walk.Series))
	_, err = os.Stat(filepath.Join(out, "s2_bad_bpm.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestProcessDirSkipsNLMSWithoutIMU(t *testing.T) {
	dir := t.TempDir()
	writeToneRecording(t, dir, "solo", 2.0, 8000, false)

	cfg := estimator.DefaultConfig()
	cfg.UseNLMS = true
	runner := Runner{Config: cfg, Condition: record.DefaultConditionConfig()}

	results, err := runner.ProcessDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusSkipped, results[0].Status)
	assert.Contains(t, results[0].Reason, "motion reference")
}

func TestProcessDirPersistsRuns(t *testing.T) {
	dir := t.TempDir()
	writeToneRecording(t, dir, "s1_walk", 2.0, 8000, true)

	store, err := storage.Open(filepath.Join(t.TempDir(), "runs.sqlite3"))
	require.NoError(t, err)
	defer store.Close()

	runner := Runner{
		Config:    estimator.DefaultConfig(),
		Condition: record.DefaultConditionConfig(),
		Store:     store,
	}
	results, err := runner.ProcessDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotEmpty(t, results[0].RunID)

	series, err := store.Series(results[0].RunID)
	require.NoError(t, err)
	assert.Len(t, series, len(results[0].Series))
}

func TestProcessDirBadConfig(t *testing.T) {
	cfg := estimator.DefaultConfig()
	cfg.SampleRate = 0
	runner := Runner{Config: cfg}
	_, err := runner.ProcessDir(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestProcessDirMissingDir(t *testing.T) {
	runner := Runner{Config: estimator.DefaultConfig()}
	_, err := runner.ProcessDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestProcessDirHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	writeToneRecording(t, dir, "s1_walk", 2.0, 8000, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := Runner{Config: estimator.DefaultConfig(), Condition: record.DefaultConditionConfig()}
	_, err := runner.ProcessDir(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}
