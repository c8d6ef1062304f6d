package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartlab/wristbpm/internal/bpm"
	"github.com/heartlab/wristbpm/internal/estimator"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleOutcome() estimator.Outcome {
	return estimator.Outcome{
		Series: bpm.Series{
			{TimeS: 0, BPM: 72.13},
			{TimeS: 1, BPM: 73.08},
			{TimeS: 2, BPM: 71.95},
		},
		Validated: true,
		Windows:   5,
		Rejected:  2,
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	store := openTestStore(t)
	cfg := estimator.DefaultConfig()

	id, err := store.SaveRun("s1_walk", cfg, sampleOutcome())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	runs, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "s1_walk", runs[0].Record)
	assert.Equal(t, "spectral", runs[0].Strategy)
	assert.Equal(t, "power", runs[0].Policy)
	assert.True(t, runs[0].Validated)
	assert.Equal(t, 5, runs[0].Windows)
	assert.Equal(t, 2, runs[0].Rejected)

	series, err := store.Series(id)
	require.NoError(t, err)
	assert.Equal(t, sampleOutcome().Series, series)
	assert.True(t, series.IsSorted())
}

func TestSaveRunEmptySeries(t *testing.T) {
	store := openTestStore(t)

	out := estimator.Outcome{Validated: false, Windows: 3}
	id, err := store.SaveRun("quiet", estimator.DefaultConfig(), out)
	require.NoError(t, err)

	series, err := store.Series(id)
	require.NoError(t, err)
	assert.Empty(t, series, "empty series is stored as a run with zero rows")

	runs, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].Validated)
}

func TestDeleteRun(t *testing.T) {
	store := openTestStore(t)

	id, err := store.SaveRun("s1_walk", estimator.DefaultConfig(), sampleOutcome())
	require.NoError(t, err)

	require.NoError(t, store.DeleteRun(id))

	runs, err := store.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)

	series, err := store.Series(id)
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestDeleteMissingRun(t *testing.T) {
	store := openTestStore(t)
	assert.Error(t, store.DeleteRun("no-such-run"))
}

func TestMultipleRunsPerRecord(t *testing.T) {
	store := openTestStore(t)
	cfg := estimator.DefaultConfig()

	idA, err := store.SaveRun("s1_walk", cfg, sampleOutcome())
	require.NoError(t, err)

	cfg.Strategy = estimator.StrategyPeakCount
	cfg.Policy = estimator.PolicyNaive
	idB, err := store.SaveRun("s1_walk", cfg, estimator.Outcome{
		Series:    bpm.Series{{TimeS: 0, BPM: 70}},
		Validated: true,
		Windows:   1,
	})
	require.NoError(t, err)
	require.NotEqual(t, idA, idB)

	runs, err := store.ListRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	series, err := store.Series(idB)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 70.0, series[0].BPM)
}
