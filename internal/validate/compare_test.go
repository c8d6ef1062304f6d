package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartlab/wristbpm/internal/bpm"
)

func TestComparePerfectAgreement(t *testing.T) {
	truth := bpm.Series{
		{TimeS: 0, BPM: 80}, {TimeS: 1, BPM: 82}, {TimeS: 2, BPM: 84},
	}
	m, err := Compare(truth, truth, 0.5, 5)
	require.NoError(t, err)

	assert.Equal(t, 3, m.Matched)
	assert.Zero(t, m.Unmatched)
	assert.Zero(t, m.MAE)
	assert.Zero(t, m.RMSE)
	assert.Equal(t, 1.0, m.WithinTol)
}

func TestCompareKnownErrors(t *testing.T) {
	truth := bpm.Series{
		{TimeS: 0, BPM: 100}, {TimeS: 1, BPM: 100}, {TimeS: 2, BPM: 100},
	}
	est := bpm.Series{
		{TimeS: 0.1, BPM: 104}, // matches t=0, err 4
		{TimeS: 0.9, BPM: 97},  // matches t=1, err 3
		{TimeS: 2.0, BPM: 112}, // matches t=2, err 12
	}

	m, err := Compare(est, truth, 0.5, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Matched)
	assert.InDelta(t, (4.0+3.0+12.0)/3, m.MAE, 1e-9)
	assert.InDelta(t, 2.0/3, m.WithinTol, 1e-9)
	assert.Greater(t, m.RMSE, m.MAE, "RMSE weighs the outlier harder")
}

func TestCompareUnmatchedOutsideGap(t *testing.T) {
	truth := bpm.Series{{TimeS: 0, BPM: 100}}
	est := bpm.Series{
		{TimeS: 0.2, BPM: 100},
		{TimeS: 5.0, BPM: 100}, // nothing within 1 s
	}

	m, err := Compare(est, truth, 1.0, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Matched)
	assert.Equal(t, 1, m.Unmatched)
}

func TestCompareEmptyTruth(t *testing.T) {
	_, err := Compare(bpm.Series{{TimeS: 0, BPM: 100}}, nil, 1, 5)
	assert.Error(t, err)
}

func TestCompareRejectsUnsorted(t *testing.T) {
	truth := bpm.Series{{TimeS: 1, BPM: 100}, {TimeS: 0, BPM: 100}}
	_, err := Compare(bpm.Series{{TimeS: 0, BPM: 100}}, truth, 1, 5)
	assert.Error(t, err)
}

func TestCompareEmptyEstimate(t *testing.T) {
	truth := bpm.Series{{TimeS: 0, BPM: 100}}
	m, err := Compare(nil, truth, 1, 5)
	require.NoError(t, err, "empty estimate is a valid, zero-match comparison")
	assert.Zero(t, m.Matched)
}
