package contracts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeframe(t *testing.T) {
	for _, in := range []string{"1y", "3Y", " 5y "} {
		_, err := ParseTimeframe(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseTimeframe("10y")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		in   string
		want Frequency
		ppy  int
	}{
		{"D", FrequencyDaily, 252},
		{"w", FrequencyWeekly, 52},
		{"M", FrequencyMonthly, 12},
	}
	for _, tt := range tests {
		f, err := ParseFrequency(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, f)
		assert.Equal(t, tt.ppy, f.PeriodsPerYear())
	}

	_, err := ParseFrequency("Q")
	assert.Error(t, err)
}

func TestParseR2TargetAndPolicy(t *testing.T) {
	target, err := ParseR2Target("LOW")
	require.NoError(t, err)
	assert.Equal(t, R2TargetLow, target)
	_, err = ParseR2Target("medium")
	assert.Error(t, err)

	policy, err := ParseMissingDataPolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, MissingDataSkip, policy)
	_, err = ParseMissingDataPolicy("retry")
	assert.Error(t, err)
}

func TestStages(t *testing.T) {
	assert.Len(t, AllStages(), 4)
	assert.True(t, IsValidStage("S2_FACTORS"))
	assert.False(t, IsValidStage("S4_RANKER"))
	assert.Equal(t, "S3", StageScoring.ShortName())
}
