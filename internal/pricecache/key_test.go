package pricecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/investor-coach/internal/contracts"
)

func TestCacheKey(t *testing.T) {
	key, err := CacheKey("aapl", "spy", "3Y", "d")
	require.NoError(t, err)
	assert.Equal(t, "AAPL__SPY__3y__D", key)

	key, err = CacheKey("BRK.B", "^GSPC", contracts.Timeframe1Y, contracts.FrequencyDaily)
	assert.Error(t, err, "caret is outside the symbol alphabet")
	assert.Empty(t, key)
}

func TestCacheKeyDistinct(t *testing.T) {
	inputs := []struct {
		sym, bench string
		tf         contracts.Timeframe
		freq       contracts.Frequency
	}{
		{"AAPL", "SPY", contracts.Timeframe3Y, contracts.FrequencyDaily},
		{"AAPL", "SPY", contracts.Timeframe3Y, contracts.FrequencyWeekly},
		{"AAPL", "SPY", contracts.Timeframe1Y, contracts.FrequencyDaily},
		{"AAPL", "QQQ", contracts.Timeframe3Y, contracts.FrequencyDaily},
		{"SPY", "AAPL", contracts.Timeframe3Y, contracts.FrequencyDaily},
		{"A.B", "SPY", contracts.Timeframe3Y, contracts.FrequencyDaily},
		{"AB", "SPY", contracts.Timeframe3Y, contracts.FrequencyDaily},
	}

	seen := map[string]bool{}
	for _, in := range inputs {
		key, err := CacheKey(in.sym, in.bench, in.tf, in.freq)
		require.NoError(t, err)
		assert.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}

func TestCacheKeyRejects(t *testing.T) {
	tests := []struct {
		name, sym, bench, tf, freq string
	}{
		{"underscore", "A_B", "SPY", "3y", "D"},
		{"empty", "", "SPY", "3y", "D"},
		{"too long", "ABCDEFGHIJK", "SPY", "3y", "D"},
		{"timeframe", "AAPL", "SPY", "2y", "D"},
		{"frequency", "AAPL", "SPY", "3y", "Q"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CacheKey(tt.sym, tt.bench, contracts.Timeframe(tt.tf), contracts.Frequency(tt.freq))
			assert.Error(t, err)
		})
	}
}
