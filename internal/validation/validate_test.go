package validation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/investor-coach/internal/contracts"
)

func TestNormalizeTickers(t *testing.T) {
	got := NormalizeTickers([]string{"aapl, msft", " vti ", "AAPL", "brk.b;bnd"})
	assert.Equal(t, []string{"AAPL", "MSFT", "VTI", "BRK.B", "BND"}, got)
	assert.Nil(t, NormalizeTickers([]string{" , "}))
}

func TestCompareValid(t *testing.T) {
	in := &CompareInput{
		Tickers:   []string{"aapl", "msft"},
		Benchmark: "spy",
		Profile:   "Low_Vol",
		Timeframe: "3Y",
		Frequency: "w",
	}
	require.NoError(t, Compare(in))
	assert.Equal(t, []string{"AAPL", "MSFT"}, in.Tickers)
	assert.Equal(t, "SPY", in.Benchmark)
	assert.Equal(t, "low_vol", in.Profile)
	assert.Equal(t, "3y", in.Timeframe)
	assert.Equal(t, "W", in.Frequency)
}

func TestCompareInvalid(t *testing.T) {
	tooMany := make([]string, MaxTickers+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("T%d", i)
	}

	tests := []struct {
		name  string
		in    CompareInput
		field string
	}{
		{"no tickers", CompareInput{Benchmark: "SPY"}, "tickers"},
		{"too many tickers", CompareInput{Tickers: tooMany, Benchmark: "SPY"}, "tickers"},
		{"bad ticker", CompareInput{Tickers: []string{"AAPL", "BRK_B"}, Benchmark: "SPY"}, "tickers[1]"},
		{"long ticker", CompareInput{Tickers: []string{"ABCDEFGHIJK"}, Benchmark: "SPY"}, "tickers[0]"},
		{"missing benchmark", CompareInput{Tickers: []string{"AAPL"}}, "benchmark"},
		{"bad profile", CompareInput{Tickers: []string{"AAPL"}, Benchmark: "SPY", Profile: "yolo"}, "profile"},
		{"bad timeframe", CompareInput{Tickers: []string{"AAPL"}, Benchmark: "SPY", Timeframe: "10y"}, "timeframe"},
		{"bad frequency", CompareInput{Tickers: []string{"AAPL"}, Benchmark: "SPY", Frequency: "Q"}, "freq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			err := Compare(&in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, contracts.ErrValidation))

			var ve contracts.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.NotEmpty(t, ve.Message)
		})
	}
}

func TestJournal(t *testing.T) {
	in := &JournalInput{
		Category: " core equity ",
		Tickers:  []string{"vti,voo"},
		Profile:  "default",
		TopPick:  "vti",
		Action:   "buy",
		Note:     "lower cost",
	}
	require.NoError(t, Journal(in))
	assert.Equal(t, "core equity", in.Category)
	assert.Equal(t, "BUY", in.Action)
	assert.Equal(t, "VTI", in.TopPick)

	bad := &JournalInput{Category: "x", Tickers: []string{"VTI"}, Action: "SELL"}
	err := Journal(bad)
	var ve contracts.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "action", ve.Field)
	assert.Contains(t, ve.Message, "BUY, REJECT, WATCH")
}
