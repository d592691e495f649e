package contracts

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWeightConfig(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]float64
		want    map[string]float64
		wantErr bool
	}{
		{
			name: "sum within tolerance kept as is",
			raw:  map[string]float64{"sharpe": 0.5, "volatility": 0.3, "max_drawdown": 0.205},
			want: map[string]float64{"sharpe": 0.5, "volatility": 0.3, "max_drawdown": 0.205},
		},
		{
			name: "sum outside tolerance rescaled",
			raw:  map[string]float64{"sharpe": 2, "volatility": 2},
			want: map[string]float64{"sharpe": 0.5, "volatility": 0.5},
		},
		{
			name: "legacy aliases resolved",
			raw:  map[string]float64{"vol": 0.25, "max_dd": 0.25, "yield": 0.25, "r2_align": 0.25},
			want: map[string]float64{"volatility": 0.25, "max_drawdown": 0.25, "yield_pct": 0.25, "r2_alignment": 0.25},
		},
		{
			name: "zero weight kept",
			raw:  map[string]float64{"sharpe": 1, "expense_ratio": 0},
			want: map[string]float64{"sharpe": 1, "expense_ratio": 0},
		},
		{name: "unknown key", raw: map[string]float64{"momentum": 1}, wantErr: true},
		{name: "negative", raw: map[string]float64{"sharpe": 1.2, "volatility": -0.2}, wantErr: true},
		{name: "nan", raw: map[string]float64{"sharpe": math.NaN()}, wantErr: true},
		{name: "zero sum", raw: map[string]float64{"sharpe": 0}, wantErr: true},
		{name: "empty", raw: map[string]float64{}, wantErr: true},
		{name: "alias collides with canonical", raw: map[string]float64{"vol": 0.5, "volatility": 0.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wc, err := NewWeightConfig(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			got := wc.Map()
			require.Len(t, got, len(tt.want))
			for k, v := range tt.want {
				assert.InDelta(t, v, got[k], 1e-12, k)
			}
		})
	}
}

func TestWeightConfigAccessors(t *testing.T) {
	wc := MustWeightConfig(map[string]float64{"volatility": 0.3, "sharpe": 0.7, "yield_pct": 0})

	assert.Equal(t, []Metric{MetricSharpe, MetricVolatility, MetricYield}, wc.Metrics())
	assert.True(t, wc.Has(MetricYield))
	assert.False(t, wc.Has(MetricExpenseRatio))
	assert.Equal(t, 0.0, wc.Weight(MetricExpenseRatio))
	assert.InDelta(t, 1.0, wc.Sum(), 1e-12)
	assert.Equal(t, "sharpe=0.70 volatility=0.30 yield_pct=0.00", wc.String())
	assert.Equal(t, []string{"sharpe", "volatility", "yield_pct"}, wc.SortedKeys())
	assert.True(t, WeightConfig{}.IsZero())
}

func TestWeightConfigWith(t *testing.T) {
	base := MustWeightConfig(map[string]float64{"sharpe": 0.5, "volatility": 0.5})

	merged, err := base.With(map[string]float64{"vol": 0.0, "yield": 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, merged.Weight(MetricSharpe), 1e-12)
	assert.InDelta(t, 0.0, merged.Weight(MetricVolatility), 1e-12)
	assert.InDelta(t, 0.5, merged.Weight(MetricYield), 1e-12)

	// base untouched
	assert.InDelta(t, 0.5, base.Weight(MetricVolatility), 1e-12)

	_, err = base.With(map[string]float64{"beta": 1})
	assert.Error(t, err)
}

func TestWeightConfigJSON(t *testing.T) {
	wc := MustWeightConfig(map[string]float64{"sharpe": 0.6, "max_drawdown": 0.4})

	data, err := json.Marshal(wc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sharpe":0.6,"max_drawdown":0.4}`, string(data))

	var back WeightConfig
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, wc.Map(), back.Map())

	assert.Error(t, json.Unmarshal([]byte(`{"bogus":1}`), &back))

	var empty WeightConfig
	require.NoError(t, json.Unmarshal([]byte(`{}`), &empty))
	assert.True(t, empty.IsZero())
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric(" Sharpe ")
	require.NoError(t, err)
	assert.Equal(t, MetricSharpe, m)

	m, err = ParseMetric("dd_mag")
	require.NoError(t, err)
	assert.Equal(t, MetricMaxDrawdown, m)

	_, err = ParseMetric("alpha")
	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "weights", ve.Field)
}
