package contracts

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Metric is one scoring input; the set is closed
type Metric string

const (
	MetricVolatility   Metric = "volatility"
	MetricMaxDrawdown  Metric = "max_drawdown"
	MetricSharpe       Metric = "sharpe"
	MetricExpenseRatio Metric = "expense_ratio"
	MetricYield        Metric = "yield_pct"
	MetricR2Alignment  Metric = "r2_alignment"
)

// AllMetrics returns every metric in canonical (display) order
func AllMetrics() []Metric {
	return []Metric{
		MetricSharpe,
		MetricVolatility,
		MetricMaxDrawdown,
		MetricR2Alignment,
		MetricExpenseRatio,
		MetricYield,
	}
}

// 레거시 프로필/CLI 키 호환
var metricAliases = map[string]Metric{
	"vol":      MetricVolatility,
	"max_dd":   MetricMaxDrawdown,
	"dd_mag":   MetricMaxDrawdown,
	"yield":    MetricYield,
	"r2_align": MetricR2Alignment,
}

// ParseMetric resolves canonical names and legacy aliases
func ParseMetric(s string) (Metric, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, m := range AllMetrics() {
		if string(m) == key {
			return m, nil
		}
	}
	if m, ok := metricAliases[key]; ok {
		return m, nil
	}
	return "", ValidationError{"weights", fmt.Sprintf("unknown metric %q", s)}
}

// WeightTolerance is the allowed deviation of the weight sum from 1
const WeightTolerance = 0.01

// WeightConfig maps metrics to non-negative weights.
// Construct with NewWeightConfig; the zero value has no weights.
// ⭐ SSOT: 가중치 검증/재조정은 여기서만
type WeightConfig struct {
	weights map[Metric]float64
}

// NewWeightConfig validates raw weights and rescales them proportionally
// when the sum is outside 1 ± WeightTolerance.
func NewWeightConfig(raw map[string]float64) (WeightConfig, error) {
	if len(raw) == 0 {
		return WeightConfig{}, ValidationError{"weights", "at least one weight is required"}
	}

	weights := make(map[Metric]float64, len(raw))
	sum := 0.0
	for key, w := range raw {
		m, err := ParseMetric(key)
		if err != nil {
			return WeightConfig{}, err
		}
		if _, dup := weights[m]; dup {
			return WeightConfig{}, ValidationError{"weights", fmt.Sprintf("metric %q given more than once", m)}
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return WeightConfig{}, ValidationError{"weights." + string(m), "must be finite"}
		}
		if w < 0 {
			return WeightConfig{}, ValidationError{"weights." + string(m), "must be non-negative"}
		}
		weights[m] = w
		sum += w
	}

	if sum <= 0 {
		return WeightConfig{}, ValidationError{"weights", "sum must be positive"}
	}

	if math.Abs(sum-1) > WeightTolerance {
		for m, w := range weights {
			weights[m] = w / sum
		}
	}

	return WeightConfig{weights: weights}, nil
}

// MustWeightConfig is NewWeightConfig for static presets
func MustWeightConfig(raw map[string]float64) WeightConfig {
	wc, err := NewWeightConfig(raw)
	if err != nil {
		panic(err)
	}
	return wc
}

// Weight returns the weight of m (0 when absent)
func (w WeightConfig) Weight(m Metric) float64 {
	return w.weights[m]
}

// Has reports whether m was configured (even with weight 0)
func (w WeightConfig) Has(m Metric) bool {
	_, ok := w.weights[m]
	return ok
}

// Metrics returns the configured metrics in canonical order
func (w WeightConfig) Metrics() []Metric {
	var out []Metric
	for _, m := range AllMetrics() {
		if w.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

// Sum returns the total weight
func (w WeightConfig) Sum() float64 {
	sum := 0.0
	for _, v := range w.weights {
		sum += v
	}
	return sum
}

// IsZero reports whether no weights are configured
func (w WeightConfig) IsZero() bool {
	return len(w.weights) == 0
}

// Map returns a copy keyed by canonical metric name
func (w WeightConfig) Map() map[string]float64 {
	out := make(map[string]float64, len(w.weights))
	for m, v := range w.weights {
		out[string(m)] = v
	}
	return out
}

// With returns a copy with the given metric weights overridden, re-validated
func (w WeightConfig) With(overrides map[string]float64) (WeightConfig, error) {
	merged := w.Map()
	for key, v := range overrides {
		m, err := ParseMetric(key)
		if err != nil {
			return WeightConfig{}, err
		}
		merged[string(m)] = v
	}
	return NewWeightConfig(merged)
}

// String renders weights in canonical order, e.g. "sharpe=0.40 volatility=0.20"
func (w WeightConfig) String() string {
	parts := make([]string, 0, len(w.weights))
	for _, m := range w.Metrics() {
		parts = append(parts, fmt.Sprintf("%s=%.2f", m, w.weights[m]))
	}
	return strings.Join(parts, " ")
}

// MarshalJSON encodes weights as a JSON object with sorted keys
func (w WeightConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Map())
}

// UnmarshalJSON decodes and validates a JSON object of weights.
// An empty object or null decodes to the zero value.
func (w *WeightConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		*w = WeightConfig{}
		return nil
	}
	wc, err := NewWeightConfig(raw)
	if err != nil {
		return err
	}
	*w = wc
	return nil
}

// SortedKeys returns canonical names sorted alphabetically (stable hashing)
func (w WeightConfig) SortedKeys() []string {
	keys := make([]string, 0, len(w.weights))
	for m := range w.weights {
		keys = append(keys, string(m))
	}
	sort.Strings(keys)
	return keys
}
