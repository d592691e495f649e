package contracts

import (
	"math"
	"time"
)

// WarningInsufficientHistory is set when fewer than MinHistory returns exist
const WarningInsufficientHistory = "insufficient_history"

// FactorRow holds the risk/return factors of one ticker vs. the benchmark.
// A nil metric means the value is undefined for this row.
// ⭐ SSOT: S2 → S3 전달
type FactorRow struct {
	Symbol      string    `json:"symbol"`
	AsOf        time.Time `json:"as_of"`
	PeriodCount int       `json:"period_count"`
	Volatility  *float64  `json:"volatility"`
	MaxDrawdown *float64  `json:"max_drawdown"` // ≤ 0
	Sharpe      *float64  `json:"sharpe"`
	Beta        *float64  `json:"beta"`
	RSquared    *float64  `json:"r_squared"`

	// Optional enrichment
	Currency     string   `json:"currency,omitempty"`
	ExpenseRatio *float64 `json:"expense_ratio"`
	YieldPct     *float64 `json:"yield_pct"`

	Warning string `json:"warning,omitempty"`
}

// Insufficient reports whether the row was computed on a too-short history
func (r *FactorRow) Insufficient() bool {
	return r.Warning == WarningInsufficientHistory
}

// DrawdownMagnitude returns |maxDrawdown|
func (r *FactorRow) DrawdownMagnitude() *float64 {
	if r.MaxDrawdown == nil {
		return nil
	}
	return Float(math.Abs(*r.MaxDrawdown))
}

// Fundamentals are provider-reported, slowly changing instrument facts
type Fundamentals struct {
	Symbol       string   `json:"symbol"`
	ExpenseRatio *float64 `json:"expense_ratio"` // fraction, 0.0003 = 0.03%
	YieldPct     *float64 `json:"yield_pct"`     // fraction
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
