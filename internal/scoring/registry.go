package scoring

import (
	"github.com/wonny/investor-coach/internal/contracts"
)

// metricSpec describes how one metric is read from a row and which
// direction is better.
type metricSpec struct {
	lowerIsBetter bool
	extract       func(row *contracts.FactorRow, target contracts.R2Target) *float64
}

// registry is closed: every contracts.Metric has exactly one spec
var registry = map[contracts.Metric]metricSpec{
	contracts.MetricSharpe: {
		extract: func(row *contracts.FactorRow, _ contracts.R2Target) *float64 { return row.Sharpe },
	},
	contracts.MetricVolatility: {
		lowerIsBetter: true,
		extract:       func(row *contracts.FactorRow, _ contracts.R2Target) *float64 { return row.Volatility },
	},
	contracts.MetricMaxDrawdown: {
		lowerIsBetter: true,
		extract:       func(row *contracts.FactorRow, _ contracts.R2Target) *float64 { return row.DrawdownMagnitude() },
	},
	contracts.MetricExpenseRatio: {
		lowerIsBetter: true,
		extract:       func(row *contracts.FactorRow, _ contracts.R2Target) *float64 { return row.ExpenseRatio },
	},
	contracts.MetricYield: {
		extract: func(row *contracts.FactorRow, _ contracts.R2Target) *float64 { return row.YieldPct },
	},
	contracts.MetricR2Alignment: {
		extract: r2Alignment,
	},
}

// r2Alignment maps R² onto the configured preference
func r2Alignment(row *contracts.FactorRow, target contracts.R2Target) *float64 {
	if row.RSquared == nil {
		return nil
	}
	switch target {
	case contracts.R2TargetHigh:
		return contracts.Float(*row.RSquared)
	case contracts.R2TargetLow:
		return contracts.Float(1 - *row.RSquared)
	default:
		return nil
	}
}

// LowerIsBetter reports whether smaller raw values of m score higher
func LowerIsBetter(m contracts.Metric) bool {
	return registry[m].lowerIsBetter
}
