package factors

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/investor-coach/internal/contracts"
)

// Engine computes per-ticker risk/return factors (순수 계산기).
// Fetching and caching happen upstream; Engine only does math.
type Engine struct{}

// NewEngine 새 팩터 엔진 생성
func NewEngine() *Engine {
	return &Engine{}
}

// Compute returns one FactorRow per ticker of the aligned set, in ticker order.
//
// Rows built on fewer than MinHistory returns carry nil statistics and
// the insufficient_history warning. AsOf and PeriodCount come from the
// aligned benchmark and are shared by every row.
func (e *Engine) Compute(set contracts.AlignedSet, riskFreeAnnualRate float64, periodsPerYear int) []contracts.FactorRow {
	benchReturns := SimpleReturns(closes(set.Benchmark))
	periodCount := len(benchReturns)

	var asOf time.Time
	if n := len(set.Dates); n > 0 {
		asOf = set.Dates[n-1]
	}

	rows := make([]contracts.FactorRow, 0, len(set.Tickers))
	for _, ticker := range set.Tickers {
		row := contracts.FactorRow{
			Symbol:      ticker.Symbol,
			AsOf:        asOf,
			PeriodCount: periodCount,
		}

		prices := closes(ticker)
		returns := SimpleReturns(prices)
		if len(returns) < contracts.MinHistory {
			row.Warning = contracts.WarningInsufficientHistory
			rows = append(rows, row)
			continue
		}

		e.fill(&row, prices, returns, benchReturns, riskFreeAnnualRate, periodsPerYear)
		rows = append(rows, row)
	}
	return rows
}

// fill computes the statistics of one ticker; returns and benchReturns share dates.
// 표본 추정치 (n-1): stat.StdDev, stat.Variance, stat.Covariance
func (e *Engine) fill(row *contracts.FactorRow, prices, returns, benchReturns []float64, rf float64, periodsPerYear int) {
	annualize := math.Sqrt(float64(periodsPerYear))

	sd := stat.StdDev(returns, nil)
	row.Volatility = contracts.Float(sd * annualize)
	row.MaxDrawdown = contracts.Float(MaxDrawdown(prices))

	// 분모는 초과수익률이 아닌 원 수익률의 표준편차
	if !isZero(sd) {
		perPeriod := rf / float64(periodsPerYear)
		row.Sharpe = contracts.Float((stat.Mean(returns, nil) - perPeriod) / sd * annualize)
	}

	benchVar := stat.Variance(benchReturns, nil)
	if isZero(benchVar) {
		return
	}
	row.Beta = contracts.Float(stat.Covariance(returns, benchReturns, nil) / benchVar)

	if isZero(sd * sd) {
		return
	}
	corr := stat.Correlation(returns, benchReturns, nil)
	row.RSquared = contracts.Float(corr * corr)
}
