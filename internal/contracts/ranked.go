package contracts

// ScoredRow is a FactorRow with its normalized metrics, weighted
// contributions, composite score and rank.
// ⭐ SSOT: S3 결과 (출력 테이블/아카이브/API 공통)
type ScoredRow struct {
	FactorRow

	Normalized    map[Metric]float64 `json:"normalized"`
	Contributions map[Metric]float64 `json:"contributions"`
	Score         *float64           `json:"score"` // nil: 사용 가능한 지표 없음
	Rank          int                `json:"rank"`  // 1-based, dense
}

// IsTopRanked checks if the row is in top N ranks
func (r *ScoredRow) IsTopRanked(n int) bool {
	return r.Rank <= n && r.Rank > 0
}

// Raw returns the raw (pre-normalization) value of a metric for display
func (r *ScoredRow) Raw(m Metric) *float64 {
	switch m {
	case MetricVolatility:
		return r.Volatility
	case MetricMaxDrawdown:
		return r.MaxDrawdown
	case MetricSharpe:
		return r.Sharpe
	case MetricExpenseRatio:
		return r.ExpenseRatio
	case MetricYield:
		return r.YieldPct
	case MetricR2Alignment:
		return r.RSquared
	default:
		return nil
	}
}
