package scoring

import (
	"math"
	"sort"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/pkg/logger"
)

// Engine implements S3: normalization, weighting and ranking
// ⭐ SSOT: 점수/순위 로직은 여기서만
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a new scoring engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{logger: log.WithModule("scoring")}
}

// ScoreAndRank normalizes every weighted metric across the candidate set,
// scores each row with its own renormalized weights and assigns dense
// ranks 1..N. The input rows are not modified.
func (e *Engine) ScoreAndRank(rows []contracts.FactorRow, weights contracts.WeightConfig, target contracts.R2Target) []contracts.ScoredRow {
	scored := make([]contracts.ScoredRow, len(rows))
	for i, row := range rows {
		scored[i] = contracts.ScoredRow{
			FactorRow:     row,
			Normalized:    map[contracts.Metric]float64{},
			Contributions: map[contracts.Metric]float64{},
		}
	}

	for _, m := range weights.Metrics() {
		normalize(scored, m, target)
	}

	for i := range scored {
		applyWeights(&scored[i], weights)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return less(&scored[i], &scored[j])
	})
	for i := range scored {
		scored[i].Rank = i + 1
	}

	if len(scored) > 0 {
		top := scored[0]
		fields := map[string]interface{}{
			"rows":      len(scored),
			"top":       top.Symbol,
			"weights":   weights.String(),
			"r2_target": string(target),
		}
		if top.Score != nil {
			fields["top_score"] = *top.Score
		}
		e.logger.WithFields(fields).Info("Ranking completed")
	}

	return scored
}

// normalize min-max scales metric m over rows that have a value for it.
// Rows flagged insufficient_history never take part.
func normalize(rows []contracts.ScoredRow, m contracts.Metric, target contracts.R2Target) {
	spec, ok := registry[m]
	if !ok {
		return
	}

	values := make([]*float64, len(rows))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range rows {
		if rows[i].Insufficient() {
			continue
		}
		v := spec.extract(&rows[i].FactorRow, target)
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		values[i] = v
		lo = math.Min(lo, *v)
		hi = math.Max(hi, *v)
	}

	for i, v := range values {
		if v == nil {
			continue
		}
		norm := 0.5 // 모든 값이 같으면 중립
		if hi > lo {
			norm = (*v - lo) / (hi - lo)
			if spec.lowerIsBetter {
				norm = 1 - norm
			}
		}
		rows[i].Normalized[m] = norm
	}
}

// applyWeights scores one row over its qualifying metrics (normalized and weight > 0)
func applyWeights(row *contracts.ScoredRow, weights contracts.WeightConfig) {
	var qualifying []contracts.Metric
	total := 0.0
	for _, m := range weights.Metrics() {
		w := weights.Weight(m)
		if _, ok := row.Normalized[m]; ok && w > 0 {
			qualifying = append(qualifying, m)
			total += w
		}
	}
	if len(qualifying) == 0 {
		return
	}

	score := 0.0
	for _, m := range qualifying {
		c := weights.Weight(m) / total * row.Normalized[m]
		row.Contributions[m] = c
		score += c
	}
	row.Score = contracts.Float(math.Min(1, math.Max(0, score)))
}

// less orders by score desc, sharpe desc, drawdown magnitude asc,
// expense ratio asc, then symbol. Nil sorts last at every level.
func less(a, b *contracts.ScoredRow) bool {
	if c := compareNullable(a.Score, b.Score, true); c != 0 {
		return c < 0
	}
	if c := compareNullable(a.Sharpe, b.Sharpe, true); c != 0 {
		return c < 0
	}
	if c := compareNullable(a.DrawdownMagnitude(), b.DrawdownMagnitude(), false); c != 0 {
		return c < 0
	}
	if c := compareNullable(a.ExpenseRatio, b.ExpenseRatio, false); c != 0 {
		return c < 0
	}
	return a.Symbol < b.Symbol
}

// compareNullable returns -1 when a goes first, 1 when b goes first
func compareNullable(a, b *float64, descending bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a == *b:
		return 0
	}
	if (*a > *b) == descending {
		return -1
	}
	return 1
}
