package factors

import (
	"sort"
	"time"

	"github.com/wonny/investor-coach/internal/contracts"
)

// Align restricts the benchmark and every ticker to the dates present in
// all of them, in chronological order. A short result is flagged, not rejected.
// Ticker order is preserved.
func Align(benchmark contracts.PriceSeries, tickers []contracts.PriceSeries) contracts.AlignedSet {
	all := make([]contracts.PriceSeries, 0, len(tickers)+1)
	all = append(all, benchmark)
	all = append(all, tickers...)

	byDate := make([]map[string]float64, len(all))
	for i, s := range all {
		m := make(map[string]float64, len(s.Points))
		for _, p := range s.Points {
			m[contracts.DateKey(p.Date)] = p.AdjClose
		}
		byDate[i] = m
	}

	// 벤치마크 날짜 중 모든 시리즈에 존재하는 날짜만
	var common []time.Time
	seen := make(map[string]bool, len(benchmark.Points))
	for _, p := range benchmark.Points {
		key := contracts.DateKey(p.Date)
		if seen[key] {
			continue
		}
		seen[key] = true

		inAll := true
		for _, m := range byDate[1:] {
			if _, ok := m[key]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			common = append(common, p.Date)
		}
	}
	sort.Slice(common, func(i, j int) bool { return common[i].Before(common[j]) })

	restrict := func(i int) contracts.PriceSeries {
		out := contracts.PriceSeries{Symbol: all[i].Symbol, Points: make([]contracts.PricePoint, len(common))}
		for j, d := range common {
			out.Points[j] = contracts.PricePoint{Date: d, AdjClose: byDate[i][contracts.DateKey(d)]}
		}
		return out
	}

	set := contracts.AlignedSet{
		Benchmark: restrict(0),
		Tickers:   make([]contracts.PriceSeries, len(tickers)),
		Dates:     common,
		Short:     len(common) < contracts.MinHistory,
	}
	for i := range tickers {
		set.Tickers[i] = restrict(i + 1)
	}
	return set
}

func closes(s contracts.PriceSeries) []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.AdjClose
	}
	return out
}
