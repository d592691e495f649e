package contracts

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date used in files and alignment keys
const DateLayout = "2006-01-02"

// MinHistory is the minimum number of aligned points/returns for factor output
const MinHistory = 60

// PricePoint is one adjusted close observation
type PricePoint struct {
	Date     time.Time `json:"date"`
	AdjClose float64   `json:"adj_close"`
}

// PriceSeries is a strictly increasing, duplicate-free series for one symbol
// ⭐ SSOT: provider → cache → aligner 전달 형식
type PriceSeries struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// Len returns the number of points
func (s *PriceSeries) Len() int {
	return len(s.Points)
}

// Last returns the most recent point
func (s *PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Validate checks that dates are strictly increasing
func (s *PriceSeries) Validate() error {
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Date.After(s.Points[i-1].Date) {
			return fmt.Errorf("series %s: dates not strictly increasing at index %d (%s)",
				s.Symbol, i, DateKey(s.Points[i].Date))
		}
	}
	return nil
}

// DateKey normalizes a timestamp to its calendar date
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// AlignedSet is the benchmark and tickers restricted to their common dates
// ⭐ SSOT: S1 → S2 전달
type AlignedSet struct {
	Benchmark PriceSeries   `json:"benchmark"`
	Tickers   []PriceSeries `json:"tickers"`
	Dates     []time.Time   `json:"dates"`
	Short     bool          `json:"short"` // 공통 구간 < MinHistory
}

// Len returns the number of common dates
func (a *AlignedSet) Len() int {
	return len(a.Dates)
}
