package contracts

import (
	"fmt"
	"strings"
)

// Timeframe is the lookback window of a fetched series
type Timeframe string

const (
	Timeframe1Y Timeframe = "1y"
	Timeframe3Y Timeframe = "3y"
	Timeframe5Y Timeframe = "5y"
)

// ParseTimeframe accepts 1y, 3y, 5y (case-insensitive)
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(strings.ToLower(strings.TrimSpace(s))); tf {
	case Timeframe1Y, Timeframe3Y, Timeframe5Y:
		return tf, nil
	}
	return "", ValidationError{"timeframe", fmt.Sprintf("unsupported timeframe %q (1y, 3y, 5y)", s)}
}

// Frequency is the sampling frequency of a series
type Frequency string

const (
	FrequencyDaily   Frequency = "D"
	FrequencyWeekly  Frequency = "W"
	FrequencyMonthly Frequency = "M"
)

// ParseFrequency accepts D, W, M (case-insensitive)
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToUpper(strings.TrimSpace(s))); f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, nil
	}
	return "", ValidationError{"frequency", fmt.Sprintf("unsupported frequency %q (D, W, M)", s)}
}

// PeriodsPerYear is the annualization factor (252 / 52 / 12)
func (f Frequency) PeriodsPerYear() int {
	switch f {
	case FrequencyWeekly:
		return 52
	case FrequencyMonthly:
		return 12
	default:
		return 252
	}
}

// R2Target selects how R² vs. the benchmark feeds the score
type R2Target string

const (
	R2TargetHigh R2Target = "high" // 벤치마크 추종 선호
	R2TargetLow  R2Target = "low"  // 분산 효과 선호
	R2TargetNone R2Target = "none"
)

// ParseR2Target accepts high, low, none
func ParseR2Target(s string) (R2Target, error) {
	switch t := R2Target(strings.ToLower(strings.TrimSpace(s))); t {
	case R2TargetHigh, R2TargetLow, R2TargetNone:
		return t, nil
	}
	return "", ValidationError{"r2_align_target", fmt.Sprintf("unsupported target %q (high, low, none)", s)}
}

// MissingDataPolicy decides what a DataUnavailable ticker does to a comparison
type MissingDataPolicy string

const (
	MissingDataFail MissingDataPolicy = "fail"
	MissingDataSkip MissingDataPolicy = "skip"
)

// ParseMissingDataPolicy accepts fail, skip
func ParseMissingDataPolicy(s string) (MissingDataPolicy, error) {
	switch p := MissingDataPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case MissingDataFail, MissingDataSkip:
		return p, nil
	}
	return "", ValidationError{"missing_data_policy", fmt.Sprintf("unsupported policy %q (fail, skip)", s)}
}
