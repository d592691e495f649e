package pricecache

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wonny/investor-coach/internal/contracts"
)

// symbolPattern excludes '_' so the "__" separator cannot occur inside a component
var symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)

const keySep = "__"

// CacheKey derives SYMBOL__BENCH__timeframe__frequency.
// Distinct inputs always give distinct keys.
func CacheKey(symbol, benchmark string, tf contracts.Timeframe, freq contracts.Frequency) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	bench := strings.ToUpper(strings.TrimSpace(benchmark))

	if !symbolPattern.MatchString(sym) {
		return "", contracts.ValidationError{Field: "symbol", Message: fmt.Sprintf("invalid symbol %q", symbol)}
	}
	if !symbolPattern.MatchString(bench) {
		return "", contracts.ValidationError{Field: "benchmark", Message: fmt.Sprintf("invalid symbol %q", benchmark)}
	}

	timeframe, err := contracts.ParseTimeframe(string(tf))
	if err != nil {
		return "", err
	}
	frequency, err := contracts.ParseFrequency(string(freq))
	if err != nil {
		return "", err
	}

	return strings.Join([]string{sym, bench, string(timeframe), string(frequency)}, keySep), nil
}

// pricesPath / metaPath are relative to the cache root
func pricesPath(key string) string {
	return "prices/" + key + ".csv"
}

func metaPath(key string) string {
	return "prices/" + key + "__meta.json"
}
