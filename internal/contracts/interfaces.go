package contracts

import "context"

// SeriesProvider returns an adjusted-close series for a symbol
// ⭐ SSOT: 외부 가격 소스는 이 인터페이스로만 접근
//
// Errors: *DataUnavailableError when the source has no data for the
// symbol, Transient(...) for failures worth retrying.
type SeriesProvider interface {
	Fetch(ctx context.Context, symbol string, tf Timeframe, freq Frequency) (*PriceSeries, error)
	Source() string
}

// CurrencyResolver looks up the trading currency of a symbol
type CurrencyResolver interface {
	Currency(ctx context.Context, symbol string) (string, error)
}

// FundamentalsProvider supplies expense ratio / yield (optional metrics)
type FundamentalsProvider interface {
	Fundamentals(ctx context.Context, symbol string) (*Fundamentals, error)
}
