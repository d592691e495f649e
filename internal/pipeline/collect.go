package pipeline

import (
	"context"
	"sync"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/internal/pricecache"
)

// fetched is the outcome of one symbol's S0
type fetched struct {
	index        int
	symbol       string
	series       *contracts.PriceSeries
	entry        *contracts.CacheEntry
	fundamentals *contracts.Fundamentals
	err          error
}

// fetchSet is the benchmark plus every ticker that has data, in request order
type fetchSet struct {
	benchmark fetched
	tickers   []fetched
}

// collect fetches all tickers with a bounded worker pool.
// Results come back in request order.
func (s *Service) collect(ctx context.Context, p *plan) []fetched {
	workers := s.opts.Workers
	if workers > len(p.tickers) {
		workers = len(p.tickers)
	}

	jobCh := make(chan int, len(p.tickers))
	resultCh := make(chan fetched, len(p.tickers))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobCh {
				f := s.fetchOne(ctx, p, p.tickers[idx], true)
				f.index = idx
				resultCh <- f
			}
		}()
	}

	for i := range p.tickers {
		jobCh <- i
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]fetched, len(p.tickers))
	failed := 0
	for f := range resultCh {
		results[f.index] = f
		if f.err != nil {
			failed++
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"success": len(results) - failed,
		"failed":  failed,
		"workers": workers,
	}).Debug("Ticker collection completed")

	return results
}

// fetchOne loads one symbol through the cache, with its own timeout.
// Fundamentals are best-effort and never fail the symbol.
func (s *Service) fetchOne(ctx context.Context, p *plan, symbol string, withFundamentals bool) fetched {
	if s.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
	}

	series, entry, err := s.store.Get(ctx, pricecache.FetchRequest{
		Symbol:    symbol,
		Benchmark: p.benchmark,
		Timeframe: p.settings.Timeframe,
		Frequency: p.settings.Frequency,
		TTL:       s.opts.CacheTTL,
		Force:     p.force,
	})
	if err != nil {
		s.logger.WithField("symbol", symbol).WithError(err).Warn("Failed to load series")
		return fetched{symbol: symbol, err: err}
	}

	f := fetched{symbol: symbol, series: series, entry: entry}
	if withFundamentals && s.fundamentals != nil {
		fund, err := s.fundamentals.Fundamentals(ctx, symbol)
		if err != nil {
			s.logger.WithField("symbol", symbol).WithError(err).Debug("Fundamentals unavailable")
		} else {
			f.fundamentals = fund
		}
	}
	return f
}
