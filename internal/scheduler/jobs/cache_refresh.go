package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/internal/pricecache"
	"github.com/wonny/investor-coach/pkg/logger"
)

// CacheRefreshJob keeps a watchlist warm so interactive compares hit the cache
type CacheRefreshJob struct {
	store     *pricecache.Store
	symbols   []string
	benchmark string
	timeframe contracts.Timeframe
	frequency contracts.Frequency
	schedule  string
	logger    *logger.Logger

	mu      sync.Mutex
	summary string
}

// NewCacheRefreshJob creates a new cache refresh job.
// The benchmark itself is refreshed too.
func NewCacheRefreshJob(
	store *pricecache.Store,
	symbols []string,
	benchmark string,
	tf contracts.Timeframe,
	freq contracts.Frequency,
	schedule string,
	log *logger.Logger,
) *CacheRefreshJob {
	return &CacheRefreshJob{
		store:     store,
		symbols:   symbols,
		benchmark: benchmark,
		timeframe: tf,
		frequency: freq,
		schedule:  schedule,
		logger:    log.WithModule("jobs"),
	}
}

// Name returns the job name
func (j *CacheRefreshJob) Name() string {
	return "cache_refresh"
}

// Schedule returns the cron schedule (default: weekdays 06:30)
func (j *CacheRefreshJob) Schedule() string {
	if j.schedule == "" {
		return "0 30 6 * * 1-5"
	}
	return j.schedule
}

// Summary describes the last completed run
func (j *CacheRefreshJob) Summary() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.summary
}

// Run ensures every watchlist series is fresh.
// Symbols without data are logged and skipped; other failures fail the run.
func (j *CacheRefreshJob) Run(ctx context.Context) error {
	symbols := append([]string{j.benchmark}, j.symbols...)
	j.logger.WithField("symbols", len(symbols)).Info("Starting cache refresh")

	var errs []error
	refreshed, missing := 0, 0
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := j.store.EnsureFresh(ctx, pricecache.FetchRequest{
			Symbol:    sym,
			Benchmark: j.benchmark,
			Timeframe: j.timeframe,
			Frequency: j.frequency,
		})
		switch {
		case err == nil:
			refreshed++
		case errors.Is(err, contracts.ErrDataUnavailable):
			missing++
			j.logger.WithField("symbol", sym).WithError(err).Warn("No data for watchlist symbol")
		default:
			errs = append(errs, fmt.Errorf("%s: %w", sym, err))
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"fresh":   refreshed,
		"missing": missing,
		"failed":  len(errs),
	}).Info("Cache refresh completed")

	j.mu.Lock()
	j.summary = fmt.Sprintf("fresh=%d missing=%d failed=%d", refreshed, missing, len(errs))
	j.mu.Unlock()

	return errors.Join(errs...)
}
