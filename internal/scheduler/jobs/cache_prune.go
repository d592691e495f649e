package jobs

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/wonny/investor-coach/internal/pricecache"
	"github.com/wonny/investor-coach/pkg/logger"
)

// CachePruneJob drops manifest entries that are stale or whose files are gone
type CachePruneJob struct {
	store  *pricecache.Store
	logger *logger.Logger

	removed atomic.Int64
}

// NewCachePruneJob creates a new cache prune job
func NewCachePruneJob(store *pricecache.Store, log *logger.Logger) *CachePruneJob {
	return &CachePruneJob{
		store:  store,
		logger: log.WithModule("jobs"),
	}
}

// Name returns the job name
func (j *CachePruneJob) Name() string {
	return "cache_prune"
}

// Schedule returns the cron schedule (Sunday 03:00)
func (j *CachePruneJob) Schedule() string {
	return "0 0 3 * * 0"
}

// Summary reports how many entries the last run removed
func (j *CachePruneJob) Summary() string {
	return "removed=" + strconv.FormatInt(j.removed.Load(), 10)
}

// Run executes the cache prune
func (j *CachePruneJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled cache prune")

	count := 0
	for _, e := range j.store.List() {
		if e.Fresh {
			continue
		}
		removed, err := j.store.Remove(ctx, e.Key)
		if err != nil {
			return err
		}
		if removed {
			count++
		}
	}

	j.removed.Store(int64(count))
	if count > 0 {
		j.logger.WithField("removed", count).Info("Cache prune completed")
	}

	return nil
}
