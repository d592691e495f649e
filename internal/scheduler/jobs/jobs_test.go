package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/internal/pricecache"
	"github.com/wonny/investor-coach/pkg/logger"
)

type stubProvider struct {
	calls map[string]int
}

func (p *stubProvider) Fetch(ctx context.Context, symbol string, tf contracts.Timeframe, freq contracts.Frequency) (*contracts.PriceSeries, error) {
	p.calls[symbol]++
	switch symbol {
	case "GONE":
		return nil, &contracts.DataUnavailableError{Symbol: symbol, Reason: "delisted"}
	case "DOWN":
		return nil, errors.New("unexpected status code: 403")
	}
	return &contracts.PriceSeries{Symbol: symbol, Points: []contracts.PricePoint{
		{Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), AdjClose: 50},
	}}, nil
}

func (p *stubProvider) Source() string { return "stub" }

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newStore(t *testing.T, p contracts.SeriesProvider, c *clock) *pricecache.Store {
	t.Helper()
	store, err := pricecache.New(t.TempDir(), 24*time.Hour, p, logger.Nop(), pricecache.WithClock(c.Now))
	require.NoError(t, err)
	return store
}

func TestCacheRefreshJob(t *testing.T) {
	p := &stubProvider{calls: map[string]int{}}
	c := &clock{now: time.Date(2024, 5, 2, 6, 30, 0, 0, time.UTC)}
	store := newStore(t, p, c)

	job := NewCacheRefreshJob(store, []string{"VTI", "GONE"}, "SPY", contracts.Timeframe3Y, contracts.FrequencyDaily, "", logger.Nop())
	assert.Equal(t, "cache_refresh", job.Name())
	assert.Equal(t, "0 30 6 * * 1-5", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, p.calls["SPY"])
	assert.Equal(t, 1, p.calls["VTI"])
	assert.Len(t, store.List(), 2)
	assert.Equal(t, "fresh=2 missing=1 failed=0", job.Summary())

	// 신선한 항목은 다시 받지 않음
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, p.calls["VTI"])

	failing := NewCacheRefreshJob(store, []string{"DOWN"}, "SPY", contracts.Timeframe3Y, contracts.FrequencyDaily, "@daily", logger.Nop())
	err := failing.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOWN")
	assert.Equal(t, "fresh=1 missing=0 failed=1", failing.Summary())
}

func TestCachePruneJob(t *testing.T) {
	p := &stubProvider{calls: map[string]int{}}
	c := &clock{now: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)}
	store := newStore(t, p, c)

	req := pricecache.FetchRequest{Symbol: "VTI", Benchmark: "SPY", Timeframe: contracts.Timeframe1Y, Frequency: contracts.FrequencyDaily}
	_, err := store.EnsureFresh(context.Background(), req)
	require.NoError(t, err)

	job := NewCachePruneJob(store, logger.Nop())
	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, store.List(), 1)
	assert.Equal(t, "removed=0", job.Summary())

	c.now = c.now.Add(25 * time.Hour)
	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, store.List())
	assert.Equal(t, "removed=1", job.Summary())
}
