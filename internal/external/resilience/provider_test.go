package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/pkg/logger"
	"github.com/wonny/investor-coach/pkg/metrics"
)

// scriptedProvider returns errs in order, then a series
type scriptedProvider struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (s *scriptedProvider) Fetch(ctx context.Context, symbol string, tf contracts.Timeframe, freq contracts.Frequency) (*contracts.PriceSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &contracts.PriceSeries{Symbol: symbol, Points: []contracts.PricePoint{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), AdjClose: 100},
	}}, nil
}

func (s *scriptedProvider) Source() string { return "scripted" }

func (s *scriptedProvider) Currency(ctx context.Context, symbol string) (string, error) {
	return "EUR", nil
}

func newTestProvider(inner contracts.SeriesProvider, rec *metrics.Recorder) (*Provider, *[]time.Duration) {
	p := New(inner, DefaultPolicy(), logger.Nop(), rec)
	var sleeps []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return p, &sleeps
}

func TestFetchRetriesTransient(t *testing.T) {
	inner := &scriptedProvider{errs: []error{
		contracts.Transient(errors.New("503")),
		contracts.Transient(errors.New("timeout")),
	}}
	rec := metrics.New()
	p, sleeps := newTestProvider(inner, rec)

	series, err := p.Fetch(context.Background(), "AAPL", contracts.Timeframe1Y, contracts.FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", series.Symbol)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, *sleeps)
	assert.Equal(t, "closed", p.State())
}

func TestFetchExhaustedIsProviderUnavailable(t *testing.T) {
	transient := contracts.Transient(errors.New("connection reset"))
	inner := &scriptedProvider{errs: []error{transient, transient, transient}}
	p, sleeps := newTestProvider(inner, nil)

	_, err := p.Fetch(context.Background(), "AAPL", contracts.Timeframe1Y, contracts.FrequencyDaily)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrProviderUnavailable))
	assert.False(t, errors.Is(err, contracts.ErrDataUnavailable))

	var pu *contracts.ProviderUnavailableError
	require.True(t, errors.As(err, &pu))
	assert.Equal(t, 3, pu.Attempts)
	assert.Equal(t, "AAPL", pu.Symbol)
	assert.Len(t, *sleeps, 2)
}

func TestFetchDataUnavailableNotRetried(t *testing.T) {
	inner := &scriptedProvider{errs: []error{
		&contracts.DataUnavailableError{Symbol: "ZZZZ", Reason: "empty"},
	}}
	p, sleeps := newTestProvider(inner, nil)

	for i := 0; i < 5; i++ {
		inner.errs = []error{&contracts.DataUnavailableError{Symbol: "ZZZZ", Reason: "empty"}}
		_, err := p.Fetch(context.Background(), "ZZZZ", contracts.Timeframe1Y, contracts.FrequencyDaily)
		assert.True(t, errors.Is(err, contracts.ErrDataUnavailable))
	}
	assert.Equal(t, 5, inner.calls)
	assert.Empty(t, *sleeps)
	// 데이터 없음은 breaker 실패로 세지 않음
	assert.Equal(t, "closed", p.State())
}

func TestFetchPermanentErrorNotRetried(t *testing.T) {
	inner := &scriptedProvider{errs: []error{errors.New("unexpected status code: 403")}}
	p, sleeps := newTestProvider(inner, nil)

	_, err := p.Fetch(context.Background(), "AAPL", contracts.Timeframe1Y, contracts.FrequencyDaily)
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Empty(t, *sleeps)
	assert.False(t, errors.Is(err, contracts.ErrProviderUnavailable))
}

func TestBreakerOpensAndShortCircuits(t *testing.T) {
	transient := contracts.Transient(errors.New("503"))
	inner := &scriptedProvider{errs: []error{transient, transient, transient, nil}}
	rec := metrics.New()
	p, _ := newTestProvider(inner, rec)

	_, err := p.Fetch(context.Background(), "AAPL", contracts.Timeframe1Y, contracts.FrequencyDaily)
	require.Error(t, err)
	assert.Equal(t, "open", p.State())

	_, err = p.Fetch(context.Background(), "MSFT", contracts.Timeframe1Y, contracts.FrequencyDaily)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrProviderUnavailable))

	var pu *contracts.ProviderUnavailableError
	require.True(t, errors.As(err, &pu))
	assert.Equal(t, 1, pu.Attempts)
	assert.Equal(t, 3, inner.calls)

	expected := `
# HELP coach_provider_fetch_total Series provider fetches by outcome
# TYPE coach_provider_fetch_total counter
coach_provider_fetch_total{outcome="breaker_open",provider="scripted"} 1
coach_provider_fetch_total{outcome="exhausted",provider="scripted"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "coach_provider_fetch_total"))
}

func TestFetchCancelledDuringBackoff(t *testing.T) {
	inner := &scriptedProvider{errs: []error{contracts.Transient(errors.New("503"))}}
	p := New(inner, DefaultPolicy(), logger.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Fetch(ctx, "AAPL", contracts.Timeframe1Y, contracts.FrequencyDaily)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls)
}

func TestCurrencyDelegates(t *testing.T) {
	p, _ := newTestProvider(&scriptedProvider{}, nil)
	cur, err := p.Currency(context.Background(), "SAP")
	require.NoError(t, err)
	assert.Equal(t, "EUR", cur)
	assert.Equal(t, "scripted", p.Source())
}
