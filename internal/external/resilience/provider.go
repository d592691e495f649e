package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/pkg/logger"
	"github.com/wonny/investor-coach/pkg/metrics"
)

// Policy bounds retries and the breaker
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	TripAfter    uint32        // 연속 실패 횟수 → open
	OpenTimeout  time.Duration // open → half-open
}

// DefaultPolicy is 3 attempts, 500ms..5s backoff, open after 3 consecutive failures
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		TripAfter:    3,
		OpenTimeout:  30 * time.Second,
	}
}

// Provider decorates a SeriesProvider with retry and a circuit breaker.
// Only transient errors are retried; DataUnavailable passes straight through.
// ⭐ SSOT: 외부 소스 재시도 정책은 여기서만
type Provider struct {
	inner   contracts.SeriesProvider
	policy  Policy
	breaker *gobreaker.CircuitBreaker
	logger  *logger.Logger
	metrics *metrics.Recorder
	sleep   func(ctx context.Context, d time.Duration) error
}

// New wraps inner. rec may be nil.
func New(inner contracts.SeriesProvider, policy Policy, log *logger.Logger, rec *metrics.Recorder) *Provider {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.TripAfter == 0 {
		policy.TripAfter = DefaultPolicy().TripAfter
	}

	p := &Provider{
		inner:   inner,
		policy:  policy,
		logger:  log.WithModule("resilience").WithField("provider", inner.Source()),
		metrics: rec,
		sleep:   sleepCtx,
	}

	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    inner.Source(),
		Timeout: policy.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= policy.TripAfter
		},
		// 데이터 없음/취소는 소스 장애가 아님
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, contracts.ErrDataUnavailable) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.WithFields(map[string]interface{}{
				"from": from.String(),
				"to":   to.String(),
			}).Warn("Circuit breaker state changed")
			p.metrics.BreakerState(name, int(to))
		},
	})
	return p
}

// Source implements contracts.SeriesProvider
func (p *Provider) Source() string {
	return p.inner.Source()
}

// State returns the breaker state (closed, half-open, open)
func (p *Provider) State() string {
	return p.breaker.State().String()
}

// Fetch implements contracts.SeriesProvider
func (p *Provider) Fetch(ctx context.Context, symbol string, tf contracts.Timeframe, freq contracts.Frequency) (*contracts.PriceSeries, error) {
	var series *contracts.PriceSeries
	err := p.call(ctx, symbol, "fetch", func() error {
		var err error
		series, err = p.inner.Fetch(ctx, symbol, tf, freq)
		return err
	})
	return series, err
}

// Currency implements contracts.CurrencyResolver when the inner provider does
func (p *Provider) Currency(ctx context.Context, symbol string) (string, error) {
	resolver, ok := p.inner.(contracts.CurrencyResolver)
	if !ok {
		return "", fmt.Errorf("provider %s cannot resolve currency", p.Source())
	}

	var currency string
	err := p.call(ctx, symbol, "currency", func() error {
		var err error
		currency, err = resolver.Currency(ctx, symbol)
		return err
	})
	return currency, err
}

// call runs fn through the breaker with bounded exponential backoff
func (p *Provider) call(ctx context.Context, symbol, op string, fn func() error) error {
	delay := p.policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		_, err := p.breaker.Execute(func() (interface{}, error) {
			return nil, fn()
		})
		if err == nil {
			p.metrics.ProviderFetch(p.Source(), "ok")
			return nil
		}

		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			p.metrics.ProviderFetch(p.Source(), "breaker_open")
			return &contracts.ProviderUnavailableError{Symbol: symbol, Attempts: attempt, Err: err}
		case errors.Is(err, contracts.ErrDataUnavailable):
			p.metrics.ProviderFetch(p.Source(), "no_data")
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		case !contracts.IsTransient(err):
			p.metrics.ProviderFetch(p.Source(), "error")
			return err
		}

		lastErr = err
		if attempt == p.policy.MaxAttempts {
			break
		}

		p.metrics.ProviderRetry(p.Source())
		p.logger.WithFields(map[string]interface{}{
			"symbol":  symbol,
			"op":      op,
			"attempt": attempt,
			"delay":   delay,
		}).WithError(err).Warn("Retrying provider call")

		if err := p.sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
		if delay > p.policy.MaxDelay {
			delay = p.policy.MaxDelay
		}
	}

	p.metrics.ProviderFetch(p.Source(), "exhausted")
	return &contracts.ProviderUnavailableError{Symbol: symbol, Attempts: p.policy.MaxAttempts, Err: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
