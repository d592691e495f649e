package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup outcomes
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheRefresh = "refresh" // forced
)

// Recorder collects pipeline metrics on a private registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	cacheLookups   *prometheus.CounterVec
	providerCalls  *prometheus.CounterVec
	providerRetry  *prometheus.CounterVec
	breakerState   *prometheus.GaugeVec
	stageDuration  *prometheus.HistogramVec
	rankedRows     prometheus.Counter
	excludedTotals *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates a recorder with Go/process collectors registered
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_cache_lookups_total",
			Help: "Price cache lookups by outcome",
		}, []string{"result"}),
		providerCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_provider_fetch_total",
			Help: "Series provider fetches by outcome",
		}, []string{"provider", "outcome"}),
		providerRetry: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_provider_retries_total",
			Help: "Retried provider fetches",
		}, []string{"provider"}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "coach_provider_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"provider"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coach_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		rankedRows: f.NewCounter(prometheus.CounterOpts{
			Name: "coach_ranked_rows_total",
			Help: "Rows produced by the scoring engine",
		}),
		excludedTotals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_excluded_symbols_total",
			Help: "Symbols dropped by the skip missing-data policy",
		}, []string{"reason"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_http_requests_total",
			Help: "API requests by route, method and status",
		}, []string{"route", "method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coach_http_request_duration_seconds",
			Help:    "API request latency by route",
			Buckets: []float64{.005, .025, .1, .5, 1, 5, 30, 120},
		}, []string{"route"}),
	}
}

// CacheLookup records a cache lookup outcome
func (r *Recorder) CacheLookup(result string) {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// ProviderFetch records a provider fetch outcome (ok, empty, error)
func (r *Recorder) ProviderFetch(provider, outcome string) {
	if r == nil {
		return
	}
	r.providerCalls.WithLabelValues(provider, outcome).Inc()
}

// ProviderRetry records one retry
func (r *Recorder) ProviderRetry(provider string) {
	if r == nil {
		return
	}
	r.providerRetry.WithLabelValues(provider).Inc()
}

// BreakerState records the breaker state as a number
func (r *Recorder) BreakerState(provider string, state int) {
	if r == nil {
		return
	}
	r.breakerState.WithLabelValues(provider).Set(float64(state))
}

// ObserveStage records the duration of a pipeline stage
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RankedRows adds n produced rows
func (r *Recorder) RankedRows(n int) {
	if r == nil {
		return
	}
	r.rankedRows.Add(float64(n))
}

// Excluded records a symbol excluded from a comparison
func (r *Recorder) Excluded(reason string) {
	if r == nil {
		return
	}
	r.excludedTotals.WithLabelValues(reason).Inc()
}

// HTTPRequest records one served API request.
// route is the mux path template, not the raw path.
func (r *Recorder) HTTPRequest(route, method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Registry exposes the underlying registry (tests, custom exporters)
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
