package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/wonny/investor-coach/internal/archive"
	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/internal/external/resilience"
	"github.com/wonny/investor-coach/internal/external/yahoo"
	"github.com/wonny/investor-coach/internal/pipeline"
	"github.com/wonny/investor-coach/internal/pricecache"
	"github.com/wonny/investor-coach/internal/profile"
	"github.com/wonny/investor-coach/pkg/config"
	"github.com/wonny/investor-coach/pkg/database"
	"github.com/wonny/investor-coach/pkg/httputil"
	"github.com/wonny/investor-coach/pkg/logger"
	"github.com/wonny/investor-coach/pkg/metrics"
	"github.com/wonny/investor-coach/pkg/redis"
)

// app holds the wired components shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Recorder
	redis    *redis.Client
	cache    *redis.Cache
	yahoo    *yahoo.Client
	provider *resilience.Provider
	store    *pricecache.Store
	service  *pipeline.Service
}

// newApp loads config and wires provider → cache → pipeline.
// Redis is optional: a connection failure degrades to the in-process limiter.
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger / metrics
	log := logger.New(cfg)
	rec := metrics.New()

	// 3. Redis (rate limit + response cache)
	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without it")
		rdb = redis.Disabled()
	}
	cache := redis.NewCache(rdb, "coach")

	// 4. HTTP client: 재시도는 resilience 계층에서만
	httpClient := httputil.New(cfg, log).DisableRetry()
	if cfg.Provider.RPS > 0 {
		httpClient = httpClient.WithLocalLimiter(rate.NewLimiter(rate.Limit(cfg.Provider.RPS), 1))
	}
	if rdb.Enabled() && cfg.Provider.RPS > 0 {
		httpClient = httpClient.WithRateLimiter(
			redis.NewRateLimiter(rdb, "coach"),
			redis.ProviderRateLimit(yahoo.SourceName, cfg.Provider.RPS),
		)
	}

	// 5. Provider + resilience
	yc := yahoo.NewClient(httpClient, cfg.Provider, log).WithCache(cache)
	policy := resilience.DefaultPolicy()
	policy.MaxAttempts = cfg.Provider.MaxAttempts
	policy.InitialDelay = cfg.Provider.Backoff
	provider := resilience.New(yc, policy, log, rec)

	// 6. Price cache
	store, err := pricecache.New(cfg.Cache.Dir, cfg.Cache.TTL, provider, log,
		pricecache.WithCurrencyResolver(provider),
		pricecache.WithMetrics(rec),
	)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("open price cache: %w", err)
	}

	// 7. Pipeline
	service := pipeline.NewService(store, yc, profile.NewLoader(cfg.ProfilesDir), pipeline.Options{
		RiskFreeRate: cfg.Analytics.RiskFreeRate,
		Benchmark:    cfg.Analytics.Benchmark,
		Workers:      cfg.Analytics.Workers,
		FetchTimeout: cfg.Analytics.FetchTimeout,
		MissingData:  contracts.MissingDataPolicy(cfg.Analytics.MissingDataPolicy),
		CacheTTL:     cfg.Cache.TTL,
	}, log, rec)

	return &app{
		cfg:      cfg,
		log:      log,
		metrics:  rec,
		redis:    rdb,
		cache:    cache,
		yahoo:    yc,
		provider: provider,
		store:    store,
		service:  service,
	}, nil
}

// Close releases external connections
func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}

// openArchive connects to Postgres and ensures the archive schema.
// The returned close func is never nil.
func (a *app) openArchive(ctx context.Context) (*archive.Repository, func(), error) {
	db, err := database.New(ctx, a.cfg)
	if err != nil {
		if errors.Is(err, database.ErrNotConfigured) {
			return nil, func() {}, fmt.Errorf("archive requires DATABASE_URL: %w", err)
		}
		return nil, func() {}, fmt.Errorf("connect to database: %w", err)
	}

	repo := archive.NewRepository(db, a.log)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, func() {}, err
	}
	return repo, db.Close, nil
}

// signalContext is cancelled on Ctrl+C / SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
