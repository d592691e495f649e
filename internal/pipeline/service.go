package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/internal/factors"
	"github.com/wonny/investor-coach/internal/pricecache"
	"github.com/wonny/investor-coach/internal/profile"
	"github.com/wonny/investor-coach/internal/scoring"
	"github.com/wonny/investor-coach/internal/validation"
	"github.com/wonny/investor-coach/pkg/logger"
	"github.com/wonny/investor-coach/pkg/metrics"
)

// Options holds the analytics knobs of a Service
type Options struct {
	RiskFreeRate float64
	Benchmark    string        // default benchmark
	Workers      int           // concurrent ticker fetches
	FetchTimeout time.Duration // per symbol, 0: none
	MissingData  contracts.MissingDataPolicy
	CacheTTL     time.Duration
}

// Request is one comparison. Empty fields fall back to the profile / Options.
type Request struct {
	Tickers         []string
	Benchmark       string
	Profile         string
	WeightOverrides map[string]float64
	Timeframe       string
	Frequency       string
	R2Target        string
	ForceRefresh    bool
	MissingData     contracts.MissingDataPolicy
}

// Exclusion is a ticker dropped under the skip policy
type Exclusion struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// Result is the ranked comparison and how it was produced
type Result struct {
	RunID        string                  `json:"run_id"`
	Tickers      []string                `json:"tickers"`
	Benchmark    string                  `json:"benchmark"`
	Profile      *profile.Profile        `json:"profile"`
	ProfileHash  string                  `json:"profile_hash"`
	Timeframe    contracts.Timeframe     `json:"timeframe"`
	Frequency    contracts.Frequency     `json:"frequency"`
	R2Target     contracts.R2Target      `json:"r2_align_target"`
	Weights      contracts.WeightConfig  `json:"weights"`
	RiskFreeRate float64                 `json:"risk_free_rate"`
	AsOf         time.Time               `json:"as_of"`
	CommonDates  int                     `json:"common_dates"`
	Short        bool                    `json:"short_history"`
	Rows         []contracts.ScoredRow   `json:"rows"`
	Excluded     []Exclusion             `json:"excluded,omitempty"`
	Stages       []contracts.StageResult `json:"stages"`
	Duration     time.Duration           `json:"duration"`
}

// TopPick returns the rank-1 symbol, or "" when nothing was scored
func (r *Result) TopPick() string {
	if len(r.Rows) == 0 || r.Rows[0].Score == nil {
		return ""
	}
	return r.Rows[0].Symbol
}

// Service runs fetch → align → compute → score
// ⭐ SSOT: 비교/순위 파이프라인 조율은 여기서만
type Service struct {
	store        *pricecache.Store
	fundamentals contracts.FundamentalsProvider
	profiles     *profile.Loader
	factors      *factors.Engine
	scorer       *scoring.Engine
	opts         Options
	logger       *logger.Logger
	metrics      *metrics.Recorder
}

// NewService creates a new pipeline service.
// fundamentals and rec may be nil.
func NewService(
	store *pricecache.Store,
	fundamentals contracts.FundamentalsProvider,
	profiles *profile.Loader,
	opts Options,
	log *logger.Logger,
	rec *metrics.Recorder,
) *Service {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MissingData == "" {
		opts.MissingData = contracts.MissingDataFail
	}
	if opts.Benchmark == "" {
		opts.Benchmark = "SPY"
	}

	log = log.WithModule("pipeline")
	return &Service{
		store:        store,
		fundamentals: fundamentals,
		profiles:     profiles,
		factors:      factors.NewEngine(),
		scorer:       scoring.NewEngine(log),
		opts:         opts,
		logger:       log,
		metrics:      rec,
	}
}

// plan is a validated request
type plan struct {
	tickers   []string
	benchmark string
	profile   *profile.Profile
	settings  profile.Settings
	force     bool
	policy    contracts.MissingDataPolicy
}

// CompareAndRank validates req, then runs S0..S3.
// Validation errors are returned before any fetch. Once fetching has
// started, cancelling ctx no longer aborts in-flight fetches.
func (s *Service) CompareAndRank(ctx context.Context, req Request) (*Result, error) {
	startTime := time.Now()

	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash, err := profile.Hash(p.profile)
	if err != nil {
		return nil, fmt.Errorf("profile hash: %w", err)
	}

	result := &Result{
		RunID:        uuid.NewString(),
		Tickers:      p.tickers,
		Benchmark:    p.benchmark,
		Profile:      p.profile,
		ProfileHash:  hash,
		Timeframe:    p.settings.Timeframe,
		Frequency:    p.settings.Frequency,
		R2Target:     p.settings.R2Target,
		Weights:      p.settings.Weights,
		RiskFreeRate: s.opts.RiskFreeRate,
	}

	log := s.logger.WithField("run_id", result.RunID)
	log.WithFields(map[string]interface{}{
		"tickers":   strings.Join(p.tickers, ","),
		"benchmark": p.benchmark,
		"profile":   p.profile.Name,
		"timeframe": p.settings.Timeframe,
		"frequency": p.settings.Frequency,
		"force":     p.force,
	}).Info("Starting comparison")

	// S0: Cache (fetch on miss)
	fetched, err := s.runS0(ctx, p, result)
	if err != nil {
		return nil, fmt.Errorf("S0 failed: %w", err)
	}

	// S1: Align
	aligned := s.runS1(fetched, result)

	// S2: Factors
	rows := s.runS2(aligned, fetched, p, result)

	// S3: Scoring
	result.Rows = s.runS3(rows, p, result)
	result.Duration = time.Since(startTime)

	log.WithFields(map[string]interface{}{
		"rows":     len(result.Rows),
		"excluded": len(result.Excluded),
		"top":      result.TopPick(),
		"duration": result.Duration.Seconds(),
	}).Info("Comparison completed")

	return result, nil
}

// prepare validates the raw request and resolves the profile
func (s *Service) prepare(req Request) (*plan, error) {
	benchmark := req.Benchmark
	if strings.TrimSpace(benchmark) == "" {
		benchmark = s.opts.Benchmark
	}

	in := &validation.CompareInput{
		Tickers:   req.Tickers,
		Benchmark: benchmark,
		Profile:   req.Profile,
		Timeframe: req.Timeframe,
		Frequency: req.Frequency,
	}
	if err := validation.Compare(in); err != nil {
		return nil, err
	}

	prof, err := s.profiles.Load(in.Profile)
	if err != nil {
		return nil, err
	}
	if len(req.WeightOverrides) > 0 {
		if prof, err = prof.MergeOverrides(req.WeightOverrides); err != nil {
			return nil, err
		}
	}

	// 요청 값이 프로필 값보다 우선
	merged := *prof
	if in.Timeframe != "" {
		merged.Timeframe = in.Timeframe
	}
	if in.Frequency != "" {
		merged.Frequency = in.Frequency
	}
	if req.R2Target != "" {
		merged.R2AlignTarget = strings.ToLower(strings.TrimSpace(req.R2Target))
	}
	settings, err := merged.Settings()
	if err != nil {
		return nil, err
	}

	policy := req.MissingData
	if policy == "" {
		policy = s.opts.MissingData
	}
	if policy, err = contracts.ParseMissingDataPolicy(string(policy)); err != nil {
		return nil, err
	}

	return &plan{
		tickers:   in.Tickers,
		benchmark: in.Benchmark,
		profile:   &merged,
		settings:  settings,
		force:     req.ForceRefresh,
		policy:    policy,
	}, nil
}

// runS0 fetches the benchmark first, then every ticker through the worker pool
func (s *Service) runS0(ctx context.Context, p *plan, result *Result) (*fetchSet, error) {
	start := time.Now()

	// 시작된 fetch는 호출자 취소와 무관하게 완료/타임아웃까지 진행
	fetchCtx := context.WithoutCancel(ctx)

	bench := s.fetchOne(fetchCtx, p, p.benchmark, false)
	if bench.err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", p.benchmark, bench.err)
	}

	fetched := s.collect(fetchCtx, p)

	set := &fetchSet{benchmark: bench}
	for _, f := range fetched {
		if f.err == nil {
			set.tickers = append(set.tickers, f)
			continue
		}
		if p.policy == contracts.MissingDataSkip && errors.Is(f.err, contracts.ErrDataUnavailable) {
			s.logger.WithField("symbol", f.symbol).WithError(f.err).Warn("Excluding ticker without data")
			result.Excluded = append(result.Excluded, Exclusion{Symbol: f.symbol, Reason: f.err.Error()})
			s.metrics.Excluded("data_unavailable")
			continue
		}
		return nil, f.err
	}

	if len(set.tickers) == 0 {
		return nil, fmt.Errorf("%w: no ticker left after exclusions", contracts.ErrDataUnavailable)
	}

	s.recordStage(result, contracts.StageCache, len(p.tickers)+1, len(set.tickers)+1, start,
		fmt.Sprintf("%d excluded", len(result.Excluded)))
	return set, nil
}

// runS1 intersects dates across the benchmark and the fetched tickers
func (s *Service) runS1(set *fetchSet, result *Result) contracts.AlignedSet {
	start := time.Now()

	tickers := make([]contracts.PriceSeries, len(set.tickers))
	for i, f := range set.tickers {
		tickers[i] = *f.series
	}
	aligned := factors.Align(*set.benchmark.series, tickers)

	result.CommonDates = aligned.Len()
	result.Short = aligned.Short
	if aligned.Len() > 0 {
		result.AsOf = aligned.Dates[aligned.Len()-1]
	}

	note := fmt.Sprintf("%d common dates", aligned.Len())
	if aligned.Short {
		note += " (short)"
		s.logger.WithField("common_dates", aligned.Len()).Warn("Aligned history shorter than minimum")
	}
	s.recordStage(result, contracts.StageAlign, len(tickers), len(aligned.Tickers), start, note)
	return aligned
}

// runS2 computes factors and merges currency / fundamentals into the rows
func (s *Service) runS2(aligned contracts.AlignedSet, set *fetchSet, p *plan, result *Result) []contracts.FactorRow {
	start := time.Now()

	rows := s.factors.Compute(aligned, s.opts.RiskFreeRate, p.settings.Frequency.PeriodsPerYear())

	bySymbol := make(map[string]fetched, len(set.tickers))
	for _, f := range set.tickers {
		bySymbol[f.symbol] = f
	}

	insufficient := 0
	for i := range rows {
		f := bySymbol[rows[i].Symbol]
		if f.entry != nil {
			rows[i].Currency = f.entry.Currency
		}
		if f.fundamentals != nil {
			rows[i].ExpenseRatio = f.fundamentals.ExpenseRatio
			rows[i].YieldPct = f.fundamentals.YieldPct
		}
		if rows[i].Insufficient() {
			insufficient++
		}
	}

	s.recordStage(result, contracts.StageFactors, aligned.Len(), len(rows), start,
		fmt.Sprintf("%d insufficient", insufficient))
	return rows
}

// runS3 scores and ranks
func (s *Service) runS3(rows []contracts.FactorRow, p *plan, result *Result) []contracts.ScoredRow {
	start := time.Now()

	ranked := s.scorer.ScoreAndRank(rows, p.settings.Weights, p.settings.R2Target)
	s.metrics.RankedRows(len(ranked))

	s.recordStage(result, contracts.StageScoring, len(rows), len(ranked), start, p.settings.Weights.String())
	return ranked
}

func (s *Service) recordStage(result *Result, stage contracts.Stage, in, out int, start time.Time, note string) {
	d := time.Since(start)
	s.metrics.ObserveStage(stage.String(), d)
	result.Stages = append(result.Stages, contracts.StageResult{
		Stage:       stage,
		InputCount:  in,
		OutputCount: out,
		Duration:    d.Milliseconds(),
		Note:        note,
	})
	s.logger.WithFields(map[string]interface{}{
		"stage":    stage.ShortName(),
		"input":    in,
		"output":   out,
		"duration": d.Seconds(),
	}).Debug(stage.Description() + " 완료")
}
