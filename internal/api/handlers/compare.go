package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/internal/pipeline"
	"github.com/wonny/investor-coach/internal/profile"
	"github.com/wonny/investor-coach/pkg/logger"
	"github.com/wonny/investor-coach/pkg/redis"
)

// Comparer runs a comparison (pipeline.Service)
type Comparer interface {
	CompareAndRank(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// CompareHandler handles comparison endpoints
// ⭐ SSOT: 비교 API 핸들러는 이 구조체에서만
type CompareHandler struct {
	service Comparer
	cache   *redis.Cache
	logger  *logger.Logger
}

// NewCompareHandler creates a new compare handler; cache may be backed by a disabled client
func NewCompareHandler(service Comparer, cache *redis.Cache, log *logger.Logger) *CompareHandler {
	return &CompareHandler{
		service: service,
		cache:   cache,
		logger:  log.WithModule("api"),
	}
}

// Compare ranks the requested tickers
// GET /api/compare?tickers=AAPL,MSFT&benchmark=SPY&profile=default&timeframe=3y&freq=D&r2=high&weights={...}&refresh=true
func (h *CompareHandler) Compare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	overrides, err := profile.ParseOverrides(q.Get("weights"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	refresh, _ := strconv.ParseBool(q.Get("refresh"))

	req := pipeline.Request{
		Tickers:         []string{q.Get("tickers")},
		Benchmark:       q.Get("benchmark"),
		Profile:         q.Get("profile"),
		WeightOverrides: overrides,
		Timeframe:       q.Get("timeframe"),
		Frequency:       q.Get("freq"),
		R2Target:        q.Get("r2"),
		ForceRefresh:    refresh,
	}
	if policy := q.Get("missing"); policy != "" {
		req.MissingData = contracts.MissingDataPolicy(strings.ToLower(policy))
	}

	key := redis.CompareKey(requestHash(q))
	if !refresh && h.cache != nil {
		var cached pipeline.Result
		if found, err := h.cache.Get(ctx, key, &cached); err == nil && found {
			w.Header().Set("X-Cache", "HIT")
			respondJSON(w, http.StatusOK, &cached)
			return
		}
	}

	result, err := h.service.CompareAndRank(ctx, req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.WithError(err).Error("Comparison failed")
		}
		respondError(w, status, err.Error())
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, result, redis.TTLCompare); err != nil {
			h.logger.WithError(err).Warn("Failed to cache comparison")
		}
	}

	w.Header().Set("X-Cache", "MISS")
	respondJSON(w, http.StatusOK, result)
}

// requestHash identifies a query independent of parameter order; refresh is ignored
func requestHash(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		if k == "refresh" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vals := append([]string(nil), q[k]...)
		sort.Strings(vals)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.ToUpper(strings.Join(vals, ",")))
		b.WriteByte('&')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
