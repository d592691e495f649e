package pricecache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/pkg/logger"
	"github.com/wonny/investor-coach/pkg/metrics"
)

// DefaultTTL is the freshness window of a cached series
const DefaultTTL = 72 * time.Hour

// FetchRequest identifies one cached series
type FetchRequest struct {
	Symbol    string
	Benchmark string
	Timeframe contracts.Timeframe
	Frequency contracts.Frequency
	TTL       time.Duration // 0: store default
	Force     bool          // bypass freshness
}

// Store is the on-disk TTL cache of adjusted-close series.
// Layout under root: prices/<key>.csv, prices/<key>__meta.json, manifest/index.json.
// ⭐ SSOT: 가격 캐시 읽기/쓰기는 이 Store를 통해서만
type Store struct {
	root     string
	ttl      time.Duration
	provider contracts.SeriesProvider
	currency contracts.CurrencyResolver
	logger   *logger.Logger
	metrics  *metrics.Recorder
	now      func() time.Time

	mu    sync.Mutex // serializes manifest updates within the process
	group singleflight.Group
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCurrencyResolver sets the currency lookup used on refresh
func WithCurrencyResolver(r contracts.CurrencyResolver) Option {
	return func(s *Store) { s.currency = r }
}

// WithMetrics records cache hits/misses
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates the cache directories and returns a Store
func New(root string, ttl time.Duration, provider contracts.SeriesProvider, log *logger.Logger, opts ...Option) (*Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s := &Store{
		root:     root,
		ttl:      ttl,
		provider: provider,
		logger:   log.WithModule("pricecache"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, dir := range []string{"prices", "manifest"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return s, nil
}

// Root returns the cache root directory
func (s *Store) Root() string {
	return s.root
}

// EnsureFresh returns the cache entry for req, refreshing it from the
// provider when it is missing, expired, incomplete on disk or forced.
// Concurrent calls for the same key share one provider fetch.
func (s *Store) EnsureFresh(ctx context.Context, req FetchRequest) (*contracts.CacheEntry, error) {
	key, err := CacheKey(req.Symbol, req.Benchmark, req.Timeframe, req.Frequency)
	if err != nil {
		return nil, err
	}

	if !req.Force {
		if entry, ok := s.lookupFresh(key); ok {
			s.metrics.CacheLookup(metrics.CacheHit)
			s.logger.WithField("key", key).Debug("cache hit")
			return &entry, nil
		}
	}

	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		// 다른 프로세스가 이미 갱신했을 수 있음
		if !req.Force {
			if entry, ok := s.lookupFresh(key); ok {
				return &entry, nil
			}
		}
		return s.refresh(ctx, key, req)
	})
	if err != nil {
		return nil, err
	}

	if req.Force {
		s.metrics.CacheLookup(metrics.CacheRefresh)
	} else {
		s.metrics.CacheLookup(metrics.CacheMiss)
	}
	if shared {
		s.logger.WithField("key", key).Debug("joined in-flight refresh")
	}

	entry := *(v.(*contracts.CacheEntry))
	return &entry, nil
}

// Get ensures freshness and loads the series in one call
func (s *Store) Get(ctx context.Context, req FetchRequest) (*contracts.PriceSeries, *contracts.CacheEntry, error) {
	entry, err := s.EnsureFresh(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	series, err := s.Load(*entry)
	if err != nil {
		return nil, nil, err
	}
	return series, entry, nil
}

// lookupFresh: entry exists && now <= expiresAt && both files exist
func (s *Store) lookupFresh(key string) (contracts.CacheEntry, bool) {
	entry, ok := s.readManifest().Find(key)
	if !ok {
		return contracts.CacheEntry{}, false
	}
	if !entry.NotExpired(s.now()) {
		return contracts.CacheEntry{}, false
	}
	if !s.filesPresent(entry) {
		s.logger.WithField("key", key).Warn("cache files missing, refetching")
		return contracts.CacheEntry{}, false
	}
	return entry, true
}

func (s *Store) filesPresent(entry contracts.CacheEntry) bool {
	return fileExists(s.abs(entry.PathPrices)) && fileExists(s.abs(entry.PathMeta))
}

func (s *Store) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// refresh fetches, then persists prices, metadata and the manifest entry
// under the manifest lock so another process never sees a mixed pair
func (s *Store) refresh(ctx context.Context, key string, req FetchRequest) (*contracts.CacheEntry, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	log := s.logger.WithFields(map[string]interface{}{"key": key, "symbol": symbol})

	series, err := s.provider.Fetch(ctx, symbol, req.Timeframe, req.Frequency)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if series == nil {
		return nil, &contracts.DataUnavailableError{Symbol: symbol, Reason: "provider returned no series"}
	}

	points := sanitizePoints(series.Points)
	if len(points) == 0 {
		return nil, &contracts.DataUnavailableError{Symbol: symbol, Reason: "provider returned no usable prices"}
	}

	currency := s.resolveCurrency(ctx, symbol, log)

	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now().UTC()

	entry := contracts.CacheEntry{
		Key:         key,
		PathPrices:  pricesPath(key),
		PathMeta:    metaPath(key),
		LastUpdated: now,
		TTLDays:     ttl.Hours() / 24,
		ExpiresAt:   now.Add(ttl),
		Source:      s.provider.Source(),
		Currency:    currency,
	}

	csvData, err := encodePrices(points)
	if err != nil {
		return nil, fmt.Errorf("encode prices %s: %w", key, err)
	}

	meta := contracts.SeriesMeta{
		Symbol:      symbol,
		Benchmark:   strings.ToUpper(req.Benchmark),
		Timeframe:   req.Timeframe,
		Frequency:   req.Frequency,
		Source:      entry.Source,
		Currency:    currency,
		AsOf:        contracts.DateKey(points[len(points)-1].Date),
		Rows:        len(points),
		LastUpdated: now,
	}

	// 가격 → 메타 → 매니페스트 순서, 모두 같은 락 안에서 (meta.rows == CSV 행 수)
	var writeErr error
	err = s.updateManifest(ctx, func(m *contracts.Manifest) bool {
		if writeErr = writeFileAtomic(s.abs(entry.PathPrices), csvData); writeErr != nil {
			return false
		}
		if writeErr = writeJSONAtomic(s.abs(entry.PathMeta), meta); writeErr != nil {
			return false
		}
		m.Upsert(entry)
		return true
	})
	if err != nil {
		return nil, err
	}
	if writeErr != nil {
		return nil, writeErr
	}

	log.WithFields(map[string]interface{}{
		"rows":    len(points),
		"as_of":   meta.AsOf,
		"expires": entry.ExpiresAt,
	}).Info("cache refreshed")

	return &entry, nil
}

func (s *Store) resolveCurrency(ctx context.Context, symbol string, log *logger.Logger) string {
	if s.currency == nil {
		return contracts.DefaultCurrency
	}
	cur, err := s.currency.Currency(ctx, symbol)
	if err != nil || strings.TrimSpace(cur) == "" {
		log.WithError(err).Debug("currency lookup failed, using USD")
		return contracts.DefaultCurrency
	}
	return strings.ToUpper(cur)
}

// Load reads a cached series
func (s *Store) Load(entry contracts.CacheEntry) (*contracts.PriceSeries, error) {
	meta, err := s.Meta(entry)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(s.abs(entry.PathPrices))
	if err != nil {
		return nil, fmt.Errorf("open prices %s: %w", entry.Key, err)
	}
	defer f.Close()

	points, err := decodePrices(f)
	if err != nil {
		return nil, fmt.Errorf("decode prices %s: %w", entry.Key, err)
	}

	series := &contracts.PriceSeries{Symbol: meta.Symbol, Points: points}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}

// Meta reads the metadata document of an entry
func (s *Store) Meta(entry contracts.CacheEntry) (*contracts.SeriesMeta, error) {
	data, err := os.ReadFile(s.abs(entry.PathMeta))
	if err != nil {
		return nil, fmt.Errorf("read meta %s: %w", entry.Key, err)
	}
	var meta contracts.SeriesMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode meta %s: %w", entry.Key, err)
	}
	return &meta, nil
}

// EntryStatus is a manifest entry with its current state
type EntryStatus struct {
	contracts.CacheEntry
	Fresh        bool `json:"fresh"`
	FilesPresent bool `json:"files_present"`
}

// List returns all manifest entries sorted by key
func (s *Store) List() []EntryStatus {
	m := s.readManifest()
	now := s.now()

	out := make([]EntryStatus, 0, len(m.Items))
	for _, e := range m.Items {
		present := s.filesPresent(e)
		out = append(out, EntryStatus{
			CacheEntry:   e,
			FilesPresent: present,
			Fresh:        present && e.NotExpired(now),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Remove drops an entry and its files under the manifest lock
func (s *Store) Remove(ctx context.Context, key string) (bool, error) {
	var removed contracts.CacheEntry
	found := false

	err := s.updateManifest(ctx, func(m *contracts.Manifest) bool {
		removed, found = m.Find(key)
		if found {
			s.removeFiles(removed)
		}
		return m.Remove(key)
	})
	if err != nil || !found {
		return false, err
	}
	return true, nil
}

// Clear removes every entry and returns how many were dropped
func (s *Store) Clear(ctx context.Context) (int, error) {
	var dropped []contracts.CacheEntry

	err := s.updateManifest(ctx, func(m *contracts.Manifest) bool {
		dropped = append(dropped, m.Items...)
		for _, e := range dropped {
			s.removeFiles(e)
		}
		m.Items = []contracts.CacheEntry{}
		return true
	})
	if err != nil {
		return 0, err
	}

	s.logger.WithField("entries", len(dropped)).Info("cache cleared")
	return len(dropped), nil
}

func (s *Store) removeFiles(e contracts.CacheEntry) {
	for _, rel := range []string{e.PathPrices, e.PathMeta} {
		if err := os.Remove(s.abs(rel)); err != nil && !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("path", rel).Warn("cache file not removed")
		}
	}
}
