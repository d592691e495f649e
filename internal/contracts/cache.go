package contracts

import (
	"time"
)

// ManifestVersion is the only manifest layout this module reads or writes
const ManifestVersion = 1

// DefaultCurrency is used when the currency lookup fails
const DefaultCurrency = "USD"

// CacheEntry describes one cached series. Paths are relative to the cache root.
// ⭐ SSOT: manifest/index.json item 형식
type CacheEntry struct {
	Key         string    `json:"key"`
	PathPrices  string    `json:"path_prices"`
	PathMeta    string    `json:"path_meta"`
	LastUpdated time.Time `json:"last_updated_utc"`
	TTLDays     float64   `json:"ttl_days"`
	ExpiresAt   time.Time `json:"expires_utc"`
	Source      string    `json:"source"`
	Currency    string    `json:"currency"`
}

// TTL returns the entry's time-to-live as a duration
func (e CacheEntry) TTL() time.Duration {
	return time.Duration(e.TTLDays * float64(24*time.Hour))
}

// NotExpired reports now <= expiresAt (the boundary instant is still fresh)
func (e CacheEntry) NotExpired(now time.Time) bool {
	return !now.After(e.ExpiresAt)
}

// Manifest is the cache index; at most one entry per key
type Manifest struct {
	Version int          `json:"version"`
	Items   []CacheEntry `json:"items"`
}

// NewManifest returns an empty manifest
func NewManifest() *Manifest {
	return &Manifest{Version: ManifestVersion, Items: []CacheEntry{}}
}

// Find returns the entry for key
func (m *Manifest) Find(key string) (CacheEntry, bool) {
	for _, item := range m.Items {
		if item.Key == key {
			return item, true
		}
	}
	return CacheEntry{}, false
}

// Upsert replaces the entry with the same key or appends a new one
func (m *Manifest) Upsert(entry CacheEntry) {
	for i := range m.Items {
		if m.Items[i].Key == entry.Key {
			m.Items[i] = entry
			return
		}
	}
	m.Items = append(m.Items, entry)
}

// Remove deletes the entry for key and reports whether it existed
func (m *Manifest) Remove(key string) bool {
	for i := range m.Items {
		if m.Items[i].Key == key {
			m.Items = append(m.Items[:i], m.Items[i+1:]...)
			return true
		}
	}
	return false
}

// SeriesMeta is the per-series metadata document written next to the prices
type SeriesMeta struct {
	Symbol      string    `json:"symbol"`
	Benchmark   string    `json:"benchmark"`
	Timeframe   Timeframe `json:"timeframe"`
	Frequency   Frequency `json:"frequency"`
	Source      string    `json:"source"`
	Currency    string    `json:"currency"`
	AsOf        string    `json:"as_of"` // last date, YYYY-MM-DD
	Rows        int       `json:"rows"`
	LastUpdated time.Time `json:"last_updated_utc"`
}
