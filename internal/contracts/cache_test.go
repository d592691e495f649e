package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheEntryNotExpiredBoundary(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entry := CacheEntry{LastUpdated: t0, TTLDays: 3, ExpiresAt: t0.Add(72 * time.Hour)}

	assert.Equal(t, 72*time.Hour, entry.TTL())
	assert.True(t, entry.NotExpired(t0.Add(72*time.Hour)))
	assert.False(t, entry.NotExpired(t0.Add(72*time.Hour+time.Nanosecond)))
}

func TestManifestUpsertFindRemove(t *testing.T) {
	m := NewManifest()
	assert.Equal(t, ManifestVersion, m.Version)

	m.Upsert(CacheEntry{Key: "A__SPY__3y__D", Currency: "USD"})
	m.Upsert(CacheEntry{Key: "B__SPY__3y__D", Currency: "USD"})
	m.Upsert(CacheEntry{Key: "A__SPY__3y__D", Currency: "EUR"})

	assert.Len(t, m.Items, 2)
	got, ok := m.Find("A__SPY__3y__D")
	assert.True(t, ok)
	assert.Equal(t, "EUR", got.Currency)

	assert.True(t, m.Remove("A__SPY__3y__D"))
	assert.False(t, m.Remove("A__SPY__3y__D"))
	_, ok = m.Find("A__SPY__3y__D")
	assert.False(t, ok)
	assert.Len(t, m.Items, 1)
}
