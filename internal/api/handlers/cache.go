package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/investor-coach/internal/pricecache"
	"github.com/wonny/investor-coach/pkg/logger"
)

// CacheHandler exposes price cache maintenance
type CacheHandler struct {
	store  *pricecache.Store
	logger *logger.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(store *pricecache.Store, log *logger.Logger) *CacheHandler {
	return &CacheHandler{store: store, logger: log.WithModule("api")}
}

// List returns every manifest entry with its freshness
// GET /api/cache
func (h *CacheHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.store.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"root":    h.store.Root(),
		"count":   len(entries),
		"entries": entries,
	})
}

// Remove drops one entry
// DELETE /api/cache/{key}
func (h *CacheHandler) Remove(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	removed, err := h.store.Remove(r.Context(), key)
	if err != nil {
		h.logger.WithError(err).WithField("key", key).Error("Failed to remove cache entry")
		respondError(w, http.StatusInternalServerError, "Failed to remove cache entry")
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, "cache entry not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"removed": key})
}

// Clear drops every entry
// DELETE /api/cache
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Clear(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to clear cache")
		respondError(w, http.StatusInternalServerError, "Failed to clear cache")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"removed": n})
}
