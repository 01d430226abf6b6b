// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/statlinehq/statline/internal/cache"
	"github.com/statlinehq/statline/internal/coalesce"
	"github.com/statlinehq/statline/internal/logging"
	"github.com/statlinehq/statline/internal/snapshot"
)

// Snapshot sections served per district.
const (
	SectionAnalytics  = "analytics"
	SectionClubs      = "clubs"
	SectionMembership = "membership"
)

// DistrictKey builds the snapshot/cache key for one district section,
// e.g. DistrictKey("42", SectionClubs) == "district:42:clubs".
func DistrictKey(district, section string) string {
	return fmt.Sprintf("district:%s:%s", district, section)
}

// DistrictPattern builds the invalidation pattern covering every cached
// section of a district.
func DistrictPattern(district string) string {
	return fmt.Sprintf("district:%s:*", district)
}

// Handler serves the API endpoints. Its collaborators are injected so tests
// construct private instances instead of sharing process-wide state.
type Handler struct {
	snapshots snapshot.Store
	cache     *cache.Store
	group     *coalesce.Group
	started   time.Time
}

// NewHandler creates a Handler.
func NewHandler(snapshots snapshot.Store, c *cache.Store, group *coalesce.Group) *Handler {
	return &Handler{
		snapshots: snapshots,
		cache:     c,
		group:     group,
		started:   time.Now(),
	}
}

// DistrictAnalytics serves the pre-computed analytics snapshot.
func (h *Handler) DistrictAnalytics(w http.ResponseWriter, r *http.Request) {
	h.serveSnapshot(w, r, SectionAnalytics)
}

// DistrictClubs serves the pre-computed club roster snapshot.
func (h *Handler) DistrictClubs(w http.ResponseWriter, r *http.Request) {
	h.serveSnapshot(w, r, SectionClubs)
}

// DistrictMembership serves the pre-computed membership snapshot.
func (h *Handler) DistrictMembership(w http.ResponseWriter, r *http.Request) {
	h.serveSnapshot(w, r, SectionMembership)
}

// serveSnapshot loads one district section from the snapshot store and wraps
// it in the response envelope. The handler itself is cache-oblivious; the
// pipeline middlewares in front of it decide whether it runs at all.
func (h *Handler) serveSnapshot(w http.ResponseWriter, r *http.Request, section string) {
	district := chi.URLParam(r, "district")
	key := DistrictKey(district, section)

	doc, err := h.snapshots.Load(r.Context(), key)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound,
			fmt.Sprintf("no %s snapshot for district %s", section, district))
	case err != nil:
		logging.Ctx(r.Context()).Err(err).Str("key", key).Msg("snapshot load failed")
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"snapshot backend unavailable")
	default:
		respondSuccess(w, r, json.RawMessage(doc))
	}
}

// RefreshDistrict is the mutating endpoint behind the invalidation stage:
// it verifies fresh data is available for the district and, through the
// middleware, drops every cached entry under "district:{id}:*". The next
// reads repopulate the cache from the backend.
func (h *Handler) RefreshDistrict(w http.ResponseWriter, r *http.Request) {
	district := chi.URLParam(r, "district")

	if _, err := h.snapshots.Load(r.Context(), DistrictKey(district, SectionAnalytics)); err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			respondError(w, http.StatusNotFound, ErrCodeNotFound,
				fmt.Sprintf("unknown district %s", district))
			return
		}
		logging.Ctx(r.Context()).Err(err).Str("district", district).Msg("refresh failed")
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"snapshot backend unavailable")
		return
	}

	respondSuccess(w, r, map[string]interface{}{
		"district":  district,
		"refreshed": true,
	})
}

// cacheStatsResponse is the payload of CacheStats.
type cacheStatsResponse struct {
	Cache           cache.StatsSnapshot `json:"cache"`
	HitRatePercent  float64             `json:"hit_rate_percent"`
	CoalescePending int                 `json:"coalesce_pending"`
}

// CacheStats reports cache counters and the number of in-flight
// computations. Observability only.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, cacheStatsResponse{
		Cache:           h.cache.GetStats(),
		HitRatePercent:  h.cache.HitRate(),
		CoalescePending: h.group.PendingCount(),
	})
}

// CacheClear drops every cached response. Admin escape hatch for when an
// operator needs the next request of every key to hit the backend.
func (h *Handler) CacheClear(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	logging.Ctx(r.Context()).Info().Msg("response cache cleared")
	respondSuccess(w, r, map[string]interface{}{"cleared": true})
}

// Health reports process liveness and uptime.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}
