// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/statlinehq/statline/internal/cache"
	"github.com/statlinehq/statline/internal/coalesce"
	"github.com/statlinehq/statline/internal/middleware"
)

// RouterConfig holds the routing-level knobs.
type RouterConfig struct {
	// CacheTTL overrides the store default for cached responses when > 0.
	CacheTTL time.Duration

	// RateLimitRequests per RateLimitWindow per client IP; zero disables.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	CORSAllowedOrigins []string
}

// chiAdapter lifts an http.HandlerFunc decorator into Chi's middleware
// shape so it can be used with r.Use.
func chiAdapter(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// NewRouter assembles the HTTP surface: global middleware, health and
// metrics endpoints, and the versioned API with the cache/coalescing
// pipeline composed around every district read.
func NewRouter(h *Handler, store *cache.Store, group *coalesce.Group, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chiAdapter(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", middleware.BypassHeader},
		ExposedHeaders: []string{"X-Request-ID", "X-Cache", "X-Coalesced"},
		MaxAge:         300,
	}))
	if cfg.RateLimitRequests > 0 {
		r.Use(httprate.Limit(
			cfg.RateLimitRequests,
			cfg.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))
	}
	r.Use(chiAdapter(middleware.PrometheusMetrics))

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(apiRouter chi.Router) {
		apiRouter.Route("/districts/{district}", func(d chi.Router) {
			d.Get("/analytics", readPipeline(store, group, cfg, SectionAnalytics, h.DistrictAnalytics))
			d.Get("/clubs", readPipeline(store, group, cfg, SectionClubs, h.DistrictClubs))
			d.Get("/membership", readPipeline(store, group, cfg, SectionMembership, h.DistrictMembership))

			invalidate := middleware.InvalidateCache(store, func(r *http.Request) string {
				return DistrictPattern(chi.URLParam(r, "district"))
			})
			d.Post("/refresh", invalidate(h.RefreshDistrict))
		})

		apiRouter.Get("/cache/stats", h.CacheStats)
		apiRouter.Post("/cache/clear", h.CacheClear)
	})

	return r
}

// readPipeline composes the coalescing stage around the cache stage around
// the handler, all sharing one key function: coalescing absorbs concurrent
// misses, the cache serves everything after that until the TTL lapses.
func readPipeline(store *cache.Store, group *coalesce.Group, cfg RouterConfig, section string, next http.HandlerFunc) http.HandlerFunc {
	key := func(r *http.Request) string {
		return DistrictKey(chi.URLParam(r, "district"), section)
	}

	cached := middleware.ResponseCache(middleware.CacheConfig{
		Store:     store,
		Operation: section,
		TTL:       cfg.CacheTTL,
		Key:       key,
	})(next)

	return middleware.Coalesce(middleware.CoalesceConfig{
		Group:     group,
		Operation: section,
		Key:       key,
	})(cached)
}
