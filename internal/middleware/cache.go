// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package middleware

import (
	"net/http"
	"time"

	"github.com/statlinehq/statline/internal/cache"
	"github.com/statlinehq/statline/internal/logging"
	"github.com/statlinehq/statline/internal/metrics"
)

const (
	// BypassQueryParam is the query parameter operators set to "true" to
	// force a fresh read past the cache and the coalescing stage.
	BypassQueryParam = "refresh"

	// BypassHeader is the header equivalent of BypassQueryParam.
	BypassHeader = "X-Cache-Bypass"

	// cacheHeader reports the cache disposition of a response.
	cacheHeader = "X-Cache"
)

// KeyFunc derives the cache key for a request. Routes with path parameters
// supply their own; the default derives the key from the operation name and
// the request's query parameters.
type KeyFunc func(r *http.Request) string

// BypassRequested reports whether the caller asked to skip caching and
// coalescing for this request.
func BypassRequested(r *http.Request) bool {
	return r.URL.Query().Get(BypassQueryParam) == "true" ||
		r.Header.Get(BypassHeader) == "true"
}

// CacheConfig configures a ResponseCache stage.
type CacheConfig struct {
	// Store is the TTL store backing this stage. Required.
	Store *cache.Store

	// Operation names the protected operation; it prefixes default keys.
	Operation string

	// TTL overrides the store's default entry lifetime when > 0.
	TTL time.Duration

	// Key overrides default key derivation for this route.
	Key KeyFunc
}

// ResponseCache returns the cache-read/populate stage for read endpoints.
//
// On a hit the stored response is replayed without invoking the handler.
// On a miss the handler runs against a recorder and, only if it succeeded,
// the captured response is stored under the key before being sent. The
// bypass signal skips the stage entirely so operators can force a fresh
// read without a restart.
func ResponseCache(cfg CacheConfig) func(http.HandlerFunc) http.HandlerFunc {
	keyFn := cfg.Key
	if keyFn == nil {
		keyFn = func(r *http.Request) string {
			return cache.Key(cfg.Operation, r.URL.Query())
		}
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if BypassRequested(r) {
				metrics.CacheBypasses.Inc()
				w.Header().Set(cacheHeader, "BYPASS")
				next(w, r)
				return
			}

			key := keyFn(r)
			if cached, found := cfg.Store.Get(key); found {
				if resp, ok := cached.(*bufferedResponse); ok {
					metrics.CacheHits.Inc()
					w.Header().Set(cacheHeader, "HIT")
					resp.writeTo(w)
					return
				}
			}
			metrics.CacheMisses.Inc()

			rec := newRecorder()
			next(rec, r)
			resp := rec.snapshot()

			if resp.success() {
				if cfg.TTL > 0 {
					cfg.Store.SetWithTTL(key, resp, cfg.TTL)
				} else {
					cfg.Store.Set(key, resp)
				}
				metrics.CacheEntries.Set(float64(cfg.Store.Size()))
				logging.Ctx(r.Context()).Debug().
					Str("key", key).
					Msg("response cached")
			}

			w.Header().Set(cacheHeader, "MISS")
			resp.writeTo(w)
		}
	}
}

// PatternFunc derives the invalidation pattern (literal key or wildcard) for
// a mutating request.
type PatternFunc func(r *http.Request) string

// InvalidateCache returns the invalidation stage for mutating endpoints:
// after the wrapped handler completes successfully, every cache entry
// matching the derived pattern is deleted as a batch. A handler failure
// leaves the cache untouched.
func InvalidateCache(store *cache.Store, pattern PatternFunc) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rec := newRecorder()
			next(rec, r)
			resp := rec.snapshot()

			if resp.success() {
				p := pattern(r)
				deleted := store.DeletePattern(p)
				if deleted > 0 {
					metrics.CacheInvalidations.Add(float64(deleted))
					metrics.CacheEntries.Set(float64(store.Size()))
				}
				logging.Ctx(r.Context()).Debug().
					Str("pattern", p).
					Int("deleted", deleted).
					Msg("cache invalidated")
			}

			resp.writeTo(w)
		}
	}
}
