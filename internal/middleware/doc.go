// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

// Package middleware provides the request-pipeline stages that compose the
// TTL cache and the coalescing group around route handlers, plus request-ID
// and Prometheus instrumentation decorators.
//
// All middlewares follow the same decorator shape the rest of the codebase
// uses: they take an http.HandlerFunc and return a wrapped http.HandlerFunc.
// The cache, coalescing, and invalidation stages never inspect a response
// payload; they only look at the captured status code to decide whether an
// outcome counts as success.
//
// A read endpoint typically composes both caching stages:
//
//	handler := middleware.Coalesce(coalesceCfg)(
//		middleware.ResponseCache(cacheCfg)(h.DistrictAnalytics))
//
// Coalescing handles the thundering herd on a cold key; the cache stage then
// serves subsequent requests until the TTL lapses. Mutating endpoints use
// only InvalidateCache.
package middleware
