// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

// Package cache provides the in-memory TTL key-value store that fronts every
// read endpoint, plus deterministic cache-key construction and wildcard
// pattern matching for bulk invalidation.
//
// The store is process-local and time-bounded only: there is no size-based
// eviction and nothing survives a restart. Entries expire lazily on read and
// are additionally swept by an optional janitor goroutine that Close stops.
package cache
