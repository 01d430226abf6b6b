// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

// Package api provides Statline's HTTP surface: Chi routing, the
// standardized response envelope, and the route handlers that serve
// pre-computed district snapshots through the cache and coalescing
// pipeline.
package api
