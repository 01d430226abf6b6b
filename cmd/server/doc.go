// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

// Command server runs the Statline HTTP API: a TTL response cache and a
// request-coalescing layer in front of pre-computed district snapshots.
//
// Configuration is read from an optional YAML file (STATLINE_CONFIG or one
// of the default paths) and STATLINE_* environment variables.
package main
