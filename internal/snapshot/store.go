// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

// Package snapshot provides access to pre-computed analytics snapshots.
//
// Snapshots are produced out of process by the analytics pipeline; Statline
// only reads them. The Store interface is deliberately narrow so route
// handlers never depend on a concrete backend: the embedded BadgerDB store
// is the production default, the filesystem store serves development and
// tests, and BreakerStore adds circuit breaking around either.
package snapshot

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
)

// ErrNotFound is returned when no snapshot exists under a key.
var ErrNotFound = errors.New("snapshot: not found")

// Store reads pre-computed snapshot documents by key.
//
// Keys use the same colon-separated namespace as the response cache
// ("district:42:analytics"), which keeps invalidation patterns and snapshot
// addressing aligned.
type Store interface {
	// Load returns the raw snapshot document under key, or ErrNotFound.
	Load(ctx context.Context, key string) (json.RawMessage, error)

	// List returns all keys with the given prefix. An empty prefix lists
	// every key.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// Writer is implemented by backends that accept snapshot writes. The serving
// path never writes; seeding tools and tests do.
type Writer interface {
	Put(ctx context.Context, key string, doc json.RawMessage) error
}
