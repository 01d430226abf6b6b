// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/statlinehq/statline/internal/logging"
	"github.com/statlinehq/statline/internal/metrics"
)

// BreakerConfig configures the circuit breaker around a snapshot backend.
type BreakerConfig struct {
	// Name identifies the breaker in logs. Default: "snapshot".
	Name string

	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period for clearing counts while closed.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing. Default: 30s.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that trips the
	// breaker. Default: 5.
	FailureThreshold uint32
}

// BreakerStore wraps a Store with a sony/gobreaker circuit breaker so that a
// failing backend sheds load fast instead of stacking up slow calls.
//
// ErrNotFound is not a backend failure and never trips the breaker.
type BreakerStore struct {
	inner Store
	cb    *gobreaker.CircuitBreaker[json.RawMessage]
}

// NewBreakerStore wraps inner with a circuit breaker.
func NewBreakerStore(inner Store, cfg BreakerConfig) *BreakerStore {
	if cfg.Name == "" {
		cfg.Name = "snapshot"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("snapshot breaker state change")
			metrics.SnapshotBreakerState.Set(float64(to))
		},
	}

	return &BreakerStore{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[json.RawMessage](settings),
	}
}

// Load implements Store.
func (s *BreakerStore) Load(ctx context.Context, key string) (json.RawMessage, error) {
	return s.cb.Execute(func() (json.RawMessage, error) {
		return s.inner.Load(ctx, key)
	})
}

// List implements Store. Listing is not breaker-protected; it is only used
// by warm-up and admin paths.
func (s *BreakerStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Close implements Store.
func (s *BreakerStore) Close() error {
	return s.inner.Close()
}

// State returns the breaker state for observability.
func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}
