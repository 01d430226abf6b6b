// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

// Package coalesce implements request coalescing (singleflight): for any
// cache key, at most one underlying computation is in flight at a time, and
// every concurrent caller for that key observes the same outcome.
//
// Deduplication only protects against concurrent duplicate work. A flight is
// removed the instant it settles, so a call arriving after settlement always
// starts a fresh computation; freshness beyond the in-flight window is the
// TTL cache's job, not this package's.
package coalesce

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/statlinehq/statline/internal/logging"
	"github.com/statlinehq/statline/internal/metrics"
)

var (
	// ErrFlightTimeout is returned to every waiter of a flight that the sweep
	// force-removed because its factory exceeded the staleness threshold.
	ErrFlightTimeout = errors.New("coalesce: in-flight operation timed out")

	// ErrDisposed is returned when the group has been disposed.
	ErrDisposed = errors.New("coalesce: group disposed")
)

// Factory produces the value for a key. It is invoked at most once per
// flight, in its own goroutine, with a context derived from the first
// caller's context minus its cancellation.
type Factory func(ctx context.Context) (interface{}, error)

// Config holds group configuration.
type Config struct {
	// Timeout is the age beyond which an unsettled flight is considered
	// stale and force-failed by the sweep. Default: 30s.
	Timeout time.Duration

	// CleanupInterval is how often the background sweep runs. Default: 10s.
	CleanupInterval time.Duration

	// AutoCleanup starts the background sweep goroutine. When false the
	// sweep only runs through explicit Cleanup calls.
	AutoCleanup bool
}

// DefaultConfig returns production defaults: 30s staleness threshold,
// 10s sweep interval, background sweep enabled.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		CleanupInterval: 10 * time.Second,
		AutoCleanup:     true,
	}
}

// flight is a single in-flight computation shared by all callers for a key.
// val and err are written exactly once, before done is closed; waiters read
// them only after done is closed.
type flight struct {
	key       string
	startedAt time.Time
	done      chan struct{}
	val       interface{}
	err       error
	settle    sync.Once

	// waiters counts callers attached to this flight. Guarded by the group
	// mutex; observability only, never a correctness mechanism.
	waiters int
}

// Group tracks in-flight computations by key.
//
// Typically instantiated once per process and shared by all request-handling
// goroutines; tests construct private instances to avoid cross-test
// pollution.
type Group struct {
	mu       sync.Mutex
	flights  map[string]*flight
	disposed bool

	cfg  Config
	stop chan struct{}

	// now is the clock used for staleness checks; replaced in tests.
	now func() time.Time
}

// New creates a Group. Zero Timeout and CleanupInterval take the defaults;
// the background sweep only starts when cfg.AutoCleanup is set.
func New(cfg Config) *Group {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Second
	}

	g := &Group{
		flights: make(map[string]*flight),
		cfg:     cfg,
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	if cfg.AutoCleanup {
		go g.sweepLoop()
	}
	return g
}

// GetOrCreate returns the outcome of the computation for key.
//
// If no flight exists for key, factory is invoked exactly once in a new
// goroutine and this call waits for it. If a flight already exists, the call
// joins it without re-invoking factory; shared is true for such joined
// calls. All callers attached to one flight observe the identical
// (value, error) pair.
//
// A waiter whose own ctx is canceled gets ctx.Err() immediately; the
// underlying computation keeps running for the remaining waiters.
func (g *Group) GetOrCreate(ctx context.Context, key string, factory Factory) (value interface{}, shared bool, err error) {
	g.mu.Lock()
	if g.disposed {
		g.mu.Unlock()
		return nil, false, ErrDisposed
	}

	if f, ok := g.flights[key]; ok {
		f.waiters++
		g.mu.Unlock()
		metrics.CoalesceJoined.Inc()
		value, err = g.wait(ctx, f)
		return value, true, err
	}

	f := &flight{
		key:       key,
		startedAt: g.now(),
		done:      make(chan struct{}),
		waiters:   1,
	}
	g.flights[key] = f
	inFlight := len(g.flights)
	g.mu.Unlock()

	metrics.CoalesceFlightsStarted.Inc()
	metrics.CoalesceInFlight.Set(float64(inFlight))

	// The factory must not die with the first caller: later joiners depend
	// on it. Strip cancellation but keep request-scoped values.
	go g.run(context.WithoutCancel(ctx), f, factory)

	value, err = g.wait(ctx, f)
	return value, false, err
}

// run executes the factory and settles the flight.
func (g *Group) run(ctx context.Context, f *flight, factory Factory) {
	val, err := factory(ctx)
	g.settleAndRemove(f, val, err)
}

// settleAndRemove removes the flight from the map and then releases its
// waiters. Removal happens first so that a new call arriving as the outcome
// propagates starts a fresh computation instead of joining a settling one.
func (g *Group) settleAndRemove(f *flight, val interface{}, err error) {
	g.mu.Lock()
	if current, ok := g.flights[f.key]; ok && current == f {
		delete(g.flights, f.key)
	}
	inFlight := len(g.flights)
	g.mu.Unlock()

	metrics.CoalesceInFlight.Set(float64(inFlight))

	f.settle.Do(func() {
		f.val = val
		f.err = err
		close(f.done)
	})
}

// wait blocks until the flight settles or the caller's context is done.
func (g *Group) wait(ctx context.Context, f *flight) (interface{}, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PendingCount returns the number of currently tracked flights.
func (g *Group) PendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.flights)
}

// WaiterCount returns the number of callers attached to the flight for key,
// or zero if no flight exists.
func (g *Group) WaiterCount(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if f, ok := g.flights[key]; ok {
		return f.waiters
	}
	return 0
}

// Cleanup force-removes every flight older than the configured timeout and
// fails its waiters with ErrFlightTimeout. Returns the number of flights
// removed. The periodic sweep calls this; tests call it directly to avoid
// waiting on the timer.
//
// The abandoned factory goroutine keeps running; if it settles later its
// outcome is discarded, since the flight has already settled with the
// timeout error.
func (g *Group) Cleanup() int {
	now := g.now()

	g.mu.Lock()
	var stale []*flight
	for key, f := range g.flights {
		if now.Sub(f.startedAt) > g.cfg.Timeout {
			delete(g.flights, key)
			stale = append(stale, f)
		}
	}
	inFlight := len(g.flights)
	g.mu.Unlock()

	metrics.CoalesceInFlight.Set(float64(inFlight))

	for _, f := range stale {
		logging.Warn().
			Str("key", f.key).
			Dur("age", now.Sub(f.startedAt)).
			Int("waiters", f.waiters).
			Msg("removing stale in-flight operation")
		metrics.CoalesceTimeouts.Inc()
		f.settle.Do(func() {
			f.err = ErrFlightTimeout
			close(f.done)
		})
	}
	return len(stale)
}

// Dispose stops the background sweep and fails every pending flight with
// ErrDisposed. Subsequent GetOrCreate calls return ErrDisposed. Safe to call
// multiple times.
func (g *Group) Dispose() {
	g.mu.Lock()
	if g.disposed {
		g.mu.Unlock()
		return
	}
	g.disposed = true
	pending := make([]*flight, 0, len(g.flights))
	for _, f := range g.flights {
		pending = append(pending, f)
	}
	g.flights = make(map[string]*flight)
	g.mu.Unlock()

	close(g.stop)
	metrics.CoalesceInFlight.Set(0)

	for _, f := range pending {
		f.settle.Do(func() {
			f.err = ErrDisposed
			close(f.done)
		})
	}
}

// sweepLoop runs Cleanup on the configured interval until Dispose.
func (g *Group) sweepLoop() {
	ticker := time.NewTicker(g.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.Cleanup()
		case <-g.stop:
			return
		}
	}
}
