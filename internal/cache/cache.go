// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package cache

import (
	"sync"
	"time"
)

// DefaultJanitorInterval is how often the background janitor sweeps expired
// entries when no interval is configured.
const DefaultJanitorInterval = time.Minute

// Entry represents a cached item with its expiry.
type Entry struct {
	Data      interface{}
	StoredAt  time.Time
	ExpiresAt time.Time
}

// Store is a thread-safe in-memory key-value cache with per-entry TTL.
//
// An entry is visible to Get iff the current time is strictly before its
// expiry; expired entries are evicted lazily on read and by the janitor.
// Set replaces the entry at a key unconditionally; entries are never mutated
// in place.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration

	done      chan struct{}
	closeOnce sync.Once

	stats Stats
}

// Stats tracks cache performance counters. Observability only; none of these
// values are load-bearing for correctness.
type Stats struct {
	mu        sync.RWMutex
	Hits      int64
	Misses    int64
	Evictions int64
	Keys      int64
	LastSweep time.Time
}

// StatsSnapshot is a lock-free copy of Stats suitable for serialization.
type StatsSnapshot struct {
	Hits      int64     `json:"hits"`
	Misses    int64     `json:"misses"`
	Evictions int64     `json:"evictions"`
	Keys      int64     `json:"keys"`
	LastSweep time.Time `json:"last_sweep"`
}

// New creates a Store with the given default TTL and a janitor sweeping at
// DefaultJanitorInterval. Call Close to stop the janitor.
func New(defaultTTL time.Duration) *Store {
	return NewWithJanitor(defaultTTL, DefaultJanitorInterval)
}

// NewWithJanitor creates a Store with an explicit janitor interval.
// An interval <= 0 disables the janitor entirely; expiry then happens only
// lazily on Get.
func NewWithJanitor(defaultTTL, interval time.Duration) *Store {
	s := &Store{
		entries: make(map[string]Entry),
		ttl:     defaultTTL,
		done:    make(chan struct{}),
		stats:   Stats{LastSweep: time.Now()},
	}
	if interval > 0 {
		go s.janitor(interval)
	}
	return s
}

// Get retrieves the value stored under key.
// Returns (nil, false) both for never-set and for expired keys; an expired
// entry encountered here is evicted as a side effect.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	entry, exists := s.entries[key]
	s.mu.RUnlock()

	if !exists {
		s.recordMiss()
		return nil, false
	}

	if !time.Now().Before(entry.ExpiresAt) {
		// Recheck under the write lock: a concurrent Set may have replaced
		// the entry between the two lock acquisitions.
		s.mu.Lock()
		if current, ok := s.entries[key]; ok && current.ExpiresAt.Equal(entry.ExpiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		s.recordMiss()
		s.recordEvictions(1)
		return nil, false
	}

	s.recordHit()
	return entry.Data, true
}

// Set stores value under key with the store's default TTL.
func (s *Store) Set(key string, value interface{}) {
	s.SetWithTTL(key, value, s.ttl)
}

// SetWithTTL stores value under key with an explicit TTL, overwriting any
// existing entry unconditionally. A ttl <= 0 stores an already-expired entry,
// which disables caching for that key without branching at the call site.
func (s *Store) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	now := time.Now()

	s.mu.Lock()
	s.entries[key] = Entry{
		Data:      value,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	count := int64(len(s.entries))
	s.mu.Unlock()

	s.stats.mu.Lock()
	s.stats.Keys = count
	s.stats.mu.Unlock()
}

// Delete removes the entry under key. Idempotent.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()

	s.recordEvictions(1)
}

// DeleteMultiple removes every listed key under a single lock acquisition.
func (s *Store) DeleteMultiple(keys []string) {
	if len(keys) == 0 {
		return
	}

	s.mu.Lock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	count := int64(len(s.entries))
	s.mu.Unlock()

	s.recordEvictions(int64(len(keys)))
	s.stats.mu.Lock()
	s.stats.Keys = count
	s.stats.mu.Unlock()
}

// DeletePattern removes every tracked key matching the wildcard pattern and
// returns how many were deleted. Matching is a full scan of tracked keys,
// including logically expired but unswept ones; an invalid pattern matches
// nothing. See MatchPattern for the pattern syntax.
func (s *Store) DeletePattern(pattern string) int {
	s.mu.Lock()
	var matched []string
	for key := range s.entries {
		if MatchPattern(pattern, key) {
			matched = append(matched, key)
		}
	}
	for _, key := range matched {
		delete(s.entries, key)
	}
	count := int64(len(s.entries))
	s.mu.Unlock()

	if len(matched) > 0 {
		s.recordEvictions(int64(len(matched)))
		s.stats.mu.Lock()
		s.stats.Keys = count
		s.stats.mu.Unlock()
	}
	return len(matched)
}

// Keys returns all currently tracked keys, including entries that are
// logically expired but not yet swept. Callers building invalidation sets
// must apply TTL semantics themselves or accept deleting expired entries.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	evicted := int64(len(s.entries))
	s.entries = make(map[string]Entry)
	s.mu.Unlock()

	s.stats.mu.Lock()
	s.stats.Evictions += evicted
	s.stats.Keys = 0
	s.stats.mu.Unlock()
}

// Size returns the number of currently tracked entries.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetStats returns a snapshot of the cache counters.
func (s *Store) GetStats() StatsSnapshot {
	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	return StatsSnapshot{
		Hits:      s.stats.Hits,
		Misses:    s.stats.Misses,
		Evictions: s.stats.Evictions,
		Keys:      s.stats.Keys,
		LastSweep: s.stats.LastSweep,
	}
}

// HitRate returns the hit rate as a percentage.
func (s *Store) HitRate() float64 {
	stats := s.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// Close stops the janitor goroutine. The store remains usable after Close;
// expiry then happens only lazily on Get. Safe to call multiple times.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// janitor periodically sweeps expired entries until Close.
func (s *Store) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

// sweep removes all expired entries.
func (s *Store) sweep() {
	now := time.Now()

	s.mu.Lock()
	evicted := int64(0)
	for key, entry := range s.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(s.entries, key)
			evicted++
		}
	}
	count := int64(len(s.entries))
	s.mu.Unlock()

	s.stats.mu.Lock()
	s.stats.Evictions += evicted
	s.stats.Keys = count
	s.stats.LastSweep = now
	s.stats.mu.Unlock()
}

func (s *Store) recordHit() {
	s.stats.mu.Lock()
	s.stats.Hits++
	s.stats.mu.Unlock()
}

func (s *Store) recordMiss() {
	s.stats.mu.Lock()
	s.stats.Misses++
	s.stats.mu.Unlock()
}

func (s *Store) recordEvictions(n int64) {
	s.stats.mu.Lock()
	s.stats.Evictions += n
	s.stats.mu.Unlock()
}
