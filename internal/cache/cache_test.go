// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// newTestStore returns a store without a janitor so tests control expiry
// deterministically through TTLs alone.
func newTestStore(ttl time.Duration) *Store {
	return NewWithJanitor(ttl, 0)
}

func TestStoreGetSet(t *testing.T) {
	s := newTestStore(time.Minute)
	defer s.Close()

	if _, ok := s.Get("missing"); ok {
		t.Fatal("Get on empty store returned ok")
	}

	s.Set("district:42:analytics", "payload")

	got, ok := s.Get("district:42:analytics")
	if !ok {
		t.Fatal("Get after Set returned !ok")
	}
	if got != "payload" {
		t.Fatalf("Get returned %v, want %q", got, "payload")
	}
}

func TestStoreSetOverwrites(t *testing.T) {
	s := newTestStore(time.Minute)
	defer s.Close()

	s.Set("key", "v1")
	s.Set("key", "v2")

	got, ok := s.Get("key")
	if !ok {
		t.Fatal("Get after overwrite returned !ok")
	}
	if got != "v2" {
		t.Fatalf("Get returned %v, want v2", got)
	}
	if s.Size() != 1 {
		t.Fatalf("Size = %d, want 1", s.Size())
	}
}

func TestStoreExpiration(t *testing.T) {
	s := newTestStore(time.Minute)
	defer s.Close()

	s.SetWithTTL("short", "value", 20*time.Millisecond)

	if _, ok := s.Get("short"); !ok {
		t.Fatal("entry expired before its TTL")
	}

	time.Sleep(40 * time.Millisecond)

	if _, ok := s.Get("short"); ok {
		t.Fatal("entry visible after its TTL")
	}
	// Lazy eviction removed the entry on the failed Get.
	if s.Size() != 0 {
		t.Fatalf("Size = %d after lazy eviction, want 0", s.Size())
	}
}

func TestStoreZeroTTLStoresExpired(t *testing.T) {
	s := newTestStore(time.Minute)
	defer s.Close()

	s.SetWithTTL("zero", "value", 0)
	if _, ok := s.Get("zero"); ok {
		t.Fatal("zero-TTL entry visible to Get")
	}

	s.SetWithTTL("negative", "value", -time.Second)
	if _, ok := s.Get("negative"); ok {
		t.Fatal("negative-TTL entry visible to Get")
	}
}

func TestStoreOverwriteExtendsLifetime(t *testing.T) {
	s := newTestStore(time.Minute)
	defer s.Close()

	s.SetWithTTL("key", "v1", 20*time.Millisecond)
	s.SetWithTTL("key", "v2", time.Minute)

	time.Sleep(40 * time.Millisecond)

	got, ok := s.Get("key")
	if !ok {
		t.Fatal("overwritten entry expired on the old TTL")
	}
	if got != "v2" {
		t.Fatalf("Get returned %v, want v2", got)
	}
}

func TestStoreDelete(t *testing.T) {
	s := newTestStore(time.Minute)
	defer s.Close()

	s.Set("key", "value")
	s.Delete("key")

	if _, ok := s.Get("key"); ok {
		t.Fatal("Get returned deleted entry")
	}

	// Idempotent.
	s.Delete("key")
	s.Delete("never-existed")
}

func TestStoreDeleteMultiple(t *testing.T) {
	s := newTestStore(time.Minute)
	defer s.Close()

	for i := 0; i < 5; i++ {
		s.Set(fmt.Sprintf("key-%d", i), i)
	}

	s.DeleteMultiple([]string{"key-0", "key-2", "key-4", "not-there"})

	if s.Size() != 2 {
		t.Fatalf("Size = %d, want 2", s.Size())
	}
	if _, ok := s.Get("key-1"); !ok {
		t.Fatal("unlisted key was deleted")
	}
	if _, ok := s.Get("key-2"); ok {
		t.Fatal("listed key survived DeleteMultiple")
	}
}

func TestStoreKeysIncludesExpired(t *testing.T) {
	s := newTestStore(time.Minute)
	defer s.Close()

	s.Set("live", "value")
	s.SetWithTTL("dead", "value", -time.Second)

	keys := s.Keys()
	if len(keys) != 2 {
		t.Fatalf("Keys returned %d keys, want 2 (expired entries are tracked until swept)", len(keys))
	}
}

func TestStoreClear(t *testing.T) {
	s := newTestStore(time.Minute)
	defer s.Close()

	s.Set("a", 1)
	s.Set("b", 2)
	s.Clear()

	if s.Size() != 0 {
		t.Fatalf("Size = %d after Clear, want 0", s.Size())
	}
	if stats := s.GetStats(); stats.Keys != 0 {
		t.Fatalf("stats.Keys = %d after Clear, want 0", stats.Keys)
	}
}

func TestStoreStats(t *testing.T) {
	s := newTestStore(time.Minute)
	defer s.Close()

	s.Set("key", "value")
	s.Get("key")     // hit
	s.Get("key")     // hit
	s.Get("missing") // miss

	stats := s.GetStats()
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Keys != 1 {
		t.Errorf("Keys = %d, want 1", stats.Keys)
	}

	if rate := s.HitRate(); rate < 66.0 || rate > 67.0 {
		t.Errorf("HitRate = %.2f, want ~66.67", rate)
	}
}

func TestStoreHitRateEmpty(t *testing.T) {
	s := newTestStore(time.Minute)
	defer s.Close()

	if rate := s.HitRate(); rate != 0.0 {
		t.Fatalf("HitRate on untouched store = %.2f, want 0", rate)
	}
}

func TestStoreJanitorSweep(t *testing.T) {
	s := NewWithJanitor(time.Minute, 20*time.Millisecond)
	defer s.Close()

	s.SetWithTTL("stale", "value", 10*time.Millisecond)
	s.Set("fresh", "value")

	deadline := time.Now().Add(time.Second)
	for s.Size() > 1 {
		if time.Now().After(deadline) {
			t.Fatal("janitor did not sweep the expired entry")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, ok := s.Get("fresh"); !ok {
		t.Fatal("janitor swept a live entry")
	}
}

func TestStoreCloseIdempotent(t *testing.T) {
	s := New(time.Minute)
	s.Close()
	s.Close()

	// The store stays usable after Close.
	s.Set("key", "value")
	if _, ok := s.Get("key"); !ok {
		t.Fatal("store unusable after Close")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := newTestStore(time.Minute)
	defer s.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key-%d", i%20)
				switch i % 4 {
				case 0:
					s.Set(key, g)
				case 1:
					s.Get(key)
				case 2:
					s.Delete(key)
				default:
					s.Keys()
				}
			}
		}(g)
	}
	wg.Wait()
}
