// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package snapshot

import (
	"context"
	"errors"
	"sort"
	"testing"
)

func newBadgerFixture(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := OpenBadger(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestBadgerStoreRoundtrip(t *testing.T) {
	store := newBadgerFixture(t)
	ctx := context.Background()

	doc := []byte(`{"clubs":17}`)
	if err := store.Put(ctx, "district:42:clubs", doc); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Load(ctx, "district:42:clubs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != string(doc) {
		t.Fatalf("Load = %s, want %s", got, doc)
	}
}

func TestBadgerStoreNotFound(t *testing.T) {
	store := newBadgerFixture(t)

	_, err := store.Load(context.Background(), "district:404:clubs")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load for missing key returned %v, want ErrNotFound", err)
	}
}

func TestBadgerStoreOverwrite(t *testing.T) {
	store := newBadgerFixture(t)
	ctx := context.Background()

	if err := store.Put(ctx, "k", []byte(`{"v":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "k", []byte(`{"v":2}`)); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"v":2}` {
		t.Fatalf("Load = %s, want latest write", got)
	}
}

func TestBadgerStoreList(t *testing.T) {
	store := newBadgerFixture(t)
	ctx := context.Background()

	for _, key := range []string{
		"district:42:analytics",
		"district:42:membership",
		"district:7:analytics",
	} {
		if err := store.Put(ctx, key, []byte(`{}`)); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}

	keys, err := store.List(ctx, "district:42:")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	sort.Strings(keys)

	want := []string{"district:42:analytics", "district:42:membership"}
	if len(keys) != len(want) {
		t.Fatalf("List = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("List = %v, want %v", keys, want)
		}
	}
}
