// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package cache

import (
	"sort"
	"testing"
	"time"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		// Exact matches, no metacharacters.
		{"district:42:analytics", "district:42:analytics", true},
		{"district:42:analytics", "district:42:clubs", false},

		// Trailing star prefix.
		{"district:42:*", "district:42:analytics", true},
		{"district:42:*", "district:42:", true},
		{"district:42:*", "district:7:analytics", false},
		{"district:42:*", "district:421:clubs", false},

		// Star mid-pattern.
		{"district:*:clubs", "district:42:clubs", true},
		{"district:*:clubs", "district:42:analytics", false},
		{"*", "anything", true},

		// Question mark matches exactly one character.
		{"district:?:clubs", "district:7:clubs", true},
		{"district:?:clubs", "district:42:clubs", false},

		// Anchored: no substring matches.
		{"42", "district:42:clubs", false},

		// Regexp metacharacters in keys are literal.
		{"stats.daily:*", "stats.daily:2026-08-24", true},
		{"stats.daily:*", "statsXdaily:2026-08-24", false},

		// Empty pattern matches nothing.
		{"", "district:42:clubs", false},
		{"", "", false},
	}

	for _, tt := range tests {
		if got := MatchPattern(tt.pattern, tt.key); got != tt.want {
			t.Errorf("MatchPattern(%q, %q) = %v, want %v", tt.pattern, tt.key, got, tt.want)
		}
	}
}

func TestFilterKeys(t *testing.T) {
	keys := []string{
		"district:42:analytics",
		"district:42:clubs",
		"district:7:clubs",
	}

	matched := FilterKeys("district:42:*", keys)
	sort.Strings(matched)

	want := []string{"district:42:analytics", "district:42:clubs"}
	if len(matched) != len(want) {
		t.Fatalf("FilterKeys returned %v, want %v", matched, want)
	}
	for i := range want {
		if matched[i] != want[i] {
			t.Fatalf("FilterKeys returned %v, want %v", matched, want)
		}
	}
}

func TestDeletePattern(t *testing.T) {
	s := NewWithJanitor(time.Minute, 0)
	defer s.Close()

	s.Set("district:42:analytics", 1)
	s.Set("district:42:clubs", 2)
	s.Set("district:7:clubs", 3)

	deleted := s.DeletePattern("district:42:*")
	if deleted != 2 {
		t.Fatalf("DeletePattern deleted %d entries, want 2", deleted)
	}

	if _, ok := s.Get("district:7:clubs"); !ok {
		t.Fatal("non-matching key was deleted")
	}
	if _, ok := s.Get("district:42:analytics"); ok {
		t.Fatal("matching key survived DeletePattern")
	}
	if _, ok := s.Get("district:42:clubs"); ok {
		t.Fatal("matching key survived DeletePattern")
	}
}

func TestDeletePatternNoMatches(t *testing.T) {
	s := NewWithJanitor(time.Minute, 0)
	defer s.Close()

	s.Set("district:42:analytics", 1)

	if deleted := s.DeletePattern("region:*"); deleted != 0 {
		t.Fatalf("DeletePattern deleted %d entries, want 0", deleted)
	}
	if s.Size() != 1 {
		t.Fatalf("Size = %d, want 1", s.Size())
	}
}

func TestDeletePatternIncludesExpired(t *testing.T) {
	s := NewWithJanitor(time.Minute, 0)
	defer s.Close()

	s.SetWithTTL("district:42:analytics", 1, -time.Second)
	s.Set("district:42:clubs", 2)

	// Expired but unswept entries still count as tracked keys.
	if deleted := s.DeletePattern("district:42:*"); deleted != 2 {
		t.Fatalf("DeletePattern deleted %d entries, want 2", deleted)
	}
}
