// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package cache

import (
	"regexp"
	"strings"
	"sync"
)

// patternCache holds compiled wildcard patterns. Invalidation patterns come
// from a small fixed set of route definitions, so the cache stays bounded in
// practice.
var patternCache sync.Map

// MatchPattern reports whether key matches the wildcard pattern.
//
// Pattern syntax:
//   - `*` matches any run of characters (including none)
//   - `?` matches exactly one character
//   - everything else, path separators included, matches literally
//
// The match is anchored: the whole key must match, not a substring.
// A pattern that fails to compile matches nothing; an invalidation bug must
// degrade to a no-op, never to a panic or a cascading failure.
func MatchPattern(pattern, key string) bool {
	if pattern == "" {
		return false
	}

	// Fast path: no metacharacters means exact match.
	if !strings.ContainsAny(pattern, "*?") {
		return pattern == key
	}

	// Fast path: single trailing star is a prefix match.
	if strings.HasSuffix(pattern, "*") && !strings.ContainsAny(pattern[:len(pattern)-1], "*?") {
		return strings.HasPrefix(key, pattern[:len(pattern)-1])
	}

	re := compilePattern(pattern)
	if re == nil {
		return false
	}
	return re.MatchString(key)
}

// FilterKeys returns the subset of keys matching the wildcard pattern.
func FilterKeys(pattern string, keys []string) []string {
	matched := make([]string, 0, len(keys))
	for _, key := range keys {
		if MatchPattern(pattern, key) {
			matched = append(matched, key)
		}
	}
	return matched
}

// compilePattern compiles a wildcard pattern to an anchored regexp, caching
// the result. Returns nil if the pattern cannot be compiled.
func compilePattern(pattern string) *regexp.Regexp {
	if cached, ok := patternCache.Load(pattern); ok {
		if cached == nil {
			return nil
		}
		return cached.(*regexp.Regexp)
	}

	re, err := regexp.Compile("^" + globToRegex(pattern) + "$")
	if err != nil {
		// Cache the failure too so a bad pattern is not recompiled per key.
		patternCache.Store(pattern, nil)
		return nil
	}
	patternCache.Store(pattern, re)
	return re
}

// globToRegex rewrites a wildcard pattern into regexp source: every regexp
// metacharacter is escaped first, then `*` becomes `.*` and `?` becomes `.`.
func globToRegex(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern) * 2)

	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch ch {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '.', '+', '(', ')', '|', '[', ']', '{', '}', '^', '$', '\\':
			b.WriteByte('\\')
			b.WriteByte(ch)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
