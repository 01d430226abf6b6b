// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package cache

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// maxKeyLength is the cap beyond which the parameter section of a key is
// replaced by a hash. Keys stay readable for the common case and bounded for
// pathological query strings.
const maxKeyLength = 200

// Key builds a deterministic cache key from an operation name and a set of
// parameters. Parameter names are sorted, so two logically identical
// parameter sets produce the same key regardless of insertion order.
// Names and values are query-escaped so that separator characters in values
// cannot collide with the key structure.
//
//	Key("clubs", url.Values{"district": {"42"}, "status": {"active"}})
//	// "clubs?district=42&status=active"
func Key(operation string, params url.Values) string {
	if len(params) == 0 {
		return operation
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(operation)
	b.WriteByte('?')
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		for j, value := range params[name] {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(url.QueryEscape(value))
		}
	}

	key := b.String()
	if len(key) > maxKeyLength {
		return HashKey(operation, key)
	}
	return key
}

// HashKey builds a compact cache key from an operation name and arbitrary
// parameters by hashing their JSON encoding. Used directly when parameters
// are structured values rather than query strings, and as the overflow path
// for Key.
func HashKey(operation string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Fallback to a formatted key; %+v is deterministic for structs.
		return fmt.Sprintf("%s:%+v", operation, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", operation, hash[:16])
}
