// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/statlinehq/statline/internal/metrics"
)

// FSStore reads snapshots from a directory of JSON files. Intended for
// development setups where the analytics pipeline drops files into a shared
// volume, and for tests.
//
// A key maps to a filename by replacing ':' with '_' and appending ".json":
// "district:42:analytics" is stored as "district_42_analytics.json". The
// mapping is only invertible when keys contain no underscore, so this store
// rejects such keys instead of silently corrupting them on List.
type FSStore struct {
	dir string
}

// NewFSStore creates a filesystem store rooted at dir.
func NewFSStore(dir string) (*FSStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("snapshot dir %s: not a directory", dir)
	}
	return &FSStore{dir: dir}, nil
}

// Load implements Store.
func (s *FSStore) Load(ctx context.Context, key string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validKey(key); err != nil {
		return nil, err
	}

	start := time.Now()
	doc, err := os.ReadFile(filepath.Join(s.dir, keyToFilename(key)))
	if errors.Is(err, fs.ErrNotExist) {
		err = ErrNotFound
	}
	metrics.RecordSnapshotLoad("fs", time.Since(start), err)

	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return doc, nil
}

// List implements Store.
func (s *FSStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		key := filenameToKey(entry.Name())
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Put implements Writer.
func (s *FSStore) Put(ctx context.Context, key string, doc json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.dir, keyToFilename(key)), doc, 0o644); err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}
	return nil
}

// Close implements Store. No resources to release.
func (s *FSStore) Close() error {
	return nil
}

// validKey rejects keys the filename mapping cannot round-trip.
func validKey(key string) error {
	if strings.Contains(key, "_") {
		return fmt.Errorf("snapshot key %q: underscore not allowed by filesystem store", key)
	}
	return nil
}

func keyToFilename(key string) string {
	return strings.ReplaceAll(key, ":", "_") + ".json"
}

func filenameToKey(name string) string {
	return strings.ReplaceAll(strings.TrimSuffix(name, ".json"), "_", ":")
}
