// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/statlinehq/statline/internal/logging"
)

// warmConcurrency bounds parallel warm-up requests.
const warmConcurrency = 4

// Warm pre-populates the response cache by issuing a synthetic request for
// each snapshot key through the given router. Driving the real pipeline means
// warmed entries are exactly the captured responses the cache stage replays,
// so the first client request for a warmed key is a hit.
//
// Keys use the "district:{id}:{section}" form. Malformed keys and missing
// snapshots are skipped with a log line; a backend failure (5xx) aborts the
// warm-up. Warm-up is an optimization for cold starts, never a correctness
// requirement.
func Warm(ctx context.Context, router http.Handler, keys []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)

	for _, key := range keys {
		g.Go(func() error {
			path, ok := warmPath(key)
			if !ok {
				logging.Warn().Str("key", key).Msg("warm-up: malformed snapshot key")
				return nil
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
			if err != nil {
				return fmt.Errorf("warm %s: %w", key, err)
			}

			rec := &warmRecorder{header: make(http.Header)}
			router.ServeHTTP(rec, req)

			switch {
			case rec.status >= http.StatusInternalServerError:
				return fmt.Errorf("warm %s: backend returned %d", key, rec.status)
			case rec.status != http.StatusOK:
				logging.Debug().Str("key", key).Int("status", rec.status).
					Msg("warm-up: snapshot not served")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logging.Info().Int("keys", len(keys)).Msg("cache warm-up complete")
	return nil
}

// warmPath maps a snapshot key to its read-endpoint path.
func warmPath(key string) (string, bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != "district" || parts[1] == "" || parts[2] == "" {
		return "", false
	}
	return fmt.Sprintf("/api/v1/districts/%s/%s",
		url.PathEscape(parts[1]), url.PathEscape(parts[2])), true
}

// warmRecorder captures the status of a synthetic warm-up request and
// discards the body; the cache stage has already stored the response by the
// time it reaches this writer.
type warmRecorder struct {
	header http.Header
	status int
}

func (w *warmRecorder) Header() http.Header { return w.header }

func (w *warmRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *warmRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return len(b), nil
}
