// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/statlinehq/statline/internal/cache"
	"github.com/statlinehq/statline/internal/coalesce"
	"github.com/statlinehq/statline/internal/logging"
)

// coalescedHeader marks responses that were served from another caller's
// in-flight computation.
const coalescedHeader = "X-Coalesced"

// CoalesceConfig configures a Coalesce stage.
type CoalesceConfig struct {
	// Group is the coalescing group backing this stage. Required.
	Group *coalesce.Group

	// Operation names the protected operation; it prefixes default keys.
	Operation string

	// Key overrides default key derivation for this route. It must agree
	// with the cache stage's key function so both layers share a key space.
	Key KeyFunc
}

// Coalesce returns the request-coalescing stage for read endpoints.
//
// The wrapped handler runs against a recorder inside the group's factory;
// every caller that arrives while that computation is in flight replays the
// single captured response instead of re-executing the handler. The bypass
// signal skips coalescing for that call.
func Coalesce(cfg CoalesceConfig) func(http.HandlerFunc) http.HandlerFunc {
	keyFn := cfg.Key
	if keyFn == nil {
		keyFn = func(r *http.Request) string {
			return cache.Key(cfg.Operation, r.URL.Query())
		}
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if BypassRequested(r) {
				next(w, r)
				return
			}

			key := keyFn(r)
			value, shared, err := cfg.Group.GetOrCreate(r.Context(), key, func(ctx context.Context) (interface{}, error) {
				rec := newRecorder()
				next(rec, r.WithContext(ctx))
				return rec.snapshot(), nil
			})

			switch {
			case err == nil:
				resp, ok := value.(*bufferedResponse)
				if !ok {
					writeErrorJSON(w, http.StatusInternalServerError,
						"INTERNAL_ERROR", "unexpected coalesced value")
					return
				}
				if shared {
					w.Header().Set(coalescedHeader, "true")
				}
				resp.writeTo(w)

			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				// The waiter's own request died; the computation continues
				// for everyone else. Nothing useful to write.
				logging.Ctx(r.Context()).Debug().
					Str("key", key).
					Msg("caller abandoned coalesced request")

			case errors.Is(err, coalesce.ErrFlightTimeout):
				writeErrorJSON(w, http.StatusGatewayTimeout,
					"GATEWAY_TIMEOUT", "upstream computation timed out")

			default:
				writeErrorJSON(w, http.StatusServiceUnavailable,
					"SERVICE_UNAVAILABLE", err.Error())
			}
		}
	}
}
