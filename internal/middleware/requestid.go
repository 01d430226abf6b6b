// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package middleware

import (
	"net/http"

	"github.com/statlinehq/statline/internal/logging"
)

// RequestID assigns a unique ID to each request, echoing any ID supplied by
// an upstream proxy. The ID is set on the response header and stored in the
// request context for structured logging.
func RequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = logging.NewRequestID()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.ContextWithRequestID(r.Context(), requestID)

		next(w, r.WithContext(ctx))
	}
}
