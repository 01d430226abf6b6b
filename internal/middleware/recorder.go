// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package middleware

import (
	"bytes"
	"net/http"

	"github.com/goccy/go-json"
)

// bufferedResponse is a fully captured handler outcome: status, headers, and
// body. It is what the cache stage stores and what joined coalesced callers
// replay, so it must be safe to write to many ResponseWriters.
type bufferedResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// success reports whether the outcome counts as a success for cache
// population and invalidation purposes (2xx only).
func (br *bufferedResponse) success() bool {
	return br.Status >= 200 && br.Status < 300
}

// writeTo replays the captured response onto w.
func (br *bufferedResponse) writeTo(w http.ResponseWriter) {
	for name, values := range br.Header {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	w.WriteHeader(br.Status)
	if len(br.Body) > 0 {
		_, _ = w.Write(br.Body)
	}
}

// recorder is an http.ResponseWriter that captures the handler's response
// instead of sending it, so a stage can inspect the outcome before deciding
// what to do with it.
type recorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{
		header: make(http.Header),
		status: http.StatusOK,
	}
}

func (rec *recorder) Header() http.Header {
	return rec.header
}

func (rec *recorder) WriteHeader(code int) {
	rec.status = code
}

func (rec *recorder) Write(b []byte) (int, error) {
	return rec.body.Write(b)
}

// snapshot copies the recorded response into an immutable bufferedResponse.
func (rec *recorder) snapshot() *bufferedResponse {
	header := make(http.Header, len(rec.header))
	for name, values := range rec.header {
		header[name] = append([]string(nil), values...)
	}
	return &bufferedResponse{
		Status: rec.status,
		Header: header,
		Body:   append([]byte(nil), rec.body.Bytes()...),
	}
}

// writeErrorJSON writes a minimal error envelope without depending on the
// api package (which depends on this one).
func writeErrorJSON(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
