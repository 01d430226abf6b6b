// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

// mockServer simulates *http.Server lifecycle behavior.
type mockServer struct {
	serveErr    error
	shutdownErr error

	serving  chan struct{}
	shutdown atomic.Bool
	release  chan struct{}
}

func newMockServer() *mockServer {
	return &mockServer{
		serving: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (m *mockServer) ListenAndServe() error {
	close(m.serving)
	if m.serveErr != nil {
		return m.serveErr
	}
	<-m.release
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(ctx context.Context) error {
	m.shutdown.Store(true)
	close(m.release)
	return m.shutdownErr
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	mock := newMockServer()
	svc := NewHTTPService(mock, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	<-mock.serving
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	if !mock.shutdown.Load() {
		t.Fatal("Shutdown was not called")
	}
}

func TestHTTPServiceStartupFailure(t *testing.T) {
	mock := newMockServer()
	mock.serveErr = errors.New("bind: address already in use")
	svc := NewHTTPService(mock, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, mock.serveErr) {
		t.Fatalf("Serve returned %v, want wrapped bind error", err)
	}
	if mock.shutdown.Load() {
		t.Fatal("Shutdown called after startup failure")
	}
}

func TestHTTPServiceShutdownFailure(t *testing.T) {
	mock := newMockServer()
	mock.shutdownErr = errors.New("shutdown deadline exceeded")
	svc := NewHTTPService(mock, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	<-mock.serving
	cancel()

	select {
	case err := <-errCh:
		if err == nil || !errors.Is(err, mock.shutdownErr) {
			t.Fatalf("Serve returned %v, want wrapped shutdown error", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestHTTPServiceString(t *testing.T) {
	svc := NewHTTPService(newMockServer(), 0)
	if got := svc.String(); got != "http-server" {
		t.Fatalf("String = %q", got)
	}
}
