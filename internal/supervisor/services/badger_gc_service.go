// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package services

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/statlinehq/statline/internal/logging"
)

// gcDiscardRatio is the value-log rewrite threshold recommended by the
// Badger documentation.
const gcDiscardRatio = 0.5

// BadgerGCService periodically runs BadgerDB value-log garbage collection.
// Badger never reclaims value-log space on its own; without this loop the
// snapshot database grows unbounded as the pipeline rewrites snapshots.
type BadgerGCService struct {
	db       *badger.DB
	interval time.Duration
}

// NewBadgerGCService creates the GC loop. Interval defaults to 10 minutes.
func NewBadgerGCService(db *badger.DB, interval time.Duration) *BadgerGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &BadgerGCService{db: db, interval: interval}
}

// Serve implements suture.Service.
func (s *BadgerGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Each call rewrites at most one value-log file; loop until
			// there is nothing left to rewrite.
			for {
				err := s.db.RunValueLogGC(gcDiscardRatio)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						logging.Warn().Err(err).Msg("badger value-log GC failed")
					}
					break
				}
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *BadgerGCService) String() string {
	return "badger-gc"
}
