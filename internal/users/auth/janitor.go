// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"
)

// # Maintenance

// Janitor periodically removes long-expired verification codes.
//
// Codes are kept for a grace window past expiry so that a late attempt still
// reports ErrTokenExpired rather than ErrTokenNotFound.
type Janitor struct {
	tokens   VerificationTokenRepository
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewJanitor constructs a janitor sweeping every interval.
func NewJanitor(tokens VerificationTokenRepository, interval, grace time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{
		tokens:   tokens,
		interval: interval,
		grace:    grace,
		now:      time.Now,
		logger:   logger,
	}
}

// Run sweeps on every tick until context is cancelled.
func (janitor *Janitor) Run(context context.Context) {
	ticker := time.NewTicker(janitor.interval)
	defer ticker.Stop()

	for {
		select {
		case <-context.Done():
			return
		case <-ticker.C:
			if _, err := janitor.Sweep(context); err != nil {
				janitor.logger.Error("verification_sweep_failed", slog.Any("error", err))
			}
		}
	}
}

// Sweep deletes codes that expired more than the grace window ago.
func (janitor *Janitor) Sweep(context context.Context) (int64, error) {
	cutoff := janitor.now().Add(-janitor.grace)

	removed, err := janitor.tokens.DeleteExpired(context, cutoff)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		janitor.logger.Info("verification_codes_swept", slog.Int64("removed", removed))
	}

	return removed, nil
}
