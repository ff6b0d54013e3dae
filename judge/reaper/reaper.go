// Package reaper periodically reclaims writs whose lease exceeded a
// timeout without completion (C4), grounded in the teacher's chaos-ticker
// idiom: a ticker loop selecting on a stop channel and context
// cancellation.
package reaper

import (
	"context"
	"log/slog"
	"time"
)

const defaultPeriod = 20 * time.Second

// reaperStore is the narrow slice of *store.Store this package needs.
type reaperStore interface {
	ReapExpired(ctx context.Context, timeout time.Duration) (int64, error)
}

type configAccessor interface {
	IntOrDefault(ctx context.Context, key string, def int) int
}

type Reaper struct {
	store  reaperStore
	config configAccessor
	log    *slog.Logger
	period time.Duration
}

func New(s reaperStore, cfg configAccessor, log *slog.Logger) *Reaper {
	return &Reaper{store: s, config: cfg, log: log.With("component", "reaper"), period: defaultPeriod}
}

// WithPeriod overrides the default tick period (tests use this to avoid
// waiting out a real 20s interval).
func (r *Reaper) WithPeriod(d time.Duration) *Reaper {
	r.period = d
	return r
}

// Run blocks ticking until ctx is cancelled, clearing expired leases on
// each tick. Idempotent and safe to run concurrently with dispatch: both
// sides condition on finished_execing_time IS NULL.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reaper) tick(ctx context.Context) {
	minutes := r.config.IntOrDefault(ctx, "executor_timeout_minutes", 2)
	timeout := time.Duration(minutes) * time.Minute
	n, err := r.store.ReapExpired(ctx, timeout)
	if err != nil {
		r.log.ErrorContext(ctx, "reap expired leases failed", "error", err)
		return
	}
	if n > 0 {
		r.log.InfoContext(ctx, "reclaimed expired leases", "count", n, "timeout", timeout)
	}
}
