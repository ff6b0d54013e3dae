// Package queue selects the next pending run for dispatch and leases it
// atomically (C3), retrying on conflict the same way a claimant retries
// against a FOR UPDATE SKIP LOCKED queue, except here the conditional
// update itself is the lock.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codecourt/store"
)

// ErrUnavailable is returned when no candidate run exists to lease.
var ErrUnavailable = errors.New("queue: unavailable")

const maxLeaseAttempts = 8

// queueStore is the narrow slice of *store.Store this package needs,
// satisfied implicitly, so tests can supply a fake without a database.
type queueStore interface {
	SelectNextRunID(ctx context.Context) (int64, bool, error)
	LeaseRun(ctx context.Context, id int64) (store.Run, error)
	ReturnRun(ctx context.Context, runID int64) error
	CompleteRun(ctx context.Context, p store.CompletionParams) (store.Run, error)
}

type Queue struct {
	store queueStore
	log   *slog.Logger
}

func New(s queueStore, log *slog.Logger) *Queue {
	return &Queue{store: s, log: log.With("component", "queue")}
}

// Lease selects and atomically leases the next candidate Run per the C3
// selection order. Concurrent callers race on the conditional update;
// losers retry selection rather than propagating the conflict.
func (q *Queue) Lease(ctx context.Context) (store.Run, error) {
	for attempt := 0; attempt < maxLeaseAttempts; attempt++ {
		id, ok, err := q.store.SelectNextRunID(ctx)
		if err != nil {
			return store.Run{}, fmt.Errorf("queue: select candidate: %w", err)
		}
		if !ok {
			return store.Run{}, ErrUnavailable
		}

		run, err := q.store.LeaseRun(ctx, id)
		if err == nil {
			return run, nil
		}
		if errors.Is(err, store.ErrConflict) {
			q.log.DebugContext(ctx, "lease race lost, retrying selection", "run_id", id, "attempt", attempt)
			continue
		}
		return store.Run{}, fmt.Errorf("queue: lease run %d: %w", id, err)
	}
	return store.Run{}, fmt.Errorf("queue: exhausted %d lease attempts", maxLeaseAttempts)
}

// Return releases a lease without recording a verdict (the
// return-without-run endpoint, and the sandbox's own internal-failure path).
func (q *Queue) Return(ctx context.Context, runID int64) error {
	if err := q.store.ReturnRun(ctx, runID); err != nil {
		return fmt.Errorf("queue: return run %d: %w", runID, err)
	}
	return nil
}

// Complete applies the completion transition with a computed verdict.
func (q *Queue) Complete(ctx context.Context, p store.CompletionParams) (store.Run, error) {
	run, err := q.store.CompleteRun(ctx, p)
	if err != nil {
		return store.Run{}, fmt.Errorf("queue: complete run %d: %w", p.RunID, err)
	}
	return run, nil
}
