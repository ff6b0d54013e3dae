// Package actors drives concurrent load against the runs/outbox schema for
// stress testing the C3/C4/C6 lease protocol, mirrored after the teacher's
// raw-SQL concurrent actor functions.
package actors

import (
	"context"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Dispatcher repeatedly races to lease the next candidate run, mimicking
// many concurrent get-writ callers.
func Dispatcher(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var runID int64
		err := pool.QueryRow(ctx, `
			SELECT id FROM runs
			WHERE started_execing_time IS NULL AND finished_execing_time IS NULL
			ORDER BY is_priority DESC, submit_time ASC, id ASC LIMIT 1`).Scan(&runID)
		if err == nil {
			_, _ = pool.Exec(ctx, `UPDATE runs SET started_execing_time = now()
				WHERE id = $1 AND started_execing_time IS NULL`, runID)
		}
		time.Sleep(time.Duration(5+rand.Intn(15)) * time.Millisecond)
	}
}

// Completer finishes whatever leased-but-unfinished runs it can find,
// mimicking concurrent submit-writ callers racing the reaper.
func Completer(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var runID int64
		var isSubmission bool
		err := pool.QueryRow(ctx, `
			SELECT id, is_submission FROM runs
			WHERE started_execing_time IS NOT NULL AND finished_execing_time IS NULL
			ORDER BY random() LIMIT 1`).Scan(&runID, &isSubmission)
		if err == nil {
			passed := rand.Intn(2) == 0
			state := "EXECUTED"
			var isPassed any = nil
			if isSubmission {
				isPassed = passed
				if passed {
					state = "SUCCESSFUL"
				} else {
					state = "FAILED"
				}
			}
			tx, err := pool.Begin(ctx)
			if err == nil {
				_, err = tx.Exec(ctx, `UPDATE runs SET run_output = 'x', finished_execing_time = now(), is_passed = $2, state = $3
					WHERE id = $1 AND finished_execing_time IS NULL`, runID, isPassed, state)
				if err == nil && (state == "SUCCESSFUL" || state == "FAILED") {
					var contestID int64
					_ = tx.QueryRow(ctx, `SELECT contest_id FROM runs WHERE id = $1`, runID).Scan(&contestID)
					_, _ = tx.Exec(ctx, `INSERT INTO outbox (topic, payload) VALUES ('run.judged', jsonb_build_object('run_id',$1,'contest_id',$2))`, runID, contestID)
				}
				if err == nil {
					_ = tx.Commit(ctx)
				} else {
					_ = tx.Rollback(ctx)
				}
			}
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Reaper clears leases that have run past a short stress-test timeout,
// racing against Completer the same way the real reaper races submit-writ.
func Reaper(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, stop <-chan struct{}) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
			_, _ = pool.Exec(ctx, `UPDATE runs SET started_execing_time = NULL
				WHERE started_execing_time IS NOT NULL AND finished_execing_time IS NULL
				  AND now() - started_execing_time > $1`, timeout)
		}
	}
}

// Rejudger resets a finished submission back to the unleased pool.
func Rejudger(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var runID int64
		err := pool.QueryRow(ctx, `
			SELECT id FROM runs WHERE finished_execing_time IS NOT NULL ORDER BY random() LIMIT 1`).Scan(&runID)
		if err == nil {
			_, _ = pool.Exec(ctx, `UPDATE runs SET started_execing_time = NULL, finished_execing_time = NULL,
				run_output = NULL, is_passed = NULL, state = 'JUDGING' WHERE id = $1`, runID)
		}
		time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
	}
}

// OutboxWorker consumes pending run.judged events with SKIP LOCKED, the
// same claim pattern as the real scoreboard dispatcher.
func OutboxWorker(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `SELECT id FROM outbox WHERE status='pending' ORDER BY created_at FOR UPDATE SKIP LOCKED LIMIT 10`)
		if err != nil {
			_ = tx.Rollback(ctx)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		var ids []int64
		for rows.Next() {
			var id int64
			_ = rows.Scan(&id)
			ids = append(ids, id)
		}
		rows.Close()
		for _, id := range ids {
			_, _ = tx.Exec(ctx, `UPDATE outbox SET status='processed' WHERE id=$1`, id)
		}
		_ = tx.Commit(ctx)
		time.Sleep(100 * time.Millisecond)
	}
}
