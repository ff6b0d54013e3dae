package scoreboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Dispatcher drains the outbox's run.judged events and invalidates the
// scoreboard cache for the affected contest, rather than invalidating
// inline inside the HTTP handler. Grounded in the teacher's outbox idiom
// (agreement/status.go inserts an outbox row in the same transaction as a
// status write); kept in-process since Code Court explicitly scopes out
// load balancing across multiple courthouses.
type Dispatcher struct {
	pool       *pgxpool.Pool
	aggregator *Aggregator
	log        *slog.Logger
	period     time.Duration
}

func NewDispatcher(pool *pgxpool.Pool, agg *Aggregator, log *slog.Logger) *Dispatcher {
	return &Dispatcher{pool: pool, aggregator: agg, log: log.With("component", "scoreboard_dispatcher"), period: 2 * time.Second}
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

type runJudgedPayload struct {
	RunID     int64 `json:"run_id"`
	ContestID int64 `json:"contest_id"`
}

func (d *Dispatcher) drain(ctx context.Context) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		d.log.ErrorContext(ctx, "begin outbox drain failed", "error", err)
		return
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, payload FROM outbox
		WHERE topic = 'run.judged' AND status = 'pending'
		ORDER BY created_at FOR UPDATE SKIP LOCKED LIMIT 50`)
	if err != nil {
		d.log.ErrorContext(ctx, "query outbox failed", "error", err)
		return
	}
	type entry struct {
		id      int64
		payload []byte
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.payload); err != nil {
			rows.Close()
			d.log.ErrorContext(ctx, "scan outbox row failed", "error", err)
			return
		}
		entries = append(entries, e)
	}
	rows.Close()

	for _, e := range entries {
		var p runJudgedPayload
		if err := json.Unmarshal(e.payload, &p); err == nil {
			d.aggregator.Invalidate(p.ContestID)
		}
		if _, err := tx.Exec(ctx, `UPDATE outbox SET status = 'processed' WHERE id = $1`, e.id); err != nil {
			d.log.ErrorContext(ctx, "mark outbox processed failed", "error", err, "outbox_id", e.id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		d.log.ErrorContext(ctx, "commit outbox drain failed", "error", err)
	}
}
