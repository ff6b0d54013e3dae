// Package oracles holds invariant-check SQL for the runs/outbox schema,
// covering the universal properties from the testable-properties list
// (lease ordering, verdict/state consistency, reaper safety, outbox
// staleness).
package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_started_before_finished",
			SQL: `SELECT * FROM runs
                  WHERE started_execing_time IS NOT NULL AND finished_execing_time IS NOT NULL
                    AND started_execing_time > finished_execing_time`,
		},
		{
			Name: "O2_terminal_state_matches_verdict",
			SQL: `SELECT * FROM runs
                  WHERE state IN ('SUCCESSFUL','FAILED')
                    AND (NOT is_submission
                         OR is_passed IS NULL
                         OR (state = 'SUCCESSFUL' AND NOT is_passed)
                         OR (state = 'FAILED' AND is_passed))`,
		},
		{
			Name: "O3_is_passed_only_when_judged_submission",
			SQL: `SELECT * FROM runs
                  WHERE is_passed IS NOT NULL
                    AND NOT (is_submission AND finished_execing_time IS NOT NULL)`,
		},
		{
			Name: "O4_reaper_safety",
			SQL: `SELECT * FROM runs
                  WHERE started_execing_time IS NOT NULL AND finished_execing_time IS NULL
                    AND now() - started_execing_time > interval '10 minutes'`,
		},
		{
			Name: "O5_outbox_not_stale",
			SQL: `SELECT * FROM outbox
                  WHERE status = 'pending' AND now() - created_at > interval '5 minutes'`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample
// row text), or an empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
