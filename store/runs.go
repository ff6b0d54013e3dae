package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const runColumns = `
	id, user_id, contest_id, language_id, problem_id, submit_time, local_submit_time,
	started_execing_time, finished_execing_time, source_code, run_input, correct_output,
	run_output, is_submission, is_passed, is_priority, state`

func scanRun(row pgx.Row) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.UserID, &r.ContestID, &r.LanguageID, &r.ProblemID, &r.SubmitTime,
		&r.LocalSubmitTime, &r.StartedExecingTime, &r.FinishedExecingTime, &r.SourceCode,
		&r.RunInput, &r.CorrectOutput, &r.RunOutput, &r.IsSubmission, &r.IsPassed,
		&r.IsPriority, &r.State)
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

type CreateRunParams struct {
	UserID        int64
	ContestID     int64
	LanguageID    int64
	ProblemID     int64
	SourceCode    string
	RunInput      string
	CorrectOutput *string
	IsSubmission  bool
	IsPriority    bool
	State         RunState
	// Finished marks a run pre-closed at admission time (CONTEST_HAS_NOT_BEGUN).
	Finished bool
}

// CreateRun persists a new Run via the admission path. Runs are append-only
// except for the four lifecycle fields mutated by Lease/Return/Complete/Rejudge.
func (s *Store) CreateRun(ctx context.Context, p CreateRunParams) (Run, error) {
	const insertSQL = `
		INSERT INTO runs (user_id, contest_id, language_id, problem_id, submit_time,
		                   source_code, run_input, correct_output, is_submission, is_priority,
		                   state, finished_execing_time)
		VALUES ($1,$2,$3,$4, now(), $5,$6,$7,$8,$9,$10, CASE WHEN $11 THEN now() ELSE NULL END)
		RETURNING ` + runColumns
	row := s.pool.QueryRow(ctx, insertSQL, p.UserID, p.ContestID, p.LanguageID, p.ProblemID,
		p.SourceCode, p.RunInput, p.CorrectOutput, p.IsSubmission, p.IsPriority, p.State, p.Finished)
	r, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("store: create run: %w", err)
	}
	return r, nil
}

func (s *Store) GetRun(ctx context.Context, id int64) (Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("store: get run: %w", err)
	}
	return r, nil
}

// SelectNextRunID implements the C3 selection order: priority runs by
// smallest submit_time first, then non-priority runs by smallest submit_time,
// tie-broken by smallest id. It does not lock the row — the caller must win
// the conditional lease update below, retrying selection on conflict.
func (s *Store) SelectNextRunID(ctx context.Context) (int64, bool, error) {
	const sql = `
		SELECT id FROM runs
		WHERE started_execing_time IS NULL AND finished_execing_time IS NULL
		ORDER BY is_priority DESC, submit_time ASC, id ASC
		LIMIT 1`
	var id int64
	err := s.pool.QueryRow(ctx, sql).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("store: select next run: %w", err)
	}
	return id, true, nil
}

// LeaseRun performs the conditional update that acquires a writ lease.
// Returns ErrConflict if another caller won the race first.
func (s *Store) LeaseRun(ctx context.Context, runID int64) (Run, error) {
	const sql = `
		UPDATE runs SET started_execing_time = now()
		WHERE id = $1 AND started_execing_time IS NULL
		RETURNING ` + runColumns
	row := s.pool.QueryRow(ctx, sql, runID)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrConflict
	}
	if err != nil {
		return Run{}, fmt.Errorf("store: lease run: %w", err)
	}
	return r, nil
}

// ReturnRun clears the lease. Idempotent: a second call on an already
// unleased or finished run is a no-op, matching the explicit
// return-without-run and reaper release paths.
func (s *Store) ReturnRun(ctx context.Context, runID int64) error {
	const sql = `
		UPDATE runs SET started_execing_time = NULL
		WHERE id = $1 AND finished_execing_time IS NULL`
	tag, err := s.pool.Exec(ctx, sql, runID)
	if err != nil {
		return fmt.Errorf("store: return run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either not found or already finished; distinguish for the HTTP layer.
		if _, err := s.GetRun(ctx, runID); err != nil {
			return err
		}
		return fmt.Errorf("%w: run already finished", ErrConflict)
	}
	if err := s.appendRunEvent(ctx, s.pool, runID, "LEASE_RETURNED"); err != nil {
		return err
	}
	return nil
}

// ReapExpired clears leases held past timeout. Safe to run concurrently
// with dispatch: both sides condition on finished_execing_time IS NULL.
func (s *Store) ReapExpired(ctx context.Context, timeout time.Duration) (int64, error) {
	const sql = `
		UPDATE runs SET started_execing_time = NULL
		WHERE started_execing_time IS NOT NULL
		  AND finished_execing_time IS NULL
		  AND now() - started_execing_time > $1
		RETURNING id`
	rows, err := s.pool.Query(ctx, sql, timeout)
	if err != nil {
		return 0, fmt.Errorf("store: reap expired: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	for _, id := range ids {
		_ = s.appendRunEvent(ctx, s.pool, id, "LEASE_REAPED")
	}
	return int64(len(ids)), nil
}

// CompletionParams carries the verdict computed by C2/C6 when submit-writ
// finishes a run.
type CompletionParams struct {
	RunID     int64
	Output    string
	State     RunState
	IsPassed  *bool // only set when IsSubmission
}

// CompleteRun applies the one-time completion transition. Conditioned on
// finished_execing_time IS NULL so the first completer wins and a second
// submit-writ on the same run observes ErrConflict.
func (s *Store) CompleteRun(ctx context.Context, p CompletionParams) (Run, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Run{}, fmt.Errorf("store: begin complete run: %w", err)
	}
	defer tx.Rollback(ctx)

	const sql = `
		UPDATE runs SET run_output = $2, finished_execing_time = now(), is_passed = $3, state = $4
		WHERE id = $1 AND finished_execing_time IS NULL
		RETURNING ` + runColumns
	row := tx.QueryRow(ctx, sql, p.RunID, p.Output, p.IsPassed, p.State)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: run already finished", ErrConflict)
	}
	if err != nil {
		return Run{}, fmt.Errorf("store: complete run: %w", err)
	}

	if err := s.appendRunEvent(ctx, tx, p.RunID, "RUN_"+string(p.State)); err != nil {
		return Run{}, err
	}
	if p.State == StateSuccessful || p.State == StateFailed {
		if _, err := tx.Exec(ctx, `INSERT INTO outbox (topic, payload) VALUES ('run.judged', jsonb_build_object('run_id', $1, 'contest_id', $2))`, r.ID, r.ContestID); err != nil {
			return Run{}, fmt.Errorf("store: enqueue outbox: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Run{}, fmt.Errorf("store: commit complete run: %w", err)
	}
	return r, nil
}

// Rejudge clears the four lifecycle fields and refreshes run_input/
// correct_output from the problem's current secrets, returning the run to
// the unleased pool at its original submit_time ordering.
func (s *Store) Rejudge(ctx context.Context, runID int64) (Run, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Run{}, fmt.Errorf("store: begin rejudge: %w", err)
	}
	defer tx.Rollback(ctx)

	run, err := scanRun(tx.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1 FOR UPDATE`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("store: rejudge fetch: %w", err)
	}

	problem, err := s.scanProblem(tx.QueryRow(ctx, problemSelectSQL+` WHERE id = $1`, run.ProblemID))
	if err != nil {
		return Run{}, fmt.Errorf("store: rejudge fetch problem: %w", err)
	}

	input := problem.SampleInput
	var correct *string
	if run.IsSubmission {
		input = problem.SecretInput
		out := problem.SecretOutput
		correct = &out
	} else {
		out := problem.SampleOutput
		correct = &out
	}

	const sql = `
		UPDATE runs SET started_execing_time = NULL, finished_execing_time = NULL,
		                run_output = NULL, is_passed = NULL, state = $2,
		                run_input = $3, correct_output = $4
		WHERE id = $1
		RETURNING ` + runColumns
	row := tx.QueryRow(ctx, sql, runID, StateJudging, input, correct)
	r, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("store: rejudge update: %w", err)
	}
	if err := s.appendRunEvent(ctx, tx, runID, "REJUDGED"); err != nil {
		return Run{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Run{}, fmt.Errorf("store: commit rejudge: %w", err)
	}
	return r, nil
}

// CountRecentSubmissions supports the C8 rate limiter.
func (s *Store) CountRecentSubmissions(ctx context.Context, userID int64, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM runs WHERE user_id = $1 AND submit_time > $2`, userID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count recent submissions: %w", err)
	}
	return n, nil
}

// JudgedSubmissionsForContest backs the C7 scoreboard aggregator.
func (s *Store) JudgedSubmissionsForContest(ctx context.Context, contestID int64) ([]Run, error) {
	const sql = `SELECT ` + runColumns + ` FROM runs
		WHERE contest_id = $1 AND is_submission AND finished_execing_time IS NOT NULL
		ORDER BY submit_time ASC, id ASC`
	rows, err := s.pool.Query(ctx, sql, contestID)
	if err != nil {
		return nil, fmt.Errorf("store: judged submissions for contest: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListRunsForUser attaches a caller's own runs to the problem listing (C6 /api/problems).
func (s *Store) ListRunsForUser(ctx context.Context, userID int64) ([]Run, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+runColumns+` FROM runs WHERE user_id = $1 ORDER BY submit_time DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list runs for user: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// dbExec is satisfied by both *pgxpool.Pool and pgx.Tx, used so run events
// can be appended either inline or inside a caller's transaction.
type dbExec interface {
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
}

// appendRunEvent writes an immutable audit row in the same transaction as
// the state change it records, mirroring the teacher's timeline-event
// pattern adapted from a status transition to a lifecycle transition.
func (s *Store) appendRunEvent(ctx context.Context, ex dbExec, runID int64, eventType string) error {
	_, err := ex.Exec(ctx, `INSERT INTO run_events (run_id, event_type, occurred_at) VALUES ($1, $2, now())`, runID, eventType)
	if err != nil {
		return fmt.Errorf("store: append run event: %w", err)
	}
	return nil
}
