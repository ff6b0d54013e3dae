package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Languages

func (s *Store) ListEnabledLanguages(ctx context.Context) ([]Language, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, is_enabled, run_script, syntax_mode, default_template
		FROM languages WHERE is_enabled ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list languages: %w", err)
	}
	defer rows.Close()
	var out []Language
	for rows.Next() {
		var l Language
		if err := rows.Scan(&l.ID, &l.Name, &l.IsEnabled, &l.RunScript, &l.SyntaxMode, &l.DefaultTemplate); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) GetLanguage(ctx context.Context, id int64) (Language, error) {
	var l Language
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, is_enabled, run_script, syntax_mode, default_template
		FROM languages WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.IsEnabled, &l.RunScript, &l.SyntaxMode, &l.DefaultTemplate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Language{}, ErrNotFound
		}
		return Language{}, fmt.Errorf("store: get language: %w", err)
	}
	return l, nil
}

// UpsertLanguage creates or updates a language by name, for operator-provided
// seed data applied at boot rather than through the admin API.
func (s *Store) UpsertLanguage(ctx context.Context, l Language) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO languages (name, is_enabled, run_script, syntax_mode, default_template)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (name) DO UPDATE SET
			is_enabled = EXCLUDED.is_enabled,
			run_script = EXCLUDED.run_script,
			syntax_mode = EXCLUDED.syntax_mode,
			default_template = EXCLUDED.default_template`,
		l.Name, l.IsEnabled, l.RunScript, l.SyntaxMode, l.DefaultTemplate)
	if err != nil {
		return fmt.Errorf("store: upsert language %s: %w", l.Name, err)
	}
	return nil
}

// UpsertProblemType creates or updates a problem type by name, mirroring
// UpsertLanguage for the same seed-loading path.
func (s *Store) UpsertProblemType(ctx context.Context, pt ProblemType) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO problem_types (name, eval_script)
		VALUES ($1,$2)
		ON CONFLICT (name) DO UPDATE SET eval_script = EXCLUDED.eval_script`,
		pt.Name, pt.EvalScript)
	if err != nil {
		return fmt.Errorf("store: upsert problem type %s: %w", pt.Name, err)
	}
	return nil
}

// Problems

func (s *Store) GetProblemBySlug(ctx context.Context, slug string) (Problem, error) {
	p, err := s.scanProblem(s.pool.QueryRow(ctx, problemSelectSQL+` WHERE slug = $1`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return Problem{}, ErrNotFound
	}
	return p, err
}

func (s *Store) GetProblem(ctx context.Context, id int64) (Problem, error) {
	p, err := s.scanProblem(s.pool.QueryRow(ctx, problemSelectSQL+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Problem{}, ErrNotFound
	}
	return p, err
}

const problemSelectSQL = `
	SELECT id, problem_type_id, slug, name, problem_statement, sample_input,
	       sample_output, secret_input, secret_output, is_enabled
	FROM problems`

func (s *Store) scanProblem(row pgx.Row) (Problem, error) {
	var p Problem
	err := row.Scan(&p.ID, &p.ProblemTypeID, &p.Slug, &p.Name, &p.ProblemStatement,
		&p.SampleInput, &p.SampleOutput, &p.SecretInput, &p.SecretOutput, &p.IsEnabled)
	if err != nil {
		return Problem{}, fmt.Errorf("store: scan problem: %w", err)
	}
	return p, nil
}

// ListEnabledProblemsForContest returns the problems enrolled in a contest, enabled only.
func (s *Store) ListEnabledProblemsForContest(ctx context.Context, contestID int64) ([]Problem, error) {
	rows, err := s.pool.Query(ctx, problemSelectSQL+`
		JOIN contest_problem cp ON cp.problem_id = problems.id
		WHERE cp.contest_id = $1 AND is_enabled ORDER BY slug`, contestID)
	if err != nil {
		return nil, fmt.Errorf("store: list contest problems: %w", err)
	}
	defer rows.Close()
	var out []Problem
	for rows.Next() {
		p, err := s.scanProblem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ContestHasProblem(ctx context.Context, contestID int64, slug string) (Problem, bool, error) {
	p, err := s.scanProblem(s.pool.QueryRow(ctx, problemSelectSQL+`
		JOIN contest_problem cp ON cp.problem_id = problems.id
		WHERE cp.contest_id = $1 AND problems.slug = $2`, contestID, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return Problem{}, false, nil
	}
	if err != nil {
		return Problem{}, false, err
	}
	return p, true, nil
}

// Contests

func (s *Store) GetContest(ctx context.Context, id int64) (Contest, error) {
	c, err := s.scanContest(s.pool.QueryRow(ctx, contestSelectSQL+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Contest{}, ErrNotFound
	}
	return c, err
}

const contestSelectSQL = `
	SELECT id, name, activate_time, start_time, freeze_time, end_time, deactivate_time, is_public
	FROM contests`

func (s *Store) scanContest(row pgx.Row) (Contest, error) {
	var c Contest
	err := row.Scan(&c.ID, &c.Name, &c.ActivateTime, &c.StartTime, &c.FreezeTime, &c.EndTime, &c.DeactivateTime, &c.IsPublic)
	if err != nil {
		return Contest{}, fmt.Errorf("store: scan contest: %w", err)
	}
	return c, nil
}

func (s *Store) GetContestByName(ctx context.Context, name string) (Contest, error) {
	c, err := s.scanContest(s.pool.QueryRow(ctx, contestSelectSQL+` WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return Contest{}, ErrNotFound
	}
	return c, err
}
