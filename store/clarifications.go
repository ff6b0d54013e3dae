package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type CreateClarificationParams struct {
	ContestID   int64
	ProblemID   *int64
	AskerUserID int64
	ParentID    *int64
	Contents    string
	IsPublic    bool
}

func (s *Store) CreateClarification(ctx context.Context, p CreateClarificationParams) (Clarification, error) {
	var c Clarification
	err := s.pool.QueryRow(ctx, `
		INSERT INTO clarifications (contest_id, problem_id, asker_user_id, parent_id, contents, is_public)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, contest_id, problem_id, asker_user_id, parent_id, contents, creation_time, is_public`,
		p.ContestID, p.ProblemID, p.AskerUserID, p.ParentID, p.Contents, p.IsPublic).
		Scan(&c.ID, &c.ContestID, &c.ProblemID, &c.AskerUserID, &c.ParentID, &c.Contents, &c.CreationTime, &c.IsPublic)
	if err != nil {
		return Clarification{}, fmt.Errorf("store: create clarification: %w", err)
	}
	return c, nil
}

// ListClarificationsForContest returns every clarification row visible to a
// contestant: their own questions and replies (regardless of visibility)
// plus every public row. Judges/operators should call it with
// allowPrivate=true to see the full thread.
func (s *Store) ListClarificationsForContest(ctx context.Context, contestID, askerUserID int64, allowPrivate bool) ([]Clarification, error) {
	query := `
		SELECT id, contest_id, problem_id, asker_user_id, parent_id, contents, creation_time, is_public
		FROM clarifications WHERE contest_id = $1`
	args := []any{contestID}
	if !allowPrivate {
		query += ` AND (is_public OR asker_user_id = $2)`
		args = append(args, askerUserID)
	}
	query += ` ORDER BY creation_time`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list clarifications: %w", err)
	}
	defer rows.Close()

	var out []Clarification
	for rows.Next() {
		var c Clarification
		if err := rows.Scan(&c.ID, &c.ContestID, &c.ProblemID, &c.AskerUserID, &c.ParentID, &c.Contents, &c.CreationTime, &c.IsPublic); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetClarification(ctx context.Context, id int64) (Clarification, error) {
	var c Clarification
	err := s.pool.QueryRow(ctx, `
		SELECT id, contest_id, problem_id, asker_user_id, parent_id, contents, creation_time, is_public
		FROM clarifications WHERE id = $1`, id).
		Scan(&c.ID, &c.ContestID, &c.ProblemID, &c.AskerUserID, &c.ParentID, &c.Contents, &c.CreationTime, &c.IsPublic)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Clarification{}, ErrNotFound
		}
		return Clarification{}, fmt.Errorf("store: get clarification: %w", err)
	}
	return c, nil
}
