package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// UpsertSavedCode overwrites a contestant's autosaved draft for one
// contest/problem/user/language, keyed by the primary key so repeated
// saves never accumulate rows.
func (s *Store) UpsertSavedCode(ctx context.Context, sc SavedCode) (SavedCode, error) {
	var out SavedCode
	err := s.pool.QueryRow(ctx, `
		INSERT INTO saved_code (contest_id, problem_id, user_id, language_id, source_code)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (contest_id, problem_id, user_id, language_id) DO UPDATE SET
			source_code = EXCLUDED.source_code,
			last_updated_time = now()
		RETURNING contest_id, problem_id, user_id, language_id, source_code, last_updated_time`,
		sc.ContestID, sc.ProblemID, sc.UserID, sc.LanguageID, sc.SourceCode).
		Scan(&out.ContestID, &out.ProblemID, &out.UserID, &out.LanguageID, &out.SourceCode, &out.LastUpdatedTime)
	if err != nil {
		return SavedCode{}, fmt.Errorf("store: upsert saved code: %w", err)
	}
	return out, nil
}

func (s *Store) GetSavedCode(ctx context.Context, contestID, problemID, userID, languageID int64) (SavedCode, error) {
	var sc SavedCode
	err := s.pool.QueryRow(ctx, `
		SELECT contest_id, problem_id, user_id, language_id, source_code, last_updated_time
		FROM saved_code WHERE contest_id = $1 AND problem_id = $2 AND user_id = $3 AND language_id = $4`,
		contestID, problemID, userID, languageID).
		Scan(&sc.ContestID, &sc.ProblemID, &sc.UserID, &sc.LanguageID, &sc.SourceCode, &sc.LastUpdatedTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SavedCode{}, ErrNotFound
		}
		return SavedCode{}, fmt.Errorf("store: get saved code: %w", err)
	}
	return sc, nil
}
