// Package clarify is the contestant Q&A / announcement thread: a
// contestant asks a question against their contest (optionally scoped to
// one problem) and a judge replies, optionally marking the reply public so
// it reads as a contest-wide announcement.
package clarify

import (
	"context"
	"errors"
	"fmt"

	"codecourt/store"
)

// clarifyStore is the narrow slice of *store.Store this package needs,
// satisfied implicitly, so tests can supply a fake without a database.
type clarifyStore interface {
	CreateClarification(ctx context.Context, p store.CreateClarificationParams) (store.Clarification, error)
	ListClarificationsForContest(ctx context.Context, contestID, askerUserID int64, allowPrivate bool) ([]store.Clarification, error)
	GetClarification(ctx context.Context, id int64) (store.Clarification, error)
}

var ErrNotAThread = errors.New("clarify: parent belongs to a different contest")

type Service struct {
	store clarifyStore
}

func New(s clarifyStore) *Service {
	return &Service{store: s}
}

// Ask files a new top-level question. problemID nil scopes it contest-wide.
func (s *Service) Ask(ctx context.Context, contestID int64, problemID *int64, askerUserID int64, contents string) (store.Clarification, error) {
	return s.store.CreateClarification(ctx, store.CreateClarificationParams{
		ContestID:   contestID,
		ProblemID:   problemID,
		AskerUserID: askerUserID,
		Contents:    contents,
	})
}

// Reply answers an existing clarification. isPublic broadcasts the reply to
// every contestant in the contest rather than just the original asker.
func (s *Service) Reply(ctx context.Context, parentID int64, replierUserID int64, contents string, isPublic bool) (store.Clarification, error) {
	parent, err := s.store.GetClarification(ctx, parentID)
	if err != nil {
		return store.Clarification{}, fmt.Errorf("clarify: load parent: %w", err)
	}
	return s.store.CreateClarification(ctx, store.CreateClarificationParams{
		ContestID:   parent.ContestID,
		ProblemID:   parent.ProblemID,
		AskerUserID: replierUserID,
		ParentID:    &parentID,
		Contents:    contents,
		IsPublic:    isPublic,
	})
}

// Thread returns every clarification a caller may see for a contest: public
// rows plus the caller's own. Judges pass allowPrivate=true for the full
// moderation view.
func (s *Service) Thread(ctx context.Context, contestID, callerUserID int64, allowPrivate bool) ([]store.Clarification, error) {
	return s.store.ListClarificationsForContest(ctx, contestID, callerUserID, allowPrivate)
}
