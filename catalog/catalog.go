// Package catalog is the thin read boundary the out-of-scope admin
// CRUD collaborators (problem/contest/language forms) expose to the core:
// narrow list/lookup operations, nothing else.
package catalog

import (
	"context"
	"fmt"

	"codecourt/store"
)

// catalogStore is the narrow slice of *store.Store this package needs,
// satisfied implicitly, so tests can supply a fake without a database.
type catalogStore interface {
	ListEnabledLanguages(ctx context.Context) ([]store.Language, error)
	GetLanguage(ctx context.Context, id int64) (store.Language, error)
	ContestsForUser(ctx context.Context, userID int64) ([]int64, error)
	ListEnabledProblemsForContest(ctx context.Context, contestID int64) ([]store.Problem, error)
	ListRunsForUser(ctx context.Context, userID int64) ([]store.Run, error)
	GetContest(ctx context.Context, id int64) (store.Contest, error)
	GetContestByName(ctx context.Context, name string) (store.Contest, error)
	EnrollUserInContest(ctx context.Context, userID, contestID int64) error
}

type Catalog struct {
	store catalogStore
}

func New(s catalogStore) *Catalog {
	return &Catalog{store: s}
}

func (c *Catalog) ListEnabledLanguages(ctx context.Context) ([]store.Language, error) {
	return c.store.ListEnabledLanguages(ctx)
}

func (c *Catalog) GetLanguage(ctx context.Context, id int64) (store.Language, error) {
	return c.store.GetLanguage(ctx, id)
}

var (
	ErrNoContest      = fmt.Errorf("catalog: user has no contest")
	ErrMultipleContests = fmt.Errorf("catalog: user has more than one contest")
)

// ProblemsForUser lists the enabled problems in the caller's single contest
// with the caller's own runs attached, per the /api/problems contract.
func (c *Catalog) ProblemsForUser(ctx context.Context, userID int64) ([]store.Problem, []store.Run, error) {
	contestIDs, err := c.store.ContestsForUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: load contests for user: %w", err)
	}
	if len(contestIDs) == 0 {
		return nil, nil, nil
	}
	problems, err := c.store.ListEnabledProblemsForContest(ctx, contestIDs[0])
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: list contest problems: %w", err)
	}
	runs, err := c.store.ListRunsForUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: list runs for user: %w", err)
	}
	return problems, runs, nil
}

// ContestForUser returns the caller's single contest, per /api/get-contest-info.
func (c *Catalog) ContestForUser(ctx context.Context, userID int64) (store.Contest, error) {
	contestIDs, err := c.store.ContestsForUser(ctx, userID)
	if err != nil {
		return store.Contest{}, fmt.Errorf("catalog: load contests for user: %w", err)
	}
	if len(contestIDs) == 0 {
		return store.Contest{}, ErrNoContest
	}
	if len(contestIDs) > 1 {
		return store.Contest{}, ErrMultipleContests
	}
	return c.store.GetContest(ctx, contestIDs[0])
}

func (c *Catalog) GetContestByName(ctx context.Context, name string) (store.Contest, error) {
	return c.store.GetContestByName(ctx, name)
}

func (c *Catalog) EnrollUser(ctx context.Context, userID, contestID int64) error {
	return c.store.EnrollUserInContest(ctx, userID, contestID)
}
