// Package admission enforces per-user submission rate limits and contest
// time-window admissibility before a Run enters the queue (C8).
package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codecourt/store"
)

var (
	ErrNotDefendant     = errors.New("admission: caller is not a defendant")
	ErrNoContest        = errors.New("admission: caller must have exactly one contest")
	ErrUnknownProblem   = errors.New("admission: problem not in caller's contest")
	ErrRateLimited      = errors.New("admission: rate limit exceeded")
)

type SubmitRequest struct {
	UserID       int64
	ProblemSlug  string
	LanguageID   int64
	SourceCode   string
	IsSubmission bool
	TestInput    *string // contestant-supplied test input, only used when !IsSubmission
	IsPriority   bool
}

// admissionStore is the narrow slice of *store.Store this package needs,
// satisfied implicitly, so tests can supply a fake without a database.
type admissionStore interface {
	GetUserByID(ctx context.Context, id int64) (store.User, error)
	ContestsForUser(ctx context.Context, userID int64) ([]int64, error)
	GetContest(ctx context.Context, id int64) (store.Contest, error)
	ContestHasProblem(ctx context.Context, contestID int64, slug string) (store.Problem, bool, error)
	CountRecentSubmissions(ctx context.Context, userID int64, since time.Time) (int, error)
	CreateRun(ctx context.Context, p store.CreateRunParams) (store.Run, error)
	Rejudge(ctx context.Context, runID int64) (store.Run, error)
}

type configAccessor interface {
	IntOrDefault(ctx context.Context, key string, def int) int
}

type Admission struct {
	store  admissionStore
	config configAccessor
}

func New(s admissionStore, cfg configAccessor) *Admission {
	return &Admission{store: s, config: cfg}
}

// Submit implements the five-step §4.8 procedure.
func (a *Admission) Submit(ctx context.Context, req SubmitRequest) (store.Run, error) {
	user, err := a.store.GetUserByID(ctx, req.UserID)
	if err != nil {
		return store.Run{}, fmt.Errorf("admission: load user: %w", err)
	}
	if !user.HasRole(store.RoleDefendant) {
		return store.Run{}, ErrNotDefendant
	}

	contestIDs, err := a.store.ContestsForUser(ctx, req.UserID)
	if err != nil {
		return store.Run{}, fmt.Errorf("admission: load contests: %w", err)
	}
	if len(contestIDs) != 1 {
		return store.Run{}, ErrNoContest
	}
	contest, err := a.store.GetContest(ctx, contestIDs[0])
	if err != nil {
		return store.Run{}, fmt.Errorf("admission: load contest: %w", err)
	}

	problem, ok, err := a.store.ContestHasProblem(ctx, contest.ID, req.ProblemSlug)
	if err != nil {
		return store.Run{}, fmt.Errorf("admission: load problem: %w", err)
	}
	if !ok {
		return store.Run{}, ErrUnknownProblem
	}

	maxRuns := a.config.IntOrDefault(ctx, "max_user_submissions", 5)
	timeLimitMin := a.config.IntOrDefault(ctx, "user_submission_time_limit", 1)
	since := time.Now().Add(-time.Duration(timeLimitMin) * time.Minute)
	count, err := a.store.CountRecentSubmissions(ctx, req.UserID, since)
	if err != nil {
		return store.Run{}, fmt.Errorf("admission: count recent submissions: %w", err)
	}
	if count > maxRuns {
		return store.Run{}, ErrRateLimited
	}

	now := time.Now()

	if now.After(contest.EndTime) {
		return a.store.CreateRun(ctx, store.CreateRunParams{
			UserID: req.UserID, ContestID: contest.ID, LanguageID: req.LanguageID, ProblemID: problem.ID,
			SourceCode: req.SourceCode, RunInput: problem.SecretInput, IsSubmission: req.IsSubmission,
			State: store.StateContestEnded, Finished: true,
		})
	}
	if now.Before(contest.StartTime) {
		return a.store.CreateRun(ctx, store.CreateRunParams{
			UserID: req.UserID, ContestID: contest.ID, LanguageID: req.LanguageID, ProblemID: problem.ID,
			SourceCode: req.SourceCode, RunInput: problem.SecretInput, IsSubmission: req.IsSubmission,
			State: store.StateContestHasNotBegun, Finished: true,
		})
	}

	input := problem.SampleInput
	var correct *string
	switch {
	case req.IsSubmission:
		input = problem.SecretInput
		out := problem.SecretOutput
		correct = &out
	case req.TestInput != nil:
		input = *req.TestInput
		out := problem.SampleOutput
		correct = &out
	default:
		out := problem.SampleOutput
		correct = &out
	}

	return a.store.CreateRun(ctx, store.CreateRunParams{
		UserID: req.UserID, ContestID: contest.ID, LanguageID: req.LanguageID, ProblemID: problem.ID,
		SourceCode: req.SourceCode, RunInput: input, CorrectOutput: correct,
		IsSubmission: req.IsSubmission, IsPriority: req.IsPriority, State: store.StateJudging,
	})
}

// Rejudge returns a finished submission to the unleased pool.
func (a *Admission) Rejudge(ctx context.Context, runID int64) (store.Run, error) {
	return a.store.Rejudge(ctx, runID)
}
