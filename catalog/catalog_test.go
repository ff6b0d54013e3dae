package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codecourt/store"
)

type fakeStore struct {
	contestsForUser map[int64][]int64
	problems        map[int64][]store.Problem
	runsForUser     map[int64][]store.Run
	contests        map[int64]store.Contest
	contestsByName  map[string]store.Contest
	enrolled        []struct{ userID, contestID int64 }
}

func (f *fakeStore) ListEnabledLanguages(ctx context.Context) ([]store.Language, error) { return nil, nil }
func (f *fakeStore) GetLanguage(ctx context.Context, id int64) (store.Language, error)  { return store.Language{}, nil }

func (f *fakeStore) ContestsForUser(ctx context.Context, userID int64) ([]int64, error) {
	return f.contestsForUser[userID], nil
}

func (f *fakeStore) ListEnabledProblemsForContest(ctx context.Context, contestID int64) ([]store.Problem, error) {
	return f.problems[contestID], nil
}

func (f *fakeStore) ListRunsForUser(ctx context.Context, userID int64) ([]store.Run, error) {
	return f.runsForUser[userID], nil
}

func (f *fakeStore) GetContest(ctx context.Context, id int64) (store.Contest, error) {
	c, ok := f.contests[id]
	if !ok {
		return store.Contest{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) GetContestByName(ctx context.Context, name string) (store.Contest, error) {
	c, ok := f.contestsByName[name]
	if !ok {
		return store.Contest{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) EnrollUserInContest(ctx context.Context, userID, contestID int64) error {
	f.enrolled = append(f.enrolled, struct{ userID, contestID int64 }{userID, contestID})
	return nil
}

func TestProblemsForUserJoinsProblemsAndRuns(t *testing.T) {
	fs := &fakeStore{
		contestsForUser: map[int64][]int64{1: {10}},
		problems:        map[int64][]store.Problem{10: {{ID: 100, Slug: "a"}}},
		runsForUser:     map[int64][]store.Run{1: {{ID: 1000, ProblemID: 100}}},
	}
	c := New(fs)
	problems, runs, err := c.ProblemsForUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "a", problems[0].Slug)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(1000), runs[0].ID)
}

func TestProblemsForUserWithNoContestReturnsEmpty(t *testing.T) {
	fs := &fakeStore{}
	c := New(fs)
	problems, runs, err := c.ProblemsForUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, problems, "expected nil problems for an unenrolled caller")
	assert.Nil(t, runs, "expected nil runs for an unenrolled caller")
}

func TestContestForUserSentinelErrors(t *testing.T) {
	fs := &fakeStore{contestsForUser: map[int64][]int64{1: {}, 2: {10, 20}}}
	c := New(fs)

	_, err := c.ContestForUser(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoContest)

	_, err = c.ContestForUser(context.Background(), 2)
	assert.ErrorIs(t, err, ErrMultipleContests)
}

func TestEnrollUserDelegatesToStore(t *testing.T) {
	fs := &fakeStore{}
	c := New(fs)
	require.NoError(t, c.EnrollUser(context.Background(), 1, 10))
	require.Len(t, fs.enrolled, 1)
	assert.Equal(t, int64(1), fs.enrolled[0].userID)
	assert.Equal(t, int64(10), fs.enrolled[0].contestID)
}
