package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codecourt/store"
)

type fakeStore struct {
	selectIDs   []int64
	selectIdx   int
	leaseCalls  []int64
	leaseErrFor map[int64]error
	returnedID  int64
	completeArg store.CompletionParams
}

func (f *fakeStore) SelectNextRunID(ctx context.Context) (int64, bool, error) {
	if f.selectIdx >= len(f.selectIDs) {
		return 0, false, nil
	}
	id := f.selectIDs[f.selectIdx]
	f.selectIdx++
	return id, true, nil
}

func (f *fakeStore) LeaseRun(ctx context.Context, id int64) (store.Run, error) {
	f.leaseCalls = append(f.leaseCalls, id)
	if err, ok := f.leaseErrFor[id]; ok {
		return store.Run{}, err
	}
	return store.Run{ID: id}, nil
}

func (f *fakeStore) ReturnRun(ctx context.Context, runID int64) error {
	f.returnedID = runID
	return nil
}

func (f *fakeStore) CompleteRun(ctx context.Context, p store.CompletionParams) (store.Run, error) {
	f.completeArg = p
	return store.Run{ID: p.RunID, State: p.State}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLeaseReturnsUnavailableWhenEmpty(t *testing.T) {
	q := New(&fakeStore{}, testLogger())
	_, err := q.Lease(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLeaseRetriesOnConflict(t *testing.T) {
	fs := &fakeStore{
		selectIDs:   []int64{1, 2},
		leaseErrFor: map[int64]error{1: store.ErrConflict},
	}
	q := New(fs, testLogger())
	run, err := q.Lease(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), run.ID, "expected run 2 to be leased after losing the race on 1")
	assert.Len(t, fs.leaseCalls, 2, "expected two lease attempts")
}

func TestLeasePropagatesOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	fs := &fakeStore{selectIDs: []int64{1}, leaseErrFor: map[int64]error{1: boom}}
	q := New(fs, testLogger())
	_, err := q.Lease(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable, "expected a wrapped non-conflict error")
}

func TestReturnDelegatesToStore(t *testing.T) {
	fs := &fakeStore{}
	q := New(fs, testLogger())
	require.NoError(t, q.Return(context.Background(), 42))
	assert.Equal(t, int64(42), fs.returnedID)
}

func TestCompleteDelegatesToStore(t *testing.T) {
	fs := &fakeStore{}
	q := New(fs, testLogger())
	run, err := q.Complete(context.Background(), store.CompletionParams{RunID: 7, State: store.StateSuccessful})
	require.NoError(t, err)
	assert.Equal(t, int64(7), run.ID)
	assert.Equal(t, store.StateSuccessful, run.State)
	assert.Equal(t, int64(7), fs.completeArg.RunID, "store did not receive completion params")
}
