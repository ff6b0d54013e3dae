package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"codecourt/store"
)

// fakeStore is an in-memory userStore, mirrored after the teacher's
// fakeRepository test double.
type fakeStore struct {
	byUsername map[string]store.User
	byID       map[int64]store.User
	nextID     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{byUsername: map[string]store.User{}, byID: map[int64]store.User{}}
}

func (f *fakeStore) CreateUser(ctx context.Context, p store.CreateUserParams) (store.User, error) {
	if _, exists := f.byUsername[p.Username]; exists {
		return store.User{}, errors.New("duplicate username")
	}
	f.nextID++
	u := store.User{ID: f.nextID, Username: p.Username, Name: p.Name, PasswordHash: p.PasswordHash, Roles: p.Roles}
	f.byUsername[p.Username] = u
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetUserByUsername(ctx context.Context, username string) (store.User, error) {
	u, ok := f.byUsername[username]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id int64) (store.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func TestServiceRegisterAndLogin(t *testing.T) {
	svc := NewService(newFakeStore(), "test-secret")
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{Username: "alice", Name: "Alice", Password: "hunter22", Roles: []store.Role{store.RoleDefendant}})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	result, err := svc.Login(ctx, LoginRequest{Username: "alice", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	userID, err := svc.VerifyToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestServiceLoginWrongPassword(t *testing.T) {
	svc := NewService(newFakeStore(), "test-secret")
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Username: "bob", Name: "Bob", Password: "correcthorse"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Username: "bob", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestServiceRegisterWeakPassword(t *testing.T) {
	svc := NewService(newFakeStore(), "test-secret")
	_, err := svc.Register(context.Background(), RegisterRequest{Username: "carl", Name: "Carl", Password: "short"})
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestServiceVerifyBasicRequiresExecutionerRole(t *testing.T) {
	fs := newFakeStore()
	hash, _ := bcrypt.GenerateFromPassword([]byte("executorpass"), bcrypt.DefaultCost)
	fs.nextID++
	u := store.User{ID: fs.nextID, Username: "exec1", Name: "Executor", PasswordHash: string(hash), Roles: []store.Role{store.RoleExecutioner}}
	fs.byUsername[u.Username] = u
	fs.byID[u.ID] = u

	svc := NewService(fs, "test-secret")
	_, err := svc.VerifyBasic(context.Background(), "exec1", "executorpass")
	require.NoError(t, err, "expected executioner to authenticate")

	_, err = svc.VerifyBasic(context.Background(), "exec1", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
