package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"codecourt/auth"
	"codecourt/catalog"
	"codecourt/clarify"
	"codecourt/config"
	"codecourt/judge/admission"
	"codecourt/judge/queue"
	"codecourt/scoreboard"
	"codecourt/store"
)

// fakeStore backs every narrow interface the httpapi layer's collaborators
// depend on, letting the whole handler chain run against in-memory fixtures
// rather than a database, mirroring the teacher's stubBrokerRepo/
// stubMatchService style in cmd/api/main_test.go.
type fakeStore struct {
	users       map[int64]store.User
	usersByName map[string]store.User
	contests    map[int64]fakeContest
	problems    map[int64]store.Problem
	runs        map[int64]store.Run
	config      map[string]store.Configuration
	savedCode   map[string]store.SavedCode
	clarifications map[int64]store.Clarification
	nextUserID  int64
	nextRunID   int64
	nextClarificationID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[int64]store.User),
		usersByName: make(map[string]store.User),
		contests:    make(map[int64]fakeContest),
		problems:    make(map[int64]store.Problem),
		runs:        make(map[int64]store.Run),
		config:      make(map[string]store.Configuration),
		savedCode:   make(map[string]store.SavedCode),
		clarifications: make(map[int64]store.Clarification),
		nextUserID:  1,
		nextRunID:   1,
	}
}

func (f *fakeStore) GetUserByID(ctx context.Context, id int64) (store.User, error) {
	u, ok := f.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByUsername(ctx context.Context, username string) (store.User, error) {
	u, ok := f.usersByName[username]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) CreateUser(ctx context.Context, p store.CreateUserParams) (store.User, error) {
	if _, exists := f.usersByName[p.Username]; exists {
		return store.User{}, store.ErrIntegrity
	}
	u := store.User{ID: f.nextUserID, Username: p.Username, Name: p.Name, PasswordHash: p.PasswordHash, Roles: p.Roles}
	f.users[u.ID] = u
	f.usersByName[u.Username] = u
	f.nextUserID++
	return u, nil
}

func (f *fakeStore) GetLanguage(ctx context.Context, id int64) (store.Language, error) {
	return store.Language{ID: id, Name: "python3"}, nil
}

func (f *fakeStore) GetRun(ctx context.Context, id int64) (store.Run, error) {
	r, ok := f.runs[id]
	if !ok {
		return store.Run{}, store.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) ContestsForUser(ctx context.Context, userID int64) ([]int64, error) {
	var out []int64
	for id, c := range f.contests {
		for _, uid := range c.enrolledUsers {
			if uid == userID {
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GetContest(ctx context.Context, id int64) (store.Contest, error) {
	c, ok := f.contests[id]
	if !ok {
		return store.Contest{}, store.ErrNotFound
	}
	return c.Contest, nil
}

func (f *fakeStore) GetContestByName(ctx context.Context, name string) (store.Contest, error) {
	for _, c := range f.contests {
		if c.Name == name {
			return c.Contest, nil
		}
	}
	return store.Contest{}, store.ErrNotFound
}

func (f *fakeStore) ContestHasProblem(ctx context.Context, contestID int64, slug string) (store.Problem, bool, error) {
	c, ok := f.contests[contestID]
	if !ok {
		return store.Problem{}, false, nil
	}
	for _, pid := range c.problemIDs {
		if p, ok := f.problems[pid]; ok && p.Slug == slug {
			return p, true, nil
		}
	}
	return store.Problem{}, false, nil
}

func (f *fakeStore) ListEnabledProblemsForContest(ctx context.Context, contestID int64) ([]store.Problem, error) {
	c := f.contests[contestID]
	var out []store.Problem
	for _, pid := range c.problemIDs {
		out = append(out, f.problems[pid])
	}
	return out, nil
}

func (f *fakeStore) ListEnabledLanguages(ctx context.Context) ([]store.Language, error) {
	return []store.Language{{ID: 1, Name: "python3", IsEnabled: true}}, nil
}

func (f *fakeStore) ListRunsForUser(ctx context.Context, userID int64) ([]store.Run, error) {
	var out []store.Run
	for _, r := range f.runs {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) EnrollUserInContest(ctx context.Context, userID, contestID int64) error {
	c := f.contests[contestID]
	c.enrolledUsers = append(c.enrolledUsers, userID)
	f.contests[contestID] = c
	return nil
}

func (f *fakeStore) CountRecentSubmissions(ctx context.Context, userID int64, since time.Time) (int, error) {
	return 0, nil
}

func (f *fakeStore) CreateRun(ctx context.Context, p store.CreateRunParams) (store.Run, error) {
	r := store.Run{
		ID: f.nextRunID, UserID: p.UserID, ContestID: p.ContestID, LanguageID: p.LanguageID,
		ProblemID: p.ProblemID, SourceCode: p.SourceCode, RunInput: p.RunInput,
		CorrectOutput: p.CorrectOutput, IsSubmission: p.IsSubmission, IsPriority: p.IsPriority, State: p.State,
	}
	f.runs[r.ID] = r
	f.nextRunID++
	return r, nil
}

func (f *fakeStore) Rejudge(ctx context.Context, runID int64) (store.Run, error) {
	r := f.runs[runID]
	r.State = store.StateJudging
	f.runs[runID] = r
	return r, nil
}

func (f *fakeStore) JudgedSubmissionsForContest(ctx context.Context, contestID int64) ([]store.Run, error) {
	var out []store.Run
	for _, r := range f.runs {
		if r.ContestID == contestID && r.IsSubmission && r.FinishedExecingTime != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) GetProblem(ctx context.Context, id int64) (store.Problem, error) {
	return f.problems[id], nil
}

func (f *fakeStore) SelectNextRunID(ctx context.Context) (int64, bool, error) { return 0, false, nil }
func (f *fakeStore) LeaseRun(ctx context.Context, id int64) (store.Run, error) {
	return store.Run{}, store.ErrConflict
}
func (f *fakeStore) ReturnRun(ctx context.Context, runID int64) error { return nil }
func (f *fakeStore) CompleteRun(ctx context.Context, p store.CompletionParams) (store.Run, error) {
	return store.Run{}, nil
}

func (f *fakeStore) GetConfiguration(ctx context.Context, key string) (store.Configuration, error) {
	c, ok := f.config[key]
	if !ok {
		return store.Configuration{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) SetConfiguration(ctx context.Context, c store.Configuration) error {
	f.config[c.Key] = c
	return nil
}

func savedCodeKey(contestID, problemID, userID, languageID int64) string {
	return fmt.Sprintf("%d:%d:%d:%d", contestID, problemID, userID, languageID)
}

func (f *fakeStore) UpsertSavedCode(ctx context.Context, sc store.SavedCode) (store.SavedCode, error) {
	f.savedCode[savedCodeKey(sc.ContestID, sc.ProblemID, sc.UserID, sc.LanguageID)] = sc
	return sc, nil
}

func (f *fakeStore) GetSavedCode(ctx context.Context, contestID, problemID, userID, languageID int64) (store.SavedCode, error) {
	sc, ok := f.savedCode[savedCodeKey(contestID, problemID, userID, languageID)]
	if !ok {
		return store.SavedCode{}, store.ErrNotFound
	}
	return sc, nil
}

func (f *fakeStore) CreateClarification(ctx context.Context, p store.CreateClarificationParams) (store.Clarification, error) {
	f.nextClarificationID++
	c := store.Clarification{
		ID: f.nextClarificationID, ContestID: p.ContestID, ProblemID: p.ProblemID,
		AskerUserID: p.AskerUserID, ParentID: p.ParentID, Contents: p.Contents, IsPublic: p.IsPublic,
	}
	f.clarifications[c.ID] = c
	return c, nil
}

func (f *fakeStore) ListClarificationsForContest(ctx context.Context, contestID, askerUserID int64, allowPrivate bool) ([]store.Clarification, error) {
	var out []store.Clarification
	for _, c := range f.clarifications {
		if c.ContestID != contestID {
			continue
		}
		if allowPrivate || c.IsPublic || c.AskerUserID == askerUserID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) GetClarification(ctx context.Context, id int64) (store.Clarification, error) {
	c, ok := f.clarifications[id]
	if !ok {
		return store.Clarification{}, store.ErrNotFound
	}
	return c, nil
}

// fakeContest wraps store.Contest with the join-table state a real database
// would hold in separate tables.
type fakeContest struct {
	store.Contest
	enrolledUsers []int64
	problemIDs    []int64
}

func testServer(t *testing.T) (*Server, *fakeStore) {
	t.Helper()
	fs := newFakeStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	authSvc := auth.NewService(fs, "test-secret")
	q := queue.New(fs, log)
	cfg := config.New(fs)
	adm := admission.New(fs, cfg)
	sb := scoreboard.New(fs)
	cat := catalog.New(fs)
	cl := clarify.New(fs)

	return New(fs, authSvc, q, adm, sb, cat, cl, cfg, log), fs
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	require.NoError(t, err, "hash password")
	return string(h)
}

func TestHandleLoginSuccessAndFailure(t *testing.T) {
	srv, fs := testServer(t)
	u := store.User{ID: 1, Username: "alice", Name: "Alice", PasswordHash: mustHash(t, "hunter2hunter")}
	fs.users[u.ID] = u
	fs.usersByName[u.Username] = u

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "hunter2hunter"})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleLogin(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out["access_token"])

	badBody, _ := json.Marshal(map[string]string{"username": "alice", "password": "wrong"})
	req2 := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(badBody))
	rec2 := httptest.NewRecorder()
	srv.handleLogin(rec2, req2)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code, "expected 401 for wrong password")
}

func TestHandleSubmitRunRejectsUnknownProblem(t *testing.T) {
	srv, fs := testServer(t)
	fs.users[1] = store.User{ID: 1, Roles: []store.Role{store.RoleDefendant}}
	fs.contests[10] = fakeContest{
		Contest:       store.Contest{ID: 10, StartTime: time.Now().Add(-time.Hour), EndTime: time.Now().Add(time.Hour)},
		enrolledUsers: []int64{1},
	}

	body, _ := json.Marshal(submitRunRequest{ProblemSlug: "nope", SourceCode: "print(1)"})
	req := httptest.NewRequest(http.MethodPost, "/api/submit-run", bytes.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), ctxKeyUserID, int64(1)))
	rec := httptest.NewRecorder()
	srv.handleSubmitRun(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestHandleSubmitRunAdmitsKnownProblem(t *testing.T) {
	srv, fs := testServer(t)
	fs.users[1] = store.User{ID: 1, Roles: []store.Role{store.RoleDefendant}}
	fs.problems[20] = store.Problem{ID: 20, Slug: "fizzbuzz", SampleInput: "3", SampleOutput: "Fizz\n"}
	fc := fakeContest{Contest: store.Contest{ID: 10, StartTime: time.Now().Add(-time.Hour), EndTime: time.Now().Add(time.Hour)}}
	fc.enrolledUsers = []int64{1}
	fc.problemIDs = []int64{20}
	fs.contests[10] = fc

	body, _ := json.Marshal(submitRunRequest{ProblemSlug: "fizzbuzz", SourceCode: "print(1)"})
	req := httptest.NewRequest(http.MethodPost, "/api/submit-run", bytes.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), ctxKeyUserID, int64(1)))
	rec := httptest.NewRecorder()
	srv.handleSubmitRun(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out submitRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, string(store.StateJudging), out.State)
}

func TestHandleCurrentUser(t *testing.T) {
	srv, fs := testServer(t)
	fs.users[1] = store.User{ID: 1, Username: "alice", Name: "Alice", Roles: []store.Role{store.RoleDefendant}}

	req := httptest.NewRequest(http.MethodGet, "/api/current-user", nil)
	req = req.WithContext(context.WithValue(req.Context(), ctxKeyUserID, int64(1)))
	rec := httptest.NewRecorder()
	srv.handleCurrentUser(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var out userProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "alice", out.Username)
}

func TestHandleScoresEmptyContest(t *testing.T) {
	srv, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/scores/10", nil)
	req.SetPathValue("contest_id", "10")
	rec := httptest.NewRecorder()
	srv.handleScores(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var out []standingView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Empty(t, out)
}
