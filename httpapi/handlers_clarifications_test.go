package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codecourt/store"
)

func withUser(req *http.Request, userID int64) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), ctxKeyUserID, userID))
}

func TestHandleAskAndListClarifications(t *testing.T) {
	srv, fs := testServer(t)
	fs.users[1] = store.User{ID: 1, Username: "asker", Roles: []store.Role{store.RoleDefendant}}
	fs.users[2] = store.User{ID: 2, Username: "other", Roles: []store.Role{store.RoleDefendant}}

	body, err := json.Marshal(askClarificationRequest{Contents: "is output newline-terminated?"})
	require.NoError(t, err)
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/contests/1/clarifications", bytes.NewReader(body)), 1)
	req.SetPathValue("contest_id", "1")
	rec := httptest.NewRecorder()
	srv.handleAskClarification(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var asked clarificationView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &asked))
	assert.False(t, asked.IsPublic)

	listReq := withUser(httptest.NewRequest(http.MethodGet, "/api/contests/1/clarifications", nil), 2)
	listReq.SetPathValue("contest_id", "1")
	listRec := httptest.NewRecorder()
	srv.handleListClarifications(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)
	var out []clarificationView
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &out))
	assert.Empty(t, out, "a private question should not be visible to another contestant")
}

func TestHandleReplyClarificationMakesItPublic(t *testing.T) {
	srv, fs := testServer(t)
	fs.users[1] = store.User{ID: 1, Username: "asker", Roles: []store.Role{store.RoleDefendant}}
	fs.users[2] = store.User{ID: 2, Username: "judge", Roles: []store.Role{store.RoleJudge}}
	fs.users[3] = store.User{ID: 3, Username: "bystander", Roles: []store.Role{store.RoleDefendant}}

	askBody, err := json.Marshal(askClarificationRequest{Contents: "question"})
	require.NoError(t, err)
	askReq := withUser(httptest.NewRequest(http.MethodPost, "/api/contests/1/clarifications", bytes.NewReader(askBody)), 1)
	askReq.SetPathValue("contest_id", "1")
	askRec := httptest.NewRecorder()
	srv.handleAskClarification(askRec, askReq)
	require.Equal(t, http.StatusOK, askRec.Code)
	var asked clarificationView
	require.NoError(t, json.Unmarshal(askRec.Body.Bytes(), &asked))

	replyBody, err := json.Marshal(replyClarificationRequest{Contents: "answer", IsPublic: true})
	require.NoError(t, err)
	replyReq := withUser(httptest.NewRequest(http.MethodPost, "/api/clarifications/1/replies", bytes.NewReader(replyBody)), 2)
	replyReq.SetPathValue("id", strconv.FormatInt(asked.ID, 10))
	replyRec := httptest.NewRecorder()
	srv.handleReplyClarification(replyRec, replyReq)
	require.Equal(t, http.StatusOK, replyRec.Code, replyRec.Body.String())

	listReq := withUser(httptest.NewRequest(http.MethodGet, "/api/contests/1/clarifications", nil), 3)
	listReq.SetPathValue("contest_id", "1")
	listRec := httptest.NewRecorder()
	srv.handleListClarifications(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)
	var out []clarificationView
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &out))
	require.Len(t, out, 1, "expected the public reply visible to an unrelated contestant")
	assert.True(t, out[0].IsPublic)
}
