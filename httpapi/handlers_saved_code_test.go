package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleSaveAndGetCodeRoundTrips(t *testing.T) {
	srv, _ := testServer(t)

	body, err := json.Marshal(savedCodeRequest{LanguageID: 5, SourceCode: "print('hi')"})
	require.NoError(t, err)
	putReq := withUser(httptest.NewRequest(http.MethodPut, "/api/contests/1/problems/2/saved-code", bytes.NewReader(body)), 9)
	putReq.SetPathValue("contest_id", "1")
	putReq.SetPathValue("problem_id", "2")
	putRec := httptest.NewRecorder()
	srv.handleSaveCode(putRec, putReq)
	require.Equal(t, http.StatusOK, putRec.Code, putRec.Body.String())

	getReq := withUser(httptest.NewRequest(http.MethodGet, "/api/contests/1/problems/2/saved-code?language_id=5", nil), 9)
	getReq.SetPathValue("contest_id", "1")
	getReq.SetPathValue("problem_id", "2")
	getRec := httptest.NewRecorder()
	srv.handleGetSavedCode(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)
	var out savedCodeView
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &out))
	assert.Equal(t, "print('hi')", out.SourceCode)
}

func TestHandleGetSavedCodeMissingReturnsEmptyDraft(t *testing.T) {
	srv, _ := testServer(t)

	getReq := withUser(httptest.NewRequest(http.MethodGet, "/api/contests/1/problems/2/saved-code?language_id=5", nil), 9)
	getReq.SetPathValue("contest_id", "1")
	getReq.SetPathValue("problem_id", "2")
	getRec := httptest.NewRecorder()
	srv.handleGetSavedCode(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)
	var out savedCodeView
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &out))
	assert.Empty(t, out.SourceCode)
}
