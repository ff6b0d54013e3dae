package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"codecourt/store"
)

type savedCodeRequest struct {
	LanguageID int64  `json:"language_id"`
	SourceCode string `json:"source_code"`
}

type savedCodeView struct {
	LanguageID      int64  `json:"language_id"`
	SourceCode      string `json:"source_code"`
	LastUpdatedTime string `json:"last_updated_time"`
}

func toSavedCodeView(sc store.SavedCode) savedCodeView {
	return savedCodeView{
		LanguageID:      sc.LanguageID,
		SourceCode:      sc.SourceCode,
		LastUpdatedTime: sc.LastUpdatedTime.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// handleSaveCode implements PUT /api/contests/{contest_id}/problems/{problem_id}/saved-code:
// autosave of a contestant's editor draft, overwritten on every call.
func (s *Server) handleSaveCode(w http.ResponseWriter, r *http.Request) {
	contestID, problemID, ok := contestAndProblemID(w, r)
	if !ok {
		return
	}
	var req savedCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	userID := userIDFromContext(r.Context())
	sc, err := s.store.UpsertSavedCode(r.Context(), store.SavedCode{
		ContestID: contestID, ProblemID: problemID, UserID: userID,
		LanguageID: req.LanguageID, SourceCode: req.SourceCode,
	})
	if err != nil {
		s.log.ErrorContext(r.Context(), "save code failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save code")
		return
	}
	respondJSON(w, http.StatusOK, toSavedCodeView(sc))
}

// handleGetSavedCode implements GET /api/contests/{contest_id}/problems/{problem_id}/saved-code?language_id=.
func (s *Server) handleGetSavedCode(w http.ResponseWriter, r *http.Request) {
	contestID, problemID, ok := contestAndProblemID(w, r)
	if !ok {
		return
	}
	languageID, err := strconv.ParseInt(r.URL.Query().Get("language_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid language_id")
		return
	}

	userID := userIDFromContext(r.Context())
	sc, err := s.store.GetSavedCode(r.Context(), contestID, problemID, userID, languageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondJSON(w, http.StatusOK, savedCodeView{LanguageID: languageID})
			return
		}
		s.log.ErrorContext(r.Context(), "get saved code failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load saved code")
		return
	}
	respondJSON(w, http.StatusOK, toSavedCodeView(sc))
}

func contestAndProblemID(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	contestID, err := strconv.ParseInt(r.PathValue("contest_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid contest_id")
		return 0, 0, false
	}
	problemID, err := strconv.ParseInt(r.PathValue("problem_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid problem_id")
		return 0, 0, false
	}
	return contestID, problemID, true
}
