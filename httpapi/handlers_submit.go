package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"codecourt/judge/admission"
	"codecourt/store"
)

type submitRunRequest struct {
	ProblemSlug  string  `json:"problem_slug"`
	LanguageID   int64   `json:"language_id"`
	SourceCode   string  `json:"source_code"`
	IsSubmission bool    `json:"is_submission"`
	TestInput    *string `json:"test_input"`
}

type submitRunResponse struct {
	RunID int64  `json:"run_id"`
	State string `json:"state"`
}

// handleSubmitRun implements POST /api/submit-run (C8 Admission).
func (s *Server) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var req submitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.ProblemSlug == "" || req.SourceCode == "" {
		respondError(w, http.StatusBadRequest, "problem_slug and source_code are required")
		return
	}

	userID := userIDFromContext(r.Context())
	run, err := s.admission.Submit(r.Context(), admission.SubmitRequest{
		UserID:       userID,
		ProblemSlug:  req.ProblemSlug,
		LanguageID:   req.LanguageID,
		SourceCode:   req.SourceCode,
		IsSubmission: req.IsSubmission,
		TestInput:    req.TestInput,
	})

	switch {
	case err == nil:
		// §4.8 steps 3-4 persist a CONTEST_ENDED/CONTEST_HAS_NOT_BEGUN run
		// without error but still reject the request with 400; no writ is
		// ever leased for such a run since it's created already finished.
		if run.State == store.StateContestEnded || run.State == store.StateContestHasNotBegun {
			respondJSON(w, http.StatusBadRequest, submitRunResponse{RunID: run.ID, State: string(run.State)})
			return
		}
		respondJSON(w, http.StatusOK, submitRunResponse{RunID: run.ID, State: string(run.State)})
	case errors.Is(err, admission.ErrNotDefendant), errors.Is(err, admission.ErrNoContest), errors.Is(err, admission.ErrUnknownProblem):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, admission.ErrRateLimited):
		respondError(w, http.StatusBadRequest, "rate limit exceeded")
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.ErrorContext(r.Context(), "submit-run failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to admit run")
	}
}
