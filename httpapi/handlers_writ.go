package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"codecourt/judge/compare"
	"codecourt/judge/queue"
	"codecourt/store"
)

type writResponse struct {
	Status     string `json:"status"`
	SourceCode string `json:"source_code,omitempty"`
	Language   string `json:"language,omitempty"`
	RunScript  string `json:"run_script,omitempty"`
	Input      string `json:"input,omitempty"`
	RunID      int64  `json:"run_id,omitempty"`
	ReturnURL  string `json:"return_url,omitempty"`
}

// handleGetWrit implements GET /api/get-writ: leases the next candidate
// run (C3) and returns it as a writ carrying no secret outputs.
func (s *Server) handleGetWrit(w http.ResponseWriter, r *http.Request) {
	run, err := s.queue.Lease(r.Context())
	if err != nil {
		if errors.Is(err, queue.ErrUnavailable) {
			respondJSON(w, http.StatusOK, writResponse{Status: "unavailable"})
			return
		}
		s.log.ErrorContext(r.Context(), "get-writ lease failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to lease a run")
		return
	}

	lang, err := s.store.GetLanguage(r.Context(), run.LanguageID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "get-writ load language failed", "error", err, "run_id", run.ID)
		respondError(w, http.StatusInternalServerError, "failed to load language")
		return
	}

	respondJSON(w, http.StatusOK, writResponse{
		Status:     "found",
		SourceCode: run.SourceCode,
		Language:   lang.Name,
		RunScript:  lang.RunScript,
		Input:      run.RunInput,
		RunID:      run.ID,
		ReturnURL:  fmt.Sprintf("/api/submit-writ/%d", run.ID),
	})
}

type submitWritRequest struct {
	Output string  `json:"output"`
	State  *string `json:"state"`
}

var terminalReasonStates = map[string]store.RunState{
	string(store.StateTimedOut):            store.StateTimedOut,
	string(store.StateOutputLimitExceeded): store.StateOutputLimitExceeded,
	string(store.StateNoOutput):            store.StateNoOutput,
}

// handleSubmitWrit implements POST /api/submit-writ/{run_id}. The optional
// state field is advisory: it classifies the terminal reason, but is_passed
// is always computed server-side by the comparator.
func (s *Server) handleSubmitWrit(w http.ResponseWriter, r *http.Request) {
	runID, err := strconv.ParseInt(r.PathValue("run_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid run_id")
		return
	}

	var req submitWritRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "run not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if run.IsJudged() {
		respondError(w, http.StatusBadRequest, "run already finished")
		return
	}

	finalState := store.StateExecuted
	if req.State != nil {
		if reason, ok := terminalReasonStates[*req.State]; ok {
			finalState = reason
		}
	}

	var isPassed *bool
	if run.IsSubmission && run.CorrectOutput != nil {
		strict := s.config.BoolOrDefault(r.Context(), "strict_whitespace_diffing", false)
		passed := compare.Compare(req.Output, *run.CorrectOutput, strict)
		isPassed = &passed
		if finalState == store.StateExecuted {
			if passed {
				finalState = store.StateSuccessful
			} else {
				finalState = store.StateFailed
			}
		}
	}

	_, err = s.queue.Complete(r.Context(), store.CompletionParams{
		RunID: runID, Output: req.Output, State: finalState, IsPassed: isPassed,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			respondError(w, http.StatusBadRequest, "run already finished")
			return
		}
		s.log.ErrorContext(r.Context(), "submit-writ complete failed", "error", err, "run_id", runID)
		respondError(w, http.StatusInternalServerError, "failed to record verdict")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReturnWithoutRun implements POST /api/return-without-run/{run_id}:
// the executor's own sandbox-internal-failure release path.
func (s *Server) handleReturnWithoutRun(w http.ResponseWriter, r *http.Request) {
	runID, err := strconv.ParseInt(r.PathValue("run_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid run_id")
		return
	}

	if err := s.queue.Return(r.Context(), runID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "run not found")
			return
		}
		if errors.Is(err, store.ErrConflict) {
			respondError(w, http.StatusBadRequest, "run already finished")
			return
		}
		s.log.ErrorContext(r.Context(), "return-without-run failed", "error", err, "run_id", runID)
		respondError(w, http.StatusInternalServerError, "failed to return run")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
