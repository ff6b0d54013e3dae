package httpapi

import (
	"errors"
	"net/http"

	"codecourt/catalog"
	"codecourt/store"
)

type problemWithRuns struct {
	Slug      string      `json:"slug"`
	Name      string      `json:"name"`
	Statement string      `json:"problem_statement"`
	Sample    sampleBlock `json:"sample"`
	Runs      []runSummary `json:"runs"`
}

type sampleBlock struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

type runSummary struct {
	ID           int64   `json:"id"`
	IsSubmission bool    `json:"is_submission"`
	State        string  `json:"state"`
	IsPassed     *bool   `json:"is_passed,omitempty"`
}

// handleListProblems implements GET /api/problems[/<user_id>]: enabled
// problems for the caller's contest, with the caller's runs attached.
func (s *Server) handleListProblems(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	problems, runs, err := s.catalog.ProblemsForUser(r.Context(), userID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "list problems failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load problems")
		return
	}

	runsByProblem := make(map[int64][]store.Run)
	for _, run := range runs {
		runsByProblem[run.ProblemID] = append(runsByProblem[run.ProblemID], run)
	}

	out := make([]problemWithRuns, 0, len(problems))
	for _, p := range problems {
		var summaries []runSummary
		for _, run := range runsByProblem[p.ID] {
			summaries = append(summaries, runSummary{ID: run.ID, IsSubmission: run.IsSubmission, State: string(run.State), IsPassed: run.IsPassed})
		}
		out = append(out, problemWithRuns{
			Slug:      p.Slug,
			Name:      p.Name,
			Statement: p.ProblemStatement,
			Sample:    sampleBlock{Input: p.SampleInput, Output: p.SampleOutput},
			Runs:      summaries,
		})
	}

	respondJSON(w, http.StatusOK, out)
}

type languageView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// handleListLanguages implements GET /api/languages: enabled languages only.
func (s *Server) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	langs, err := s.catalog.ListEnabledLanguages(r.Context())
	if err != nil {
		s.log.ErrorContext(r.Context(), "list languages failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load languages")
		return
	}
	out := make([]languageView, 0, len(langs))
	for _, l := range langs {
		out = append(out, languageView{ID: l.ID, Name: l.Name})
	}
	respondJSON(w, http.StatusOK, out)
}

type contestView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// handleGetContestInfo implements GET /api/get-contest-info: 500 if the
// caller has more than one contest, 400 if zero.
func (s *Server) handleGetContestInfo(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	contest, err := s.catalog.ContestForUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, catalog.ErrMultipleContests) {
			respondError(w, http.StatusInternalServerError, "caller belongs to more than one contest")
			return
		}
		respondError(w, http.StatusBadRequest, "caller must have exactly one contest")
		return
	}
	respondJSON(w, http.StatusOK, contestView{
		ID:        contest.ID,
		Name:      contest.Name,
		StartTime: contest.StartTime.Format("2006-01-02T15:04:05Z07:00"),
		EndTime:   contest.EndTime.Format("2006-01-02T15:04:05Z07:00"),
	})
}
