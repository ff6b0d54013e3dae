package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"codecourt/store"
)

type askClarificationRequest struct {
	ProblemID *int64 `json:"problem_id"`
	Contents  string `json:"contents"`
}

type replyClarificationRequest struct {
	Contents string `json:"contents"`
	IsPublic bool   `json:"is_public"`
}

type clarificationView struct {
	ID           int64  `json:"id"`
	ContestID    int64  `json:"contest_id"`
	ProblemID    *int64 `json:"problem_id,omitempty"`
	AskerUserID  int64  `json:"asker_user_id"`
	ParentID     *int64 `json:"parent_id,omitempty"`
	Contents     string `json:"contents"`
	CreationTime string `json:"creation_time"`
	IsPublic     bool   `json:"is_public"`
}

func toClarificationView(c store.Clarification) clarificationView {
	return clarificationView{
		ID: c.ID, ContestID: c.ContestID, ProblemID: c.ProblemID, AskerUserID: c.AskerUserID,
		ParentID: c.ParentID, Contents: c.Contents,
		CreationTime: c.CreationTime.Format("2006-01-02T15:04:05Z07:00"), IsPublic: c.IsPublic,
	}
}

// handleAskClarification implements POST /api/contests/{contest_id}/clarifications.
func (s *Server) handleAskClarification(w http.ResponseWriter, r *http.Request) {
	contestID, err := strconv.ParseInt(r.PathValue("contest_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid contest_id")
		return
	}
	var req askClarificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Contents == "" {
		respondError(w, http.StatusBadRequest, "contents is required")
		return
	}

	userID := userIDFromContext(r.Context())
	c, err := s.clarify.Ask(r.Context(), contestID, req.ProblemID, userID, req.Contents)
	if err != nil {
		s.log.ErrorContext(r.Context(), "ask clarification failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to file clarification")
		return
	}
	respondJSON(w, http.StatusOK, toClarificationView(c))
}

// handleListClarifications implements GET /api/contests/{contest_id}/clarifications.
// A judge/operator caller sees every row; a defendant sees public rows plus
// their own.
func (s *Server) handleListClarifications(w http.ResponseWriter, r *http.Request) {
	contestID, err := strconv.ParseInt(r.PathValue("contest_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid contest_id")
		return
	}
	userID := userIDFromContext(r.Context())
	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	allowPrivate := user.HasRole(store.RoleJudge) || user.HasRole(store.RoleOperator)

	thread, err := s.clarify.Thread(r.Context(), contestID, userID, allowPrivate)
	if err != nil {
		s.log.ErrorContext(r.Context(), "list clarifications failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load clarifications")
		return
	}
	out := make([]clarificationView, 0, len(thread))
	for _, c := range thread {
		out = append(out, toClarificationView(c))
	}
	respondJSON(w, http.StatusOK, out)
}

// handleReplyClarification implements POST /api/clarifications/{id}/replies,
// restricted to judges/operators.
func (s *Server) handleReplyClarification(w http.ResponseWriter, r *http.Request) {
	parentID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid clarification id")
		return
	}
	var req replyClarificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Contents == "" {
		respondError(w, http.StatusBadRequest, "contents is required")
		return
	}

	userID := userIDFromContext(r.Context())
	reply, err := s.clarify.Reply(r.Context(), parentID, userID, req.Contents, req.IsPublic)
	if err != nil {
		s.log.ErrorContext(r.Context(), "reply clarification failed", "error", err, "parent_id", parentID)
		respondError(w, http.StatusBadRequest, "failed to reply to clarification")
		return
	}
	respondJSON(w, http.StatusOK, toClarificationView(reply))
}
