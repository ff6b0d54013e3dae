package httpapi

import (
	"net/http"
	"strconv"

	"codecourt/scoreboard"
)

type standingView struct {
	UserID        int64                       `json:"user_id"`
	NumSolved     int                         `json:"num_solved"`
	Penalty       int                         `json:"penalty"`
	ProblemStates []scoreboard.ProblemState   `json:"problem_states"`
}

// handleScores implements GET /api/scores/{contest_id}: public, cached,
// sorted (num_solved DESC, penalty ASC).
func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	contestID, err := strconv.ParseInt(r.PathValue("contest_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid contest_id")
		return
	}

	standings, err := s.scoreboard.Scores(r.Context(), contestID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "scores failed", "error", err, "contest_id", contestID)
		respondError(w, http.StatusInternalServerError, "failed to compute scores")
		return
	}

	out := make([]standingView, 0, len(standings))
	for _, st := range standings {
		out = append(out, standingView{UserID: st.UserID, NumSolved: st.NumSolved, Penalty: st.Penalty, ProblemStates: st.ProblemStates})
	}
	respondJSON(w, http.StatusOK, out)
}
