package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"codecourt/auth"
	"codecourt/store"
)

// handleLogin implements POST /api/login: {username, password} -> {access_token}.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := s.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		s.log.ErrorContext(r.Context(), "login failed", "error", err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"access_token": result.Token})
}

type userProfile struct {
	ID       int64        `json:"id"`
	Username string       `json:"username"`
	Name     string       `json:"name"`
	Roles    []store.Role `json:"roles"`
}

// handleCurrentUser implements GET /api/current-user.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, userProfile{ID: user.ID, Username: user.Username, Name: user.Name, Roles: user.Roles})
}

type makeDefendantRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Contest  string `json:"contest"`
}

// handleMakeDefendantUser implements POST /api/make-defendant-user,
// restricted to operator/judge roles.
func (s *Server) handleMakeDefendantUser(w http.ResponseWriter, r *http.Request) {
	var req makeDefendantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	contest, err := s.catalog.GetContestByName(r.Context(), req.Contest)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown contest")
		return
	}

	user, err := s.auth.Register(r.Context(), auth.RegisterRequest{
		Username: req.Username,
		Name:     req.Name,
		Password: req.Password,
		Roles:    []store.Role{store.RoleDefendant},
	})
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, store.ErrIntegrity) {
			respondError(w, http.StatusBadRequest, "username already exists")
			return
		}
		s.log.ErrorContext(r.Context(), "make-defendant-user failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	if err := s.catalog.EnrollUser(r.Context(), user.ID, contest.ID); err != nil {
		s.log.ErrorContext(r.Context(), "enroll defendant failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to enrol user in contest")
		return
	}

	respondJSON(w, http.StatusOK, userProfile{ID: user.ID, Username: user.Username, Name: user.Name, Roles: user.Roles})
}
