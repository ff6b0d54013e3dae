// Package httpapi is the Writ HTTP Surface (C6): get-writ, submit-writ,
// return-without-run, login, submit-run, problems, languages, current-user,
// get-contest-info, scores, make-defendant-user. Built on http.ServeMux
// with the teacher's middleware-chain idiom rather than a framework.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"codecourt/auth"
	"codecourt/catalog"
	"codecourt/clarify"
	"codecourt/config"
	"codecourt/judge/admission"
	"codecourt/judge/queue"
	"codecourt/scoreboard"
	"codecourt/store"
)

type ctxKey int

const (
	ctxKeyUserID ctxKey = iota
)

// httpStore is the narrow slice of *store.Store the HTTP layer reaches for
// directly (everything else goes through queue/admission/scoreboard/catalog),
// satisfied implicitly so handler tests can supply a fake.
type httpStore interface {
	GetUserByID(ctx context.Context, id int64) (store.User, error)
	GetLanguage(ctx context.Context, id int64) (store.Language, error)
	GetRun(ctx context.Context, id int64) (store.Run, error)
	UpsertSavedCode(ctx context.Context, sc store.SavedCode) (store.SavedCode, error)
	GetSavedCode(ctx context.Context, contestID, problemID, userID, languageID int64) (store.SavedCode, error)
}

// Server wires every HTTP-facing collaborator together, the way the
// teacher's cmd/api/main.go Server struct held its services.
type Server struct {
	store      httpStore
	auth       *auth.Service
	queue      *queue.Queue
	admission  *admission.Admission
	scoreboard *scoreboard.Aggregator
	catalog    *catalog.Catalog
	clarify    *clarify.Service
	config     *config.Accessor
	log        *slog.Logger
}

func New(s httpStore, a *auth.Service, q *queue.Queue, adm *admission.Admission, sb *scoreboard.Aggregator, cat *catalog.Catalog, cl *clarify.Service, cfg *config.Accessor, log *slog.Logger) *Server {
	return &Server{store: s, auth: a, queue: q, admission: adm, scoreboard: sb, catalog: cat, clarify: cl, config: cfg, log: log.With("component", "httpapi")}
}

// Routes builds the full mux wrapped in logging and CORS middleware, the
// same chain order the teacher's main.go composes.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/get-writ", s.basicAuth(http.HandlerFunc(s.handleGetWrit)))
	mux.Handle("POST /api/submit-writ/{run_id}", s.basicAuth(http.HandlerFunc(s.handleSubmitWrit)))
	mux.Handle("POST /api/return-without-run/{run_id}", s.basicAuth(http.HandlerFunc(s.handleReturnWithoutRun)))

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/languages", s.handleListLanguages)
	mux.HandleFunc("GET /api/scores/{contest_id}", s.handleScores)

	mux.Handle("POST /api/submit-run", s.bearerAuth(http.HandlerFunc(s.handleSubmitRun)))
	mux.Handle("GET /api/problems", s.bearerAuth(http.HandlerFunc(s.handleListProblems)))
	mux.Handle("GET /api/problems/{user_id}", s.bearerAuth(http.HandlerFunc(s.handleListProblems)))
	mux.Handle("GET /api/current-user", s.bearerAuth(http.HandlerFunc(s.handleCurrentUser)))
	mux.Handle("GET /api/get-contest-info", s.bearerAuth(http.HandlerFunc(s.handleGetContestInfo)))
	mux.Handle("POST /api/make-defendant-user", s.bearerAuth(s.requireRole(store.RoleOperator, store.RoleJudge)(http.HandlerFunc(s.handleMakeDefendantUser))))

	mux.Handle("POST /api/contests/{contest_id}/clarifications", s.bearerAuth(http.HandlerFunc(s.handleAskClarification)))
	mux.Handle("GET /api/contests/{contest_id}/clarifications", s.bearerAuth(http.HandlerFunc(s.handleListClarifications)))
	mux.Handle("POST /api/clarifications/{id}/replies", s.bearerAuth(s.requireRole(store.RoleJudge, store.RoleOperator)(http.HandlerFunc(s.handleReplyClarification))))

	mux.Handle("PUT /api/contests/{contest_id}/problems/{problem_id}/saved-code", s.bearerAuth(http.HandlerFunc(s.handleSaveCode)))
	mux.Handle("GET /api/contests/{contest_id}/problems/{problem_id}/saved-code", s.bearerAuth(http.HandlerFunc(s.handleGetSavedCode)))

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lw, r)
		s.log.InfoContext(r.Context(), "request", "method", r.Method, "path", r.URL.Path, "status", lw.status, "duration", time.Since(start))
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *loggingResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// basicAuth validates an executor's HTTP basic credentials against a User
// with role executioner.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			respondError(w, http.StatusUnauthorized, "missing basic auth credentials")
			return
		}
		user, err := s.auth.VerifyBasic(r.Context(), username, password)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid executor credentials")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUserID, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerAuth validates a contestant's bearer token.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerToken(r)
		if tokenStr == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := s.auth.VerifyToken(tokenStr)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// requireRole gates a handler to callers holding at least one of the given
// roles, per the "op" auth column in §4.6.
func (s *Server) requireRole(roles ...store.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := r.Context().Value(ctxKeyUserID).(int64)
			user, err := s.store.GetUserByID(r.Context(), userID)
			if err != nil {
				respondError(w, http.StatusForbidden, "forbidden")
				return
			}
			for _, role := range roles {
				if user.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, http.StatusForbidden, "forbidden")
		})
	}
}

func userIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(ctxKeyUserID).(int64)
	return id
}
