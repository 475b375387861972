package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"patlogger/internal/app"
	"patlogger/internal/domain"
	"patlogger/internal/ratelimit"
	"patlogger/internal/util"
)

// sessionCookie is the name of the session token cookie.
const sessionCookie = "pat_session"

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	// SignupLimiter and LoginLimiter throttle credential endpoints. Nil
	// disables throttling (tests).
	SignupLimiter *ratelimit.FixedWindowLimiter
	LoginLimiter  *ratelimit.FixedWindowLimiter
}

// Server exposes the HTTP endpoints of the inspection logger.
type Server struct {
	app           *app.App
	mux           *http.ServeMux
	signupLimiter *ratelimit.FixedWindowLimiter
	loginLimiter  *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:           cfg.App,
		mux:           http.NewServeMux(),
		signupLimiter: cfg.SignupLimiter,
		loginLimiter:  cfg.LoginLimiter,
	}
	s.routes()
	return s
}

// Router returns the configured handler wrapped with the standard
// middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithRequestID(util.WithRequestLog(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/", s.handleRoot)

	// auth
	s.mux.HandleFunc("/signup", s.handleSignup)
	s.mux.HandleFunc("/login", s.handleLogin)
	s.mux.HandleFunc("/logout", s.handleLogout)

	// inspections
	s.mux.Handle("/inspections", s.authenticated(s.handleInspections))
	s.mux.Handle("/inspections.csv", s.authenticated(s.handleInspectionsCSV))
	s.mux.HandleFunc("/inspections/", s.handleInspectionPath)

	// public certificate short links; the path id is case-insensitive
	s.mux.HandleFunc("/c/", s.handleCertificateShortLink)
	s.mux.HandleFunc("/C/", s.handleCertificateShortLink)

	// blobs
	s.mux.HandleFunc("/images/", s.handleImagePath)

	// user administration
	s.mux.Handle("/users", s.adminOnly(s.handleUsers))
	s.mux.HandleFunc("/users/", s.handleUserPath)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/inspections", http.StatusSeeOther)
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			redirectWithFlash(w, r, "/login", "Please log in")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) adminOnly(next authHandler) http.Handler {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		if !user.Admin {
			redirectWithFlash(w, r, "/inspections", "Access denied")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return domain.User{}, false
	}
	return s.app.UserFromToken(cookie.Value)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// handleAppError maps application errors onto the response contract:
// field errors re-render as 422, authorization and lookup failures
// redirect with a flash, everything else is an opaque 500.
func (s *Server) handleAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": verr.Fields})
	case errors.Is(err, app.ErrAccessDenied):
		redirectWithFlash(w, r, "/inspections", "Access denied")
	case errors.Is(err, app.ErrNotFound):
		redirectWithFlash(w, r, "/inspections", "Record not found")
	case errors.Is(err, app.ErrInspectionLimitReached):
		redirectWithFlash(w, r, "/inspections", "Inspection limit reached. Contact the administrator to raise it.")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	if !limiter.Allow(util.ClientIP(r, nil)) {
		writeError(w, http.StatusTooManyRequests, msg)
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// pathSuffix splits the remainder after prefix into at most two segments.
func pathSuffix(path, prefix string) (string, string) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", ""
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
