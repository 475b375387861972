package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"patlogger/internal/util"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"flash": takeFlash(w, r)})
	case http.MethodPost:
		if !s.allowRate(w, r, s.signupLimiter, "too many signup attempts") {
			return
		}
		var req credentialsRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		user, token, err := s.app.SignUp(req.Email, req.Password)
		if err != nil {
			s.handleAppError(w, r, err)
			return
		}
		slog.Info("security_event",
			slog.String("event", "signup"),
			slog.String("user_id", user.ID),
			slog.String("request_id", util.RequestIDFromRequest(r)))
		s.setSessionCookie(w, token)
		writeJSON(w, http.StatusCreated, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"flash": takeFlash(w, r)})
	case http.MethodPost:
		if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
			return
		}
		var req credentialsRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		user, token, err := s.app.Login(req.Email, req.Password)
		if err != nil {
			slog.Warn("security_event",
				slog.String("event", "login_failed"),
				slog.String("ip", util.ClientIP(r, nil)),
				slog.String("request_id", util.RequestIDFromRequest(r)))
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		slog.Info("security_event",
			slog.String("event", "login"),
			slog.String("user_id", user.ID),
			slog.String("request_id", util.RequestIDFromRequest(r)))
		s.setSessionCookie(w, token)
		writeJSON(w, http.StatusOK, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete && r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		if err := s.app.Logout(cookie.Value); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	s.clearSessionCookie(w)
	redirectWithFlash(w, r, "/login", "Logged out")
}
