package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"patlogger/internal/app"
	"patlogger/internal/domain"
	"patlogger/internal/util"
)

type userUpdateRequest struct {
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	InspectionLimit *int    `json:"inspectionLimit"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	users, err := s.app.ListUsers()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": users,
		"count": len(users),
		"flash": takeFlash(w, r),
	})
}

// handleUserPath dispatches /users/{id} routes. Administration is
// admin-only; a user may still change their own password.
func (s *Server) handleUserPath(w http.ResponseWriter, r *http.Request) {
	id, action := pathSuffix(r.URL.Path, "/users/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	if action == "change_password" || action == "update_password" {
		s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
			if !user.Admin && user.ID != id {
				redirectWithFlash(w, r, "/inspections", "Access denied")
				return
			}
			s.handlePasswordChange(w, r, user, id, action)
		}).ServeHTTP(w, r)
		return
	}

	s.adminOnly(func(w http.ResponseWriter, r *http.Request, admin domain.User) {
		if action != "" {
			http.NotFound(w, r)
			return
		}
		s.handleUserByID(w, r, admin, id)
	}).ServeHTTP(w, r)
}

func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request, admin domain.User, id string) {
	switch r.Method {
	case http.MethodGet:
		user, err := s.app.GetUser(id)
		if err != nil {
			s.handleAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPatch:
		var req userUpdateRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := s.app.UpdateUser(id, app.UserUpdate{
			Email:           req.Email,
			Password:        req.Password,
			InspectionLimit: req.InspectionLimit,
		})
		if err != nil {
			s.handleAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := s.app.DeleteUser(r.Context(), id); err != nil {
			s.handleAppError(w, r, err)
			return
		}
		slog.Info("security_event",
			slog.String("event", "user_deleted"),
			slog.String("user_id", id),
			slog.String("actor_id", admin.ID),
			slog.String("request_id", util.RequestIDFromRequest(r)))
		redirectWithFlash(w, r, "/users", "User deleted")
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handlePasswordChange(w http.ResponseWriter, r *http.Request, actor domain.User, id, action string) {
	switch action {
	case "change_password":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"flash": takeFlash(w, r)})
	case "update_password":
		if r.Method != http.MethodPatch && r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		target, err := s.app.GetUser(id)
		if err != nil {
			s.handleAppError(w, r, err)
			return
		}
		var req changePasswordRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.app.ChangePassword(target, req.CurrentPassword, req.NewPassword); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Info("security_event",
			slog.String("event", "password_changed"),
			slog.String("user_id", id),
			slog.String("actor_id", actor.ID),
			slog.String("request_id", util.RequestIDFromRequest(r)))
		redirectWithFlash(w, r, "/inspections", "Password updated")
	}
}
