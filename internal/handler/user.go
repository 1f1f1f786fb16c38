package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/studytrackr/internal/apperror"
	"github.com/sakif/studytrackr/internal/auth"
	"github.com/sakif/studytrackr/internal/service"
)

// UserHandler serves the read-only user directory: the public teacher list,
// public profiles, the caller's own profile and a teacher's roster.
type UserHandler struct {
	roster *service.RosterService
	logger *slog.Logger
}

func NewUserHandler(roster *service.RosterService, logger *slog.Logger) *UserHandler {
	return &UserHandler{roster: roster, logger: logger}
}

// HandleListTeachers lists every teacher for the signup form's picker.
//
// HTTP: GET /api/users/teachers (public)
func (h *UserHandler) HandleListTeachers(w http.ResponseWriter, r *http.Request) {
	teachers, err := h.roster.Teachers(r.Context())
	if err != nil {
		h.logger.Error("listing teachers failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, teachers)
}

// HandleGetByID returns a public profile.
//
// HTTP: GET /api/users/{id} (public)
func (h *UserHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "user id is required"))
		return
	}

	profile, err := h.roster.Profile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, profile)
}

// HandleMe returns the caller's own profile.
//
// HTTP: GET /api/me (authenticated)
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("no token provided"))
		return
	}

	profile, err := h.roster.Profile(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, profile)
}

// HandleListStudents returns the calling teacher's assigned students.
//
// HTTP: GET /api/teacher/students (teacher)
func (h *UserHandler) HandleListStudents(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("no token provided"))
		return
	}

	students, err := h.roster.Students(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, students)
}
