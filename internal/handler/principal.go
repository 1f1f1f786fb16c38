package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/studytrackr/internal/apperror"
	"github.com/sakif/studytrackr/internal/auth"
	"github.com/sakif/studytrackr/internal/model"
	"github.com/sakif/studytrackr/internal/service"
)

// PrincipalHandler serves the principal-only teacher management routes.
type PrincipalHandler struct {
	auth     *service.AuthService
	roster   *service.RosterService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewPrincipalHandler(auth *service.AuthService, roster *service.RosterService, logger *slog.Logger) *PrincipalHandler {
	return &PrincipalHandler{
		auth:     auth,
		roster:   roster,
		validate: newValidator(),
		logger:   logger,
	}
}

type createTeacherRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (r *createTeacherRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}

// HandleCreateTeacher creates a teacher account.
//
// HTTP: POST /api/principal/teachers (principal)
// RESPONSE: 201 {"success":true,"message":"Teacher created successfully","teacher":{...}}
func (h *PrincipalHandler) HandleCreateTeacher(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("no token provided"))
		return
	}

	var req createTeacherRequest
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		writeError(w, err)
		return
	}

	teacher, err := h.auth.CreateTeacher(r.Context(), caller, req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("teacher account created via API", slog.String("teacher_id", teacher.ID))
	writeJSON(w, http.StatusCreated, struct {
		Success bool          `json:"success"`
		Message string        `json:"message"`
		Teacher model.Profile `json:"teacher"`
	}{true, "Teacher created successfully", teacher.Profile()})
}

// HandleListTeachers lists teachers for the principal dashboard.
//
// HTTP: GET /api/principal/teachers (principal)
func (h *PrincipalHandler) HandleListTeachers(w http.ResponseWriter, r *http.Request) {
	teachers, err := h.roster.Teachers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, teachers)
}
