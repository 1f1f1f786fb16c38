package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/studytrackr/internal/apperror"
	"github.com/sakif/studytrackr/internal/middleware"
	"github.com/sakif/studytrackr/internal/model"
	"github.com/sakif/studytrackr/internal/service"
)

// AuthHandler serves signup and login.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignup → self-service registration of students and teachers
//   - HandleLogin  → exchange email/password for a bearer token
//
// Both routes are public. Login sits behind the per-IP rate limiter.
type AuthHandler struct {
	auth     *service.AuthService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		validate: newValidator(),
		logger:   logger,
	}
}

type signupRequest struct {
	Name      string `json:"name"      validate:"required"`
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required,min=6"`
	Role      string `json:"role"      validate:"required,oneof=student teacher"`
	TeacherID string `json:"teacherId"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *signupRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.TeacherID = strings.TrimSpace(r.TeacherID)
}

func (r *loginRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

type authResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Token   string         `json:"token,omitempty"`
	User    *model.Profile `json:"user,omitempty"`
}

// HandleSignup registers a student or teacher.
//
// HTTP: POST /api/auth/signup
// REQUEST BODY: {"name":"...","email":"...","password":"...","role":"student","teacherId":"..."}
//
// 201 on success, 400 on bad input (including role "principal"), 409 when
// the email is taken.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		middleware.RecordAuthAttempt("signup", false)
		writeError(w, err)
		return
	}

	user, err := h.auth.Signup(r.Context(), service.SignupInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      model.Role(req.Role),
		TeacherID: req.TeacherID,
	})
	if err != nil {
		middleware.RecordAuthAttempt("signup", false)
		h.logFailure("signup failed", err)
		writeError(w, err)
		return
	}

	middleware.RecordAuthAttempt("signup", true)
	profile := user.Profile()
	writeJSON(w, http.StatusCreated, authResponse{
		Success: true,
		Message: "User registered successfully",
		User:    &profile,
	})
}

// HandleLogin checks credentials and returns a bearer token.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email":"...","password":"..."}
//
// A wrong password and an unknown email produce the same 401 body.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		middleware.RecordAuthAttempt("login", false)
		writeError(w, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.RecordAuthAttempt("login", false)
		h.logFailure("login failed", err)
		writeError(w, err)
		return
	}

	middleware.RecordAuthAttempt("login", true)
	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "Login successful",
		Token:   res.Token,
		User:    &res.User,
	})
}

// logFailure logs expected client errors at Info and everything else at Error.
func (h *AuthHandler) logFailure(msg string, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		h.logger.Info(msg, slog.String("reason", appErr.Message))
		return
	}
	h.logger.Error(msg, slog.String("error", err.Error()))
}
