// Package service — authentication business logic.
//
// AuthService is the business logic layer for accounts and login. It sits
// between the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Self-service signup for students and teachers
//   - Teacher account creation by principals
//   - Email/password login that fails identically for unknown emails and wrong passwords
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/studytrackr/internal/apperror"
	"github.com/sakif/studytrackr/internal/auth"
	"github.com/sakif/studytrackr/internal/model"
	"github.com/sakif/studytrackr/internal/repository"
)

const (
	MinPasswordLength = 6
	MaxNameLength     = 100
	MaxEmailLength    = 254
)

// validate is shared by every service; validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = validator.New()

// SignupInput carries the fields of a self-service signup.
// TeacherID is only meaningful when Role is student.
type SignupInput struct {
	Name      string
	Email     string
	Password  string
	Role      model.Role
	TeacherID string
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token string        `json:"token"`
	User  model.Profile `json:"user"`
}

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → issue JWTs at login
//   - passwords  *auth.PasswordService      → bcrypt hashing and comparison
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Signup registers a student or teacher.
//
// Principals cannot sign themselves up; they are created out-of-band (see
// cmd/seed). A student must name an existing teacher, and the link is
// dropped for every other role.
//
// The teacher lookup and the insert are two separate statements with no
// transaction around them. The UNIQUE index on email still guarantees at
// most one account per address.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	name, email, err := validateAccountFields(in.Name, in.Email, in.Password)
	if err != nil {
		return nil, err
	}

	var teacherID *string
	switch in.Role {
	case model.RoleStudent:
		id := strings.TrimSpace(in.TeacherID)
		if id == "" {
			return nil, apperror.ValidationFailed("teacherId", "teacherId is required for student signup")
		}
		if err := s.requireTeacher(ctx, id); err != nil {
			return nil, err
		}
		teacherID = &id
	case model.RoleTeacher:
		// teacherId is ignored for teachers
	default:
		return nil, apperror.ValidationFailed("role", "role must be one of: student, teacher")
	}

	user, err := s.register(ctx, name, email, in.Password, in.Role, teacherID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed up",
		slog.String("id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// CreateTeacher creates a teacher account on behalf of a principal.
func (s *AuthService) CreateTeacher(ctx context.Context, caller auth.Identity, name, email, password string) (*model.User, error) {
	if caller.Role != model.RolePrincipal {
		return nil, apperror.Forbidden("only principals can create teacher accounts")
	}

	name, email, err := validateAccountFields(name, email, password)
	if err != nil {
		return nil, err
	}

	teacher, err := s.register(ctx, name, email, password, model.RoleTeacher, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("teacher created",
		slog.String("id", teacher.ID),
		slog.String("principal_id", caller.UserID),
	)
	return teacher, nil
}

// Login checks an email/password pair and issues a token.
//
// Unknown email and wrong password produce the same error kind and message.
// When the email is unknown a dummy bcrypt comparison still runs so both
// paths take roughly the same time.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, apperror.ValidationFailed("email", "valid email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.VerifyDummy(password)
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("looking up user for login: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			// A corrupt stored hash is our problem, but the client still
			// only learns that the credentials were rejected.
			s.logger.Error("password verification failed",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.InvalidCredentials()
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("user logged in",
		slog.String("id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return &LoginResult{Token: token, User: user.Profile()}, nil
}

// requireTeacher fails with a validation error unless id names an existing
// teacher account.
func (s *AuthService) requireTeacher(ctx context.Context, id string) error {
	teacher, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ValidationFailed("teacherId", "teacherId must reference an existing teacher")
		}
		return fmt.Errorf("looking up teacher %s: %w", id, err)
	}
	if teacher.Role != model.RoleTeacher {
		return apperror.ValidationFailed("teacherId", "teacherId must reference an existing teacher")
	}
	return nil
}

// register hashes the password and persists a new account. The email
// pre-check gives a friendly error in the common case; the repository's
// unique constraint covers the race.
func (s *AuthService) register(ctx context.Context, name, email, password string, role model.Role, teacherID *string) (*model.User, error) {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperror.DuplicateEmail(email)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("checking email availability: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		TeacherID:    teacherID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicateEmail) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("role", string(role)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}

// validateAccountFields normalises and checks the fields shared by signup and
// teacher creation. It never touches the store.
func validateAccountFields(name, email, password string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", apperror.ValidationFailed("name", "name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", "", apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, fmt.Sprintf("required,email,max=%d", MaxEmailLength)); err != nil {
		return "", "", apperror.ValidationFailed("email", "valid email is required")
	}

	if len(password) < MinPasswordLength {
		return "", "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > auth.MaxPasswordBytes {
		return "", "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes))
	}

	return name, email, nil
}
