package service

import (
	"context"
	"fmt"

	"github.com/sakif/studytrackr/internal/apperror"
	"github.com/sakif/studytrackr/internal/auth"
	"github.com/sakif/studytrackr/internal/model"
	"github.com/sakif/studytrackr/internal/repository"
)

// RosterService answers questions about the user directory: which students
// belong to a teacher, which teachers exist, and what a user's public profile
// looks like.
//
// The teacher→student link lives only on the student row (teacher_id), so a
// roster is always computed by query. Nothing is cached: every call reads
// the current state of the store.
type RosterService struct {
	users repository.UserRepository
}

func NewRosterService(users repository.UserRepository) *RosterService {
	return &RosterService{users: users}
}

// StudentIDs returns the ids of the students assigned to teacherID.
func (s *RosterService) StudentIDs(ctx context.Context, teacherID string) ([]string, error) {
	students, err := s.users.ListStudentsOf(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("resolving roster of %s: %w", teacherID, err)
	}

	ids := make([]string, len(students))
	for i := range students {
		ids[i] = students[i].ID
	}
	return ids, nil
}

// Students lists the caller's assigned students, newest first.
// Only teachers have a roster.
func (s *RosterService) Students(ctx context.Context, caller auth.Identity) ([]model.UserSummary, error) {
	if caller.Role != model.RoleTeacher {
		return nil, apperror.Forbidden("only teachers have assigned students")
	}

	students, err := s.users.ListStudentsOf(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing students of %s: %w", caller.UserID, err)
	}
	return summaries(students), nil
}

// Teachers lists every teacher account, newest first. It backs the
// teacher picker on the public signup form.
func (s *RosterService) Teachers(ctx context.Context) ([]model.UserSummary, error) {
	teachers, err := s.users.ListByRole(ctx, model.RoleTeacher)
	if err != nil {
		return nil, fmt.Errorf("listing teachers: %w", err)
	}
	return summaries(teachers), nil
}

// Profile returns the public profile of the user with the given id.
func (s *RosterService) Profile(ctx context.Context, id string) (model.Profile, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.Profile{}, err
	}
	return user.Profile(), nil
}

func summaries(users []model.User) []model.UserSummary {
	out := make([]model.UserSummary, len(users))
	for i := range users {
		out[i] = users[i].Summary()
	}
	return out
}
