// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage is the production implementation.
package repository

import (
	"context"

	"github.com/sakif/studytrackr/internal/model"
)

// UserRepository is the identity store.
//
// Emails are matched case-insensitively; implementations store them
// lower-cased and enforce uniqueness. Create must return an
// apperror.ErrDuplicateEmail error when the email is already taken.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ListByRole(ctx context.Context, role model.Role) ([]model.User, error)
	// ListStudentsOf returns the students whose teacher_id is teacherID,
	// newest first.
	ListStudentsOf(ctx context.Context, teacherID string) ([]model.User, error)
}

// TaskFilter selects tasks by owner. A nil or empty OwnerIDs matches nothing:
// there is no "all tasks" query.
type TaskFilter struct {
	OwnerIDs []string
}

// TaskRepository is the task collection.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id string) (*model.Task, error)
	// List returns the tasks matching filter, newest first, unpaginated.
	List(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id string) error
}
