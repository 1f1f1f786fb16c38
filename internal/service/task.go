package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/studytrackr/internal/apperror"
	"github.com/sakif/studytrackr/internal/auth"
	"github.com/sakif/studytrackr/internal/model"
	"github.com/sakif/studytrackr/internal/repository"
)

const MaxTitleLength = 200

// RosterResolver resolves a teacher's assigned students. *RosterService
// satisfies it.
type RosterResolver interface {
	StudentIDs(ctx context.Context, teacherID string) ([]string, error)
}

// CreateTaskInput is the payload of a new task. An empty Progress means
// not-started.
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	Progress    model.Progress
}

// TaskPatch lists the fields an update may change. A nil field is left
// untouched. ClearDueDate removes the due date and wins over DueDate.
type TaskPatch struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	Progress     *model.Progress
}

// TaskService decides which tasks a caller may see and change.
//
// Read access depends on role: students see their own tasks, teachers see
// their own plus their roster's, principals see none. Write access depends
// only on ownership: nobody, whatever their role, may update or delete a
// task they did not create.
type TaskService struct {
	tasks  repository.TaskRepository
	roster RosterResolver
	logger *slog.Logger
}

func NewTaskService(tasks repository.TaskRepository, roster RosterResolver, logger *slog.Logger) *TaskService {
	return &TaskService{
		tasks:  tasks,
		roster: roster,
		logger: logger,
	}
}

// List returns every task visible to caller, newest first.
func (s *TaskService) List(ctx context.Context, caller auth.Identity) ([]model.Task, error) {
	var owners []string

	switch caller.Role {
	case model.RoleStudent:
		owners = []string{caller.UserID}
	case model.RoleTeacher:
		students, err := s.roster.StudentIDs(ctx, caller.UserID)
		if err != nil {
			return nil, err
		}
		owners = append([]string{caller.UserID}, students...)
	default:
		return nil, apperror.Forbidden("principals cannot view tasks")
	}

	tasks, err := s.tasks.List(ctx, repository.TaskFilter{OwnerIDs: owners})
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

// Create adds a task owned by caller. There is no way to create a task on
// someone else's behalf.
func (s *TaskService) Create(ctx context.Context, caller auth.Identity, in CreateTaskInput) (*model.Task, error) {
	if !caller.Role.OwnsTasks() {
		return nil, apperror.Forbidden("principals cannot create tasks")
	}

	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}

	progress := in.Progress
	if progress == "" {
		progress = model.ProgressNotStarted
	}
	if !progress.Valid() {
		return nil, invalidProgress()
	}

	task := &model.Task{
		UserID:      caller.UserID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		DueDate:     in.DueDate,
		Progress:    progress,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		s.logger.Error("failed to create task",
			slog.String("user_id", caller.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating task: %w", err)
	}

	s.logger.Info("task created",
		slog.String("id", task.ID),
		slog.String("user_id", task.UserID),
	)
	return task, nil
}

// Update applies patch to the task with the given id.
//
// Checks run in a fixed order: malformed patch (ValidationError), missing
// task (NotFound), principal caller (Forbidden), non-owner (Forbidden).
func (s *TaskService) Update(ctx context.Context, caller auth.Identity, id string, patch TaskPatch) (*model.Task, error) {
	var title string
	if patch.Title != nil {
		t, err := validateTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		title = t
	}
	if patch.Progress != nil && !patch.Progress.Valid() {
		return nil, invalidProgress()
	}

	task, err := s.ownedTask(ctx, caller, id, "update")
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = strings.TrimSpace(*patch.Description)
	}
	switch {
	case patch.ClearDueDate:
		task.DueDate = nil
	case patch.DueDate != nil:
		task.DueDate = patch.DueDate
	}
	if patch.Progress != nil {
		task.Progress = *patch.Progress
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}

	s.logger.Info("task updated",
		slog.String("id", task.ID),
		slog.String("progress", string(task.Progress)),
	)
	return task, nil
}

// Delete permanently removes a task owned by caller.
func (s *TaskService) Delete(ctx context.Context, caller auth.Identity, id string) error {
	if _, err := s.ownedTask(ctx, caller, id, "delete"); err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}

	s.logger.Info("task deleted", slog.String("id", id))
	return nil
}

// ownedTask loads the task and enforces the mutation rule: it must exist,
// and caller must be its owner. A teacher reading a student's task through
// the roster gains no write access to it.
func (s *TaskService) ownedTask(ctx context.Context, caller auth.Identity, id, action string) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if caller.Role == model.RolePrincipal {
		return nil, apperror.Forbidden(fmt.Sprintf("principals cannot %s tasks", action))
	}
	if task.UserID != caller.UserID {
		s.logger.Warn("task mutation denied",
			slog.String("id", id),
			slog.String("action", action),
			slog.String("caller_id", caller.UserID),
		)
		return nil, apperror.Forbidden(fmt.Sprintf("not authorized to %s this task", action))
	}
	return task, nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperror.ValidationFailed("title", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	return title, nil
}

func invalidProgress() error {
	return apperror.ValidationFailed("progress",
		"progress must be one of: not-started, in-progress, completed")
}
