package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sakif/studytrackr/internal/apperror"
	"github.com/sakif/studytrackr/internal/auth"
	"github.com/sakif/studytrackr/internal/middleware"
	"github.com/sakif/studytrackr/internal/model"
	"github.com/sakif/studytrackr/internal/service"
)

// dueDateLayouts are the accepted ISO 8601 forms of a due date, tried in order.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// TaskHandler serves /api/tasks. Every route runs behind RequireAuth and
// RequireRole(student, teacher); the service still enforces visibility and
// ownership on its own.
type TaskHandler struct {
	tasks    *service.TaskService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewTaskHandler(tasks *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:    tasks,
		validate: newValidator(),
		logger:   logger,
	}
}

type createTaskRequest struct {
	Title       string  `json:"title"       validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	DueDate     *string `json:"dueDate"`
	Progress    string  `json:"progress"    validate:"omitempty,oneof=not-started in-progress completed"`
}

// updateTaskRequest uses pointers so an absent field can be told apart from
// an empty one. DueDate stays raw: "dueDate": null clears the date while an
// absent key leaves it alone.
type updateTaskRequest struct {
	Title       *string         `json:"title"       validate:"omitempty,max=200"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	DueDate     json.RawMessage `json:"dueDate"`
	Progress    *string         `json:"progress"    validate:"omitempty,oneof=not-started in-progress completed"`
}

// HandleList returns every task the caller may see, newest first.
//
// HTTP: GET /api/tasks
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	tasks, err := h.tasks.List(r.Context(), caller)
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	writeData(w, http.StatusOK, tasks)
}

// HandleCreate adds a task owned by the caller.
//
// HTTP: POST /api/tasks
// REQUEST BODY: {"title":"...","description":"...","dueDate":"2026-11-01","progress":"not-started"}
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		writeError(w, err)
		return
	}

	var due *time.Time
	if req.DueDate != nil {
		d, err := parseDueDate(*req.DueDate)
		if err != nil {
			writeError(w, err)
			return
		}
		due = d
	}

	task, err := h.tasks.Create(r.Context(), caller, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     due,
		Progress:    model.Progress(req.Progress),
	})
	if err != nil {
		h.fail(w, "create", err)
		return
	}
	writeData(w, http.StatusCreated, task)
}

// HandleUpdate changes the supplied fields of a task the caller owns.
//
// HTTP: PUT /api/tasks/{id}
func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		writeError(w, err)
		return
	}

	patch := service.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Progress != nil {
		p := model.Progress(*req.Progress)
		patch.Progress = &p
	}
	if len(req.DueDate) > 0 {
		if bytes.Equal(bytes.TrimSpace(req.DueDate), []byte("null")) {
			patch.ClearDueDate = true
		} else {
			var s string
			if err := json.Unmarshal(req.DueDate, &s); err != nil {
				writeError(w, apperror.ValidationFailed("dueDate", "dueDate must be a valid ISO date"))
				return
			}
			d, err := parseDueDate(s)
			if err != nil {
				writeError(w, err)
				return
			}
			if d == nil {
				patch.ClearDueDate = true
			}
			patch.DueDate = d
		}
	}

	task, err := h.tasks.Update(r.Context(), caller, chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, "update", err)
		return
	}
	writeData(w, http.StatusOK, task)
}

// HandleDelete permanently removes a task the caller owns.
//
// HTTP: DELETE /api/tasks/{id}
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Task deleted successfully"})
}

func (h *TaskHandler) caller(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("no token provided"))
	}
	return caller, ok
}

func (h *TaskHandler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperror.ErrForbidden):
		middleware.RecordAccessDenied("task_" + op)
	case !errors.Is(err, apperror.ErrNotFound) && !errors.Is(err, apperror.ErrValidation):
		h.logger.Error("task operation failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, err)
}

// parseDueDate accepts an ISO 8601 date or date-time. An empty string means
// no due date.
func parseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperror.ValidationFailed("dueDate", "dueDate must be a valid ISO date")
}
