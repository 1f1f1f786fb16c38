package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sakif/studytrackr/internal/apperror"
	"github.com/sakif/studytrackr/internal/model"
	"github.com/sakif/studytrackr/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Hand-written in-memory fakes of the repository interfaces. They keep the
// same observable contract as the sqlite implementation (lower-cased emails,
// NotFound errors, newest-first ordering) without touching a database.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// clock hands out strictly increasing timestamps so ordering is deterministic.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now.IsZero() {
		c.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeUserRepo struct {
	mu     sync.Mutex
	clock  clock
	users  map[string]*model.User
	nextID int

	// set to a non-nil error to simulate a database failure
	createErr error
	getErr    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	user.Email = strings.ToLower(user.Email)
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.DuplicateEmail(user.Email)
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = f.clock.tick()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	email = strings.ToLower(email)
	for _, u := range f.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) ListByRole(_ context.Context, role model.Role) ([]model.User, error) {
	return f.filter(func(u *model.User) bool { return u.Role == role }), nil
}

func (f *fakeUserRepo) ListStudentsOf(_ context.Context, teacherID string) ([]model.User, error) {
	return f.filter(func(u *model.User) bool {
		return u.Role == model.RoleStudent && u.TeacherID != nil && *u.TeacherID == teacherID
	}), nil
}

func (f *fakeUserRepo) filter(keep func(*model.User) bool) []model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.User, 0)
	for _, u := range f.users {
		if keep(u) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type fakeTaskRepo struct {
	mu     sync.Mutex
	clock  clock
	tasks  map[string]*model.Task
	nextID int

	lastFilter repository.TaskFilter
	listErr    error
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*model.Task)}
}

func (f *fakeTaskRepo) Create(_ context.Context, task *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	task.ID = fmt.Sprintf("task-%d", f.nextID)
	task.CreatedAt = f.clock.tick()
	task.UpdatedAt = task.CreatedAt
	stored := *task
	f.tasks[task.ID] = &stored
	return nil
}

func (f *fakeTaskRepo) GetByID(_ context.Context, id string) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, apperror.NotFound("task", id)
	}
	result := *t
	return &result, nil
}

func (f *fakeTaskRepo) List(_ context.Context, filter repository.TaskFilter) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	owners := make(map[string]bool, len(filter.OwnerIDs))
	for _, id := range filter.OwnerIDs {
		owners[id] = true
	}
	out := make([]model.Task, 0)
	for _, t := range f.tasks {
		if owners[t.UserID] {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeTaskRepo) Update(_ context.Context, task *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.tasks[task.ID]
	if !ok {
		return apperror.NotFound("task", task.ID)
	}
	owner := existing.UserID
	task.UpdatedAt = f.clock.tick()
	stored := *task
	stored.UserID = owner
	f.tasks[task.ID] = &stored
	return nil
}

func (f *fakeTaskRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[id]; !ok {
		return apperror.NotFound("task", id)
	}
	delete(f.tasks, id)
	return nil
}
