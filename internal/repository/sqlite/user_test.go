package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sakif/studytrackr/internal/apperror"
	"github.com/sakif/studytrackr/internal/model"
)

// createTestUser is a test helper that creates a user and fails the test if it errors.
func createTestUser(t *testing.T, u *UserDB, name string, role model.Role, teacherID *string) *model.User {
	t.Helper()
	user := &model.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "$2a$04$not-a-real-hash",
		Role:         role,
		TeacherID:    teacherID,
	}
	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	u := newTestDB(t).Users()

	user := &model.User{
		Name:         "Ada",
		Email:        "  Ada@Example.COM ",
		PasswordHash: "hash",
		Role:         model.RoleStudent,
	}

	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}
	if user.Email != "ada@example.com" {
		t.Errorf("Email = %q, want lower-cased %q", user.Email, "ada@example.com")
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, "first", model.RoleTeacher, nil)

	dup := &model.User{
		Name:         "second",
		Email:        "FIRST@example.com", // same address, different case
		PasswordHash: "hash",
		Role:         model.RoleStudent,
	}
	err := u.Create(context.Background(), dup)

	if !errors.Is(err, apperror.ErrDuplicateEmail) {
		t.Fatalf("Create() error = %v, want ErrDuplicateEmail", err)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Field != "email" {
		t.Errorf("duplicate email error should name the email field, got %#v", err)
	}
}

// Two concurrent signups for the same address: exactly one wins.
func TestUserCreate_ConcurrentDuplicate(t *testing.T) {
	u := newTestDB(t).Users()

	const attempts = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		dups int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := u.Create(context.Background(), &model.User{
				Name: "racer", Email: "race@example.com", PasswordHash: "h", Role: model.RoleTeacher,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperror.ErrDuplicateEmail):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || dups != attempts-1 {
		t.Errorf("successes = %d, duplicates = %d; want 1 and %d", ok, dups, attempts-1)
	}
}

func TestUserCreate_UnknownTeacherRejectedByForeignKey(t *testing.T) {
	u := newTestDB(t).Users()
	missing := "no-such-teacher"

	err := u.Create(context.Background(), &model.User{
		Name: "orphan", Email: "orphan@example.com", PasswordHash: "h",
		Role: model.RoleStudent, TeacherID: &missing,
	})
	if err == nil {
		t.Fatal("Create() should fail when teacher_id references no user")
	}
}

// =========================================================================
// GET TESTS
// =========================================================================

func TestUserGetByID(t *testing.T) {
	u := newTestDB(t).Users()
	teacher := createTestUser(t, u, "teach", model.RoleTeacher, nil)
	student := createTestUser(t, u, "stud", model.RoleStudent, &teacher.ID)

	found, err := u.GetByID(context.Background(), student.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if found.Name != "stud" || found.Role != model.RoleStudent {
		t.Errorf("got %+v, want name stud with role student", found)
	}
	if found.TeacherID == nil || *found.TeacherID != teacher.ID {
		t.Errorf("TeacherID = %v, want %q", found.TeacherID, teacher.ID)
	}
	if found.PasswordHash == "" {
		t.Error("PasswordHash not loaded")
	}

	foundTeacher, err := u.GetByID(context.Background(), teacher.ID)
	if err != nil {
		t.Fatalf("GetByID(teacher) error = %v", err)
	}
	if foundTeacher.TeacherID != nil {
		t.Errorf("teacher TeacherID = %v, want nil", *foundTeacher.TeacherID)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	u := newTestDB(t).Users()

	_, err := u.GetByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByEmail_CaseInsensitive(t *testing.T) {
	u := newTestDB(t).Users()
	created := createTestUser(t, u, "mixed", model.RoleTeacher, nil)

	for _, email := range []string{"mixed@example.com", "MIXED@EXAMPLE.COM", " Mixed@Example.com "} {
		found, err := u.GetByEmail(context.Background(), email)
		if err != nil {
			t.Fatalf("GetByEmail(%q) error = %v", email, err)
		}
		if found.ID != created.ID {
			t.Errorf("GetByEmail(%q) ID = %q, want %q", email, found.ID, created.ID)
		}
	}
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	u := newTestDB(t).Users()

	_, err := u.GetByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByEmail() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestUserListByRole(t *testing.T) {
	u := newTestDB(t).Users()
	t1 := createTestUser(t, u, "t1", model.RoleTeacher, nil)
	createTestUser(t, u, "s1", model.RoleStudent, &t1.ID)
	t2 := createTestUser(t, u, "t2", model.RoleTeacher, nil)
	createTestUser(t, u, "p1", model.RolePrincipal, nil)

	teachers, err := u.ListByRole(context.Background(), model.RoleTeacher)
	if err != nil {
		t.Fatalf("ListByRole() error = %v", err)
	}
	if len(teachers) != 2 {
		t.Fatalf("len = %d, want 2", len(teachers))
	}
	if teachers[0].ID != t2.ID || teachers[1].ID != t1.ID {
		t.Errorf("order = [%s %s], want newest first [%s %s]",
			teachers[0].ID, teachers[1].ID, t2.ID, t1.ID)
	}
}

func TestUserListByRole_EmptyIsNotNil(t *testing.T) {
	u := newTestDB(t).Users()

	got, err := u.ListByRole(context.Background(), model.RolePrincipal)
	if err != nil {
		t.Fatalf("ListByRole() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListByRole() = %#v, want empty non-nil slice", got)
	}
}

func TestUserListStudentsOf(t *testing.T) {
	u := newTestDB(t).Users()
	teacher := createTestUser(t, u, "teacher", model.RoleTeacher, nil)
	other := createTestUser(t, u, "other", model.RoleTeacher, nil)
	s1 := createTestUser(t, u, "s1", model.RoleStudent, &teacher.ID)
	createTestUser(t, u, "s2", model.RoleStudent, &other.ID)
	s3 := createTestUser(t, u, "s3", model.RoleStudent, &teacher.ID)

	roster, err := u.ListStudentsOf(context.Background(), teacher.ID)
	if err != nil {
		t.Fatalf("ListStudentsOf() error = %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("len = %d, want 2", len(roster))
	}
	if roster[0].ID != s3.ID || roster[1].ID != s1.ID {
		t.Errorf("roster = [%s %s], want [%s %s]", roster[0].ID, roster[1].ID, s3.ID, s1.ID)
	}
}

// A non-student row with teacher_id set by hand is not part of any roster.
func TestUserListStudentsOf_IgnoresNonStudents(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()
	teacher := createTestUser(t, u, "teacher", model.RoleTeacher, nil)
	impostor := createTestUser(t, u, "impostor", model.RoleTeacher, nil)

	if _, err := db.conn.Exec(`UPDATE users SET teacher_id = ? WHERE id = ?`, teacher.ID, impostor.ID); err != nil {
		t.Fatalf("forcing teacher_id: %v", err)
	}

	roster, err := u.ListStudentsOf(context.Background(), teacher.ID)
	if err != nil {
		t.Fatalf("ListStudentsOf() error = %v", err)
	}
	if len(roster) != 0 {
		t.Errorf("roster = %+v, want empty", roster)
	}
}
