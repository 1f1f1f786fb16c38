package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/studytrackr/internal/apperror"
	"github.com/sakif/studytrackr/internal/model"
	"github.com/sakif/studytrackr/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the users table.
type UserDB struct {
	conn *sql.DB
}

const userColumns = `id, name, email, password_hash, role, teacher_id, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows, so one scan
// function serves GetByID and List alike.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u         model.User
		role      string
		teacherID sql.NullString
	)
	if err := s.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash,
		&role, &teacherID, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	if teacherID.Valid {
		u.TeacherID = &teacherID.String
	}
	return &u, nil
}

// Create inserts a new user, assigning its ID and timestamps in place.
//
// The email is lower-cased before it is stored. The UNIQUE index on email is
// the final arbiter when two signups race for the same address: the loser
// gets apperror.ErrDuplicateEmail, never a raw driver error.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.TeacherID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateEmail(user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	return nil
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail looks a user up by email, ignoring case.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := scanUser(u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// ListByRole returns every user holding role, newest first.
func (u *UserDB) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	return u.list(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE role = ?
		 ORDER BY created_at DESC, id DESC`,
		string(role),
	)
}

// ListStudentsOf returns the roster of teacherID: students whose teacher_id
// points at it. Non-student rows are excluded even if teacher_id was set by hand.
func (u *UserDB) ListStudentsOf(ctx context.Context, teacherID string) ([]model.User, error) {
	return u.list(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE teacher_id = ? AND role = ?
		 ORDER BY created_at DESC, id DESC`,
		teacherID, string(model.RoleStudent),
	)
}

func (u *UserDB) list(ctx context.Context, query string, args ...any) ([]model.User, error) {
	rows, err := u.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}
