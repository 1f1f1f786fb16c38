// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Role is the fixed account type of a User. It is chosen at creation and
// never changes afterwards.
type Role string

const (
	RoleStudent   Role = "student"
	RoleTeacher   Role = "teacher"
	RolePrincipal Role = "principal"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RolePrincipal:
		return true
	}
	return false
}

// OwnsTasks reports whether accounts of this role may own tasks.
// Principals manage teacher accounts and never own or see tasks.
func (r Role) OwnsTasks() bool {
	return r == RoleStudent || r == RoleTeacher
}

// User represents a registered account.
//
// WHY PasswordHash HAS json:"-"?
// The "-" tag tells encoding/json to skip the field entirely. Even if a handler
// accidentally writes a *User straight to the response, the bcrypt hash never
// leaves the server.
//
// WHY TeacherID *string?
// Only students are assigned to a teacher. A nil pointer maps to SQL NULL and
// is omitted from JSON; an empty string would be ambiguous ("assigned to nobody"
// vs "assigned to the user with id ''").
type User struct {
	ID           string    `json:"id"                  db:"id"`
	Name         string    `json:"name"                db:"name"`
	// always stored lower-cased
	Email        string    `json:"email"               db:"email"`
	PasswordHash string    `json:"-"                   db:"password_hash"`
	Role         Role      `json:"role"                db:"role"`
	// set only for students
	TeacherID    *string   `json:"teacherId,omitempty" db:"teacher_id"`
	CreatedAt    time.Time `json:"createdAt"           db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"           db:"updated_at"`
}

// UserSummary is the public projection of a User used in listings
// (teachers for the signup form, a teacher's roster).
type UserSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary projects u onto its listing fields.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Profile is what login and the profile endpoints return about a user.
type Profile struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Role      Role    `json:"role"`
	TeacherID *string `json:"teacherId,omitempty"`
}

// Profile projects u onto the fields a client may see about an account.
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		TeacherID: u.TeacherID,
	}
}
