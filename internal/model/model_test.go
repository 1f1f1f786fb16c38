package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRoleValid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleStudent, true},
		{RoleTeacher, true},
		{RolePrincipal, true},
		{"admin", false},
		{"", false},
		{"Student", false},
	}

	for _, tt := range tests {
		if got := tt.role.Valid(); got != tt.want {
			t.Errorf("Role(%q).Valid() = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestRoleOwnsTasks(t *testing.T) {
	if !RoleStudent.OwnsTasks() || !RoleTeacher.OwnsTasks() {
		t.Error("students and teachers must own tasks")
	}
	if RolePrincipal.OwnsTasks() {
		t.Error("principals must not own tasks")
	}
}

func TestProgressValid(t *testing.T) {
	for _, p := range ProgressStates {
		if !p.Valid() {
			t.Errorf("Progress(%q).Valid() = false, want true", p)
		}
	}
	for _, p := range []Progress{"done", "", "NOT-STARTED"} {
		if p.Valid() {
			t.Errorf("Progress(%q).Valid() = true, want false", p)
		}
	}
}

// The password hash must never reach a client, whichever projection is encoded.
func TestUserJSONOmitsPasswordHash(t *testing.T) {
	u := &User{
		ID:           "u1",
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$secret",
		Role:         RoleStudent,
	}

	for name, v := range map[string]any{"user": u, "profile": u.Profile(), "summary": u.Summary()} {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("%s: Marshal() error = %v", name, err)
		}
		if strings.Contains(string(b), "secret") || strings.Contains(string(b), "password") {
			t.Errorf("%s JSON leaks the password hash: %s", name, b)
		}
	}
}
