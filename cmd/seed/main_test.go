package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/studytrackr/internal/auth"
	"github.com/sakif/studytrackr/internal/model"
	sqliteRepo "github.com/sakif/studytrackr/internal/repository/sqlite"
)

func TestRun_SeedsOnce(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "seed.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, run(ctx, dbPath, logger))
	require.NoError(t, run(ctx, dbPath, logger))

	db, err := sqliteRepo.New(dbPath)
	require.NoError(t, err)
	defer db.Close()
	users := db.Users()

	principals, err := users.ListByRole(ctx, model.RolePrincipal)
	require.NoError(t, err)
	assert.Len(t, principals, 1)

	teacher, err := users.GetByEmail(ctx, "teacher@studytrackr.com")
	require.NoError(t, err)

	student, err := users.GetByEmail(ctx, "student@studytrackr.com")
	require.NoError(t, err)
	require.NotNil(t, student.TeacherID)
	assert.Equal(t, teacher.ID, *student.TeacherID)

	roster, err := users.ListStudentsOf(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Len(t, roster, 1)

	assert.NoError(t, auth.NewPasswordService().Verify(student.PasswordHash, "student123"))
}
