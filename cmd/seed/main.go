// Command seed creates the development accounts: one principal, one teacher
// and one student assigned to that teacher.
//
// Principals cannot sign up through the API, so this is the only way to get
// one. Running it twice is harmless: accounts whose email already exists are
// left untouched.
//
//	go run ./cmd/seed -db data/studytrackr.db
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/sakif/studytrackr/internal/apperror"
	"github.com/sakif/studytrackr/internal/auth"
	"github.com/sakif/studytrackr/internal/model"
	sqliteRepo "github.com/sakif/studytrackr/internal/repository/sqlite"
)

type account struct {
	name     string
	email    string
	password string
	role     model.Role
}

var accounts = []account{
	{"Principal Admin", "principal@studytrackr.com", "principal123", model.RolePrincipal},
	{"John Teacher", "teacher@studytrackr.com", "teacher123", model.RoleTeacher},
	{"Alice Student", "student@studytrackr.com", "student123", model.RoleStudent},
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load .env", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defaultDB := os.Getenv("DB_PATH")
	if defaultDB == "" {
		defaultDB = "data/studytrackr.db"
	}
	dbPath := flag.String("db", defaultDB, "path to the SQLite database")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := run(context.Background(), *dbPath, logger); err != nil {
		logger.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, dbPath string, logger *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sqliteRepo.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	users := db.Users()
	passwords := auth.NewPasswordService()

	var teacherID string
	for _, a := range accounts {
		user, err := users.GetByEmail(ctx, a.email)
		switch {
		case err == nil:
			logger.Info("account exists, skipping", slog.String("email", a.email))
		case errors.Is(err, apperror.ErrNotFound):
			hash, err := passwords.Hash(a.password)
			if err != nil {
				return err
			}
			user = &model.User{Name: a.name, Email: a.email, PasswordHash: hash, Role: a.role}
			if a.role == model.RoleStudent {
				user.TeacherID = &teacherID
			}
			if err := users.Create(ctx, user); err != nil {
				return fmt.Errorf("creating %s: %w", a.email, err)
			}
			logger.Info("account created",
				slog.String("email", a.email),
				slog.String("role", string(a.role)),
			)
		default:
			return fmt.Errorf("looking up %s: %w", a.email, err)
		}

		if user.Role == model.RoleTeacher {
			teacherID = user.ID
		}
	}

	fmt.Println("\nTest credentials:")
	for _, a := range accounts {
		fmt.Printf("  %-9s %s / %s\n", a.role, a.email, a.password)
	}
	return nil
}
