// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed.
//
// LAYOUT:
// DB owns the connection pool and the schema. Users() and Tasks() return thin
// views over the same pool, one per repository interface, so that each
// interface keeps its natural method names (Create, GetByID, ...).
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// The sqlite package's init() registers itself with database/sql as a
	// driver named "sqlite". We also need its Error type for constraint codes.
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/studytrackr.db"  → file-based database (persistent)
//   - ":memory:"             → in-memory database (tests, lost on close)
//
// CONNECTION POOL:
// sql.Open() does NOT actually open a connection — it just creates a pool manager.
// We call Ping() to force an immediate connection and verify it works.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a brand new, empty database.
	// Pin the pool to a single connection so all queries see the same schema.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode lets readers proceed while a write is in flight. The database
	// relies on SQLite's per-statement atomicity; no application-level locks.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. tasks.user_id and
	// users.teacher_id both reference users(id).
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the UserRepository view of db.
func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

// Tasks returns the TaskRepository view of db.
func (db *DB) Tasks() *TaskDB {
	return &TaskDB{conn: db.conn}
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run on
// every start.
func (db *DB) migrate() error {
	// email is stored lower-cased; COLLATE NOCASE is a second line of defence
	// for rows written by hand.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL CHECK (role IN ('student', 'teacher', 'principal')),
			teacher_id    TEXT REFERENCES users(id),
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_users_teacher_role ON users(teacher_id, role);
		CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id),
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			due_date    DATETIME,
			progress    TEXT NOT NULL DEFAULT 'not-started'
			            CHECK (progress IN ('not-started', 'in-progress', 'completed')),
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_user_created ON tasks(user_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating tasks table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is SQLite's UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	// Connections opened without extended result codes only report the
	// primary SQLITE_CONSTRAINT code; fall back to the message.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// dsn adds per-connection pragmas to a file path. PRAGMA statements run
// through Exec only reach one pooled connection; _pragma parameters are
// applied by the driver to every connection it opens.
func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return dbPath
	}
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// placeholders returns "?, ?, ?" with n markers for an IN (...) clause.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
