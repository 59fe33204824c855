package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens (creating if necessary) the sqlite database at path and applies
// migrations. Use ":memory:" for an ephemeral database.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection to :memory: is a distinct database.
		conn.SetMaxOpenConns(1)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return conn, nil
}

func migrate(conn *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			admin INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			project_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS project_members (
			user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			project_id TEXT NOT NULL REFERENCES projects(project_id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, project_id)
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			task_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			due_date TEXT NOT NULL DEFAULT '',
			init_date TEXT NOT NULL DEFAULT '',
			expected REAL NOT NULL DEFAULT 0,
			progress INTEGER NOT NULL DEFAULT 0,
			project_id TEXT NOT NULL REFERENCES projects(project_id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS works (
			work_id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL REFERENCES tasks(task_id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			date TEXT NOT NULL,
			time REAL NOT NULL,
			UNIQUE (task_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS invitations (
			invitation_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			project_id TEXT NOT NULL REFERENCES projects(project_id) ON DELETE CASCADE,
			UNIQUE (user_id, project_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_works_task ON works(task_id)`,
		`CREATE INDEX IF NOT EXISTS idx_invitations_user ON invitations(user_id)`,
	}

	for _, m := range migrations {
		if _, err := conn.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}

	return nil
}
