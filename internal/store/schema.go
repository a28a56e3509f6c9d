package store

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		role          TEXT NOT NULL DEFAULT 'student',
		enrollment    TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS classes (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		schedule   TEXT NOT NULL DEFAULT '',
		teacher_id TEXT NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS qr_tokens (
		code         TEXT PRIMARY KEY,
		class_id     TEXT NOT NULL REFERENCES classes(id),
		teacher_id   TEXT NOT NULL REFERENCES users(id),
		teacher_name TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL,
		expires_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_qr_tokens_expires ON qr_tokens(expires_at)`,
	`CREATE TABLE IF NOT EXISTS qr_scans (
		code       TEXT NOT NULL REFERENCES qr_tokens(code),
		student_id TEXT NOT NULL,
		scanned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (code, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id           TEXT PRIMARY KEY,
		seq          BIGSERIAL,
		student_id   TEXT NOT NULL,
		student_name TEXT NOT NULL DEFAULT '',
		class_id     TEXT NOT NULL,
		class_name   TEXT NOT NULL DEFAULT '',
		day          TEXT NOT NULL,
		tod          TEXT NOT NULL,
		status       TEXT NOT NULL,
		reason       TEXT NOT NULL DEFAULT '',
		teacher      TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_class ON attendance(class_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance(student_id)`,
}

// Migrate creates the tables when they do not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
