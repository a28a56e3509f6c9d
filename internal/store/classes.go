package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"checkclass/internal/domain"
)

// CreateClass inserts a class under its caller-chosen id.
func (r *Repository) CreateClass(ctx context.Context, c domain.ClassSession) (domain.ClassSession, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO classes (id, name, schedule, teacher_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.Name, c.Schedule, c.TeacherID, c.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ClassSession{}, domain.Conflict("class id %s is already in use", c.ID)
	}
	if err != nil {
		return domain.ClassSession{}, err
	}
	return c, nil
}

func (r *Repository) Class(ctx context.Context, id string) (domain.ClassSession, error) {
	var c domain.ClassSession
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, schedule, teacher_id, created_at FROM classes WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Schedule, &c.TeacherID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ClassSession{}, domain.NotFound("class %s not found", id)
	}
	return c, err
}

// ListClasses returns classes in creation order, optionally only those of one teacher.
func (r *Repository) ListClasses(ctx context.Context, teacherID string) ([]domain.ClassSession, error) {
	var w where
	if teacherID != "" {
		w.add("teacher_id = ?", teacherID)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, schedule, teacher_id, created_at FROM classes`+w.String()+` ORDER BY created_at, id
	`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	classes := []domain.ClassSession{}
	for rows.Next() {
		var c domain.ClassSession
		if err := rows.Scan(&c.ID, &c.Name, &c.Schedule, &c.TeacherID, &c.CreatedAt); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}
