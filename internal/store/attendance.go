package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"checkclass/internal/domain"
)

const attendanceColumns = `id, student_id, student_name, class_id, class_name, day, tod, status, reason, teacher, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (domain.AttendanceRecord, error) {
	var rec domain.AttendanceRecord
	var status string
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.StudentName, &rec.ClassID, &rec.ClassName,
		&rec.Date, &rec.Time, &status, &rec.Reason, &rec.Teacher, &rec.CreatedAt, &rec.UpdatedAt)
	rec.Status = domain.Status(status)
	return rec, err
}

// AttendanceFilter narrows ListAttendance. Empty fields do not filter.
type AttendanceFilter struct {
	ClassID   string
	StudentID string
}

// InsertAttendance writes a new record, assigning id and timestamps when missing.
func (r *Repository) InsertAttendance(ctx context.Context, rec domain.AttendanceRecord) (domain.AttendanceRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (`+attendanceColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, rec.ID, rec.StudentID, rec.StudentName, rec.ClassID, rec.ClassName, rec.Date, rec.Time,
		string(rec.Status), rec.Reason, rec.Teacher, rec.CreatedAt, rec.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.AttendanceRecord{}, domain.Conflict("attendance record %s already exists", rec.ID)
	}
	if err != nil {
		return domain.AttendanceRecord{}, err
	}
	return rec, nil
}

// GetAttendance returns a single record by id.
func (r *Repository) GetAttendance(ctx context.Context, id string) (domain.AttendanceRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, `SELECT `+attendanceColumns+` FROM attendance WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AttendanceRecord{}, domain.NotFound("attendance record %s not found", id)
	}
	return rec, err
}

// UpdateAttendanceMark changes status and reason, the only mutable fields of a record.
func (r *Repository) UpdateAttendanceMark(ctx context.Context, id string, m domain.Mark, at time.Time) (domain.AttendanceRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, `
		UPDATE attendance SET status = $2, reason = $3, updated_at = $4
		WHERE id = $1
		RETURNING `+attendanceColumns,
		id, string(m.Status()), m.Reason(), at))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AttendanceRecord{}, domain.NotFound("attendance record %s not found", id)
	}
	return rec, err
}

// ListAttendance returns records in insertion order.
func (r *Repository) ListAttendance(ctx context.Context, f AttendanceFilter) ([]domain.AttendanceRecord, error) {
	var w where
	if f.ClassID != "" {
		w.add("class_id = ?", f.ClassID)
	}
	if f.StudentID != "" {
		w.add("student_id = ?", f.StudentID)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+attendanceColumns+` FROM attendance`+w.String()+` ORDER BY seq`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recs := []domain.AttendanceRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
