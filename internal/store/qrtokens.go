package store

import (
	"context"
	"database/sql"
	"errors"

	"checkclass/internal/domain"
)

// SaveQRToken persists a freshly created token.
func (r *Repository) SaveQRToken(ctx context.Context, t domain.QRToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO qr_tokens (code, class_id, teacher_id, teacher_name, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.Code, t.ClassID, t.TeacherID, t.TeacherName, t.CreatedAt, t.ExpiresAt)
	if isUniqueViolation(err) {
		return domain.Conflict("QR code %s already exists, generate a new one", t.Code)
	}
	return err
}

// QRToken returns the token with exactly this code.
func (r *Repository) QRToken(ctx context.Context, code string) (domain.QRToken, error) {
	var t domain.QRToken
	err := r.db.QueryRowContext(ctx, `
		SELECT code, class_id, teacher_id, teacher_name, created_at, expires_at
		FROM qr_tokens
		WHERE code = $1
	`, code).Scan(&t.Code, &t.ClassID, &t.TeacherID, &t.TeacherName, &t.CreatedAt, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QRToken{}, domain.NotFound("QR code %s not found", code)
	}
	return t, err
}

// ListQRTokens returns every known token, newest first. Expired tokens are kept.
func (r *Repository) ListQRTokens(ctx context.Context) ([]domain.QRToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT code, class_id, teacher_id, teacher_name, created_at, expires_at
		FROM qr_tokens
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tokens := []domain.QRToken{}
	for rows.Next() {
		var t domain.QRToken
		if err := rows.Scan(&t.Code, &t.ClassID, &t.TeacherID, &t.TeacherName, &t.CreatedAt, &t.ExpiresAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// ClaimScan registers the first scan of a token by a student. first is false when the
// student already scanned the token.
func (r *Repository) ClaimScan(ctx context.Context, code, studentID string) (first bool, err error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO qr_scans (code, student_id) VALUES ($1, $2)
		ON CONFLICT (code, student_id) DO NOTHING
	`, code, studentID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseScan forgets a claim, used when the attendance write behind it failed.
func (r *Repository) ReleaseScan(ctx context.Context, code, studentID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM qr_scans WHERE code = $1 AND student_id = $2`, code, studentID)
	return err
}
