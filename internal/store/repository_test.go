package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkclass/internal/domain"
)

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewRepository(db), mock
}

var recordCols = []string{"id", "student_id", "student_name", "class_id", "class_name", "day", "tod", "status", "reason", "teacher", "created_at", "updated_at"}

func TestInsertAttendanceAssignsIDAndTimestamps(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance")).
		WithArgs(sqlmock.AnyArg(), "3", "Juan Pérez", "math101", "Matemáticas 101", "2023-05-10", "10:05",
			"Presente", "", "Prof. García", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := repo.InsertAttendance(context.Background(), domain.AttendanceRecord{
		StudentID: "3", StudentName: "Juan Pérez", ClassID: "math101", ClassName: "Matemáticas 101",
		Date: "2023-05-10", Time: "10:05", Status: domain.StatusPresent, Teacher: "Prof. García",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
}

func TestUpdateAttendanceMarkNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE attendance SET status = $2, reason = $3")).
		WithArgs("missing", "Tardanza", "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(recordCols))

	_, err := repo.UpdateAttendanceMark(context.Background(), "missing", domain.Late(), time.Now())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdateAttendanceMarkStoresReason(t *testing.T) {
	repo, mock := newMock(t)
	absent, err := domain.Absent("enfermo")
	require.NoError(t, err)
	now := time.Date(2023, 5, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE attendance SET status = $2, reason = $3")).
		WithArgs("1", "Ausente", "enfermo", now).
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow("1", "3", "Juan Pérez", "math101", "Matemáticas 101",
			"2023-05-10", "10:05", "Ausente", "enfermo", "Prof. García", now, now))

	rec, err := repo.UpdateAttendanceMark(context.Background(), "1", absent, now)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAbsent, rec.Status)
	assert.Equal(t, "enfermo", rec.Reason)
}

func TestListAttendanceFilters(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2023, 5, 10, 10, 5, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance WHERE class_id = $1 AND student_id = $2 ORDER BY seq")).
		WithArgs("math101", "3").
		WillReturnRows(sqlmock.NewRows(recordCols).
			AddRow("1", "3", "Juan Pérez", "math101", "Matemáticas 101", "2023-05-10", "10:05", "Presente", "", "Prof. García", at, at).
			AddRow("4", "3", "Juan Pérez", "math101", "Matemáticas 101", "2023-05-11", "10:05", "Presente", "", "Prof. García", at, at))

	recs, err := repo.ListAttendance(context.Background(), AttendanceFilter{ClassID: "math101", StudentID: "3"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[0].ID)
	assert.Equal(t, "4", recs[1].ID)
}

func TestListAttendanceWithoutFilter(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance ORDER BY seq")).
		WillReturnRows(sqlmock.NewRows(recordCols))

	recs, err := repo.ListAttendance(context.Background(), AttendanceFilter{})
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestCreateUserConflict(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.CreateUser(context.Background(), domain.User{Name: "Ana", Email: "ana@escuela.com", PasswordHash: "x"})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestUpdateUserRoleMissing(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role = $2 WHERE id = $1")).
		WithArgs("99", "teacher").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.UpdateUserRole(context.Background(), "99", domain.RoleTeacher)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestClaimScan(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO qr_scans")).
		WithArgs("CLASS_math101_1", "3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO qr_scans")).
		WithArgs("CLASS_math101_1", "3").
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.ClaimScan(context.Background(), "CLASS_math101_1", "3")
	require.NoError(t, err)
	assert.True(t, first)
	first, err = repo.ClaimScan(context.Background(), "CLASS_math101_1", "3")
	require.NoError(t, err)
	assert.False(t, first)
}

func TestReleaseScan(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM qr_scans WHERE code = $1 AND student_id = $2")).
		WithArgs("CLASS_math101_1", "3").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ReleaseScan(context.Background(), "CLASS_math101_1", "3"))
}

func TestQRTokenByCode(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2023, 5, 10, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE code = $1")).
		WithArgs("CLASS_math101_1683712800000").
		WillReturnRows(sqlmock.NewRows([]string{"code", "class_id", "teacher_id", "teacher_name", "created_at", "expires_at"}).
			AddRow("CLASS_math101_1683712800000", "math101", "2", "Profesor García", created, created.Add(10*time.Minute)))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE code = $1")).
		WithArgs("CLASS_math101_0").
		WillReturnRows(sqlmock.NewRows([]string{"code", "class_id", "teacher_id", "teacher_name", "created_at", "expires_at"}))

	tok, err := repo.QRToken(context.Background(), "CLASS_math101_1683712800000")
	require.NoError(t, err)
	assert.Equal(t, "2", tok.TeacherID)

	_, err = repo.QRToken(context.Background(), "CLASS_math101_0")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestListQRTokens(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2023, 5, 10, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM qr_tokens")).
		WillReturnRows(sqlmock.NewRows([]string{"code", "class_id", "teacher_id", "teacher_name", "created_at", "expires_at"}).
			AddRow("CLASS_math101_1683712800000", "math101", "2", "Profesor García", created, created.Add(10*time.Minute)))

	tokens, err := repo.ListQRTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "math101", tokens[0].ClassID)
	assert.Equal(t, created.Add(10*time.Minute), tokens[0].ExpiresAt)
}

func TestCreateClassConflict(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO classes")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.CreateClass(context.Background(), domain.ClassSession{ID: "math101", Name: "Matemáticas", TeacherID: "2"})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}
