package store

import (
	"context"
	"fmt"
	"time"

	"checkclass/internal/domain"
)

type demoUser struct {
	domain.User
	password string
}

var demoUsers = []demoUser{
	{domain.User{ID: "1", Email: "admin@escuela.com", Role: domain.RoleAdmin, Name: "Administrador"}, "admin123"},
	{domain.User{ID: "2", Email: "profesor@escuela.com", Role: domain.RoleTeacher, Name: "Profesor García"}, "profesor123"},
	{domain.User{ID: "3", Email: "estudiante1@escuela.com", Role: domain.RoleStudent, Name: "Juan Pérez", Enrollment: "A-001"}, "estudiante123"},
	{domain.User{ID: "4", Email: "estudiante2@escuela.com", Role: domain.RoleStudent, Name: "María López", Enrollment: "A-002"}, "estudiante123"},
}

var demoClasses = []domain.ClassSession{
	{ID: "math101", Name: "Matemáticas 101", Schedule: "Lunes y Miércoles 10:00-11:30", TeacherID: "2"},
	{ID: "physics201", Name: "Física 201", Schedule: "Martes y Jueves 14:00-15:30", TeacherID: "2"},
}

func demoRecord(id, studentID, studentName, classID, className, day, tod string, status domain.Status) domain.AttendanceRecord {
	at, _ := time.Parse(domain.DateLayout+" "+domain.TimeLayout, day+" "+tod)
	return domain.AttendanceRecord{
		ID: id, StudentID: studentID, StudentName: studentName,
		ClassID: classID, ClassName: className, Date: day, Time: tod,
		Status: status, Teacher: "Prof. García", CreatedAt: at, UpdatedAt: at,
	}
}

// DemoAttendance is the attendance fixture loaded by Seed.
func DemoAttendance() []domain.AttendanceRecord {
	return []domain.AttendanceRecord{
		demoRecord("1", "3", "Juan Pérez", "math101", "Matemáticas 101", "2023-05-10", "10:05", domain.StatusPresent),
		demoRecord("2", "4", "María López", "math101", "Matemáticas 101", "2023-05-10", "10:07", domain.StatusPresent),
		demoRecord("3", "3", "Juan Pérez", "physics201", "Física 201", "2023-05-11", "14:15", domain.StatusLate),
		demoRecord("4", "3", "Juan Pérez", "math101", "Matemáticas 101", "2023-05-11", "10:05", domain.StatusPresent),
		demoRecord("5", "3", "Juan Pérez", "math101", "Matemáticas 101", "2023-05-11", "10:05", domain.StatusPresent),
	}
}

// Seed loads demo users, classes and attendance. Existing rows are left untouched.
func (r *Repository) Seed(ctx context.Context, hash func(string) (string, error)) error {
	for _, du := range demoUsers {
		h, err := hash(du.password)
		if err != nil {
			return fmt.Errorf("hash demo password: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT DO NOTHING
		`, du.ID, du.Name, du.Email, string(du.Role), du.Enrollment, h); err != nil {
			return fmt.Errorf("seed user %s: %w", du.Email, err)
		}
	}
	for _, c := range demoClasses {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO classes (id, name, schedule, teacher_id, created_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT DO NOTHING
		`, c.ID, c.Name, c.Schedule, c.TeacherID); err != nil {
			return fmt.Errorf("seed class %s: %w", c.ID, err)
		}
	}
	for _, rec := range DemoAttendance() {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO attendance (`+attendanceColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT DO NOTHING
		`, rec.ID, rec.StudentID, rec.StudentName, rec.ClassID, rec.ClassName, rec.Date, rec.Time,
			string(rec.Status), rec.Reason, rec.Teacher, rec.CreatedAt, rec.UpdatedAt); err != nil {
			return fmt.Errorf("seed attendance %s: %w", rec.ID, err)
		}
	}
	return nil
}

// DemoAccount is a seeded login.
type DemoAccount struct {
	Email    string
	Password string
	Role     domain.Role
	Name     string
}

// DemoAccounts lists the credentials created by Seed.
func DemoAccounts() []DemoAccount {
	out := make([]DemoAccount, 0, len(demoUsers))
	for _, du := range demoUsers {
		out = append(out, DemoAccount{Email: du.Email, Password: du.password, Role: du.Role, Name: du.Name})
	}
	return out
}
