package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"checkclass/internal/domain"
)

const userColumns = `id, name, email, role, enrollment, password_hash, created_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.Enrollment, &u.PasswordHash, &u.CreatedAt); err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	return u, nil
}

// CreateUser inserts a user. A taken e-mail yields a conflict error.
func (r *Repository) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = domain.RoleStudent
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Name, u.Email, string(u.Role), u.Enrollment, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return domain.User{}, domain.Conflict("email %s is already registered", u.Email)
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// UserByEmail looks a user up for login.
func (r *Repository) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.NotFound("user %s not found", email)
	}
	return u, err
}

func (r *Repository) UserByID(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.NotFound("user %s not found", id)
	}
	return u, err
}

// ListUsers returns users with the given role ordered by name; an empty role returns everyone.
func (r *Repository) ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var w where
	if role != "" {
		w.add("role = ?", string(role))
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users`+w.String()+` ORDER BY name`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserRole changes the role of a user.
func (r *Repository) UpdateUserRole(ctx context.Context, id string, role domain.Role) (domain.User, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, string(role))
	if err != nil {
		return domain.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.User{}, domain.NotFound("user %s not found", id)
	}
	return r.UserByID(ctx, id)
}
