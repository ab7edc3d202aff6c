package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"taskhub/internal/domain"
)

const userColumns = `id,email,password_hash,COALESCE(first_name,''),COALESCE(last_name,''),role,created_at,updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO users(id,email,password_hash,first_name,last_name,role,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.PasswordHash, nullable(u.FirstName), nullable(u.LastName), u.Role, u.CreatedAt, u.UpdatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email))
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// UserFields carries a partial user update; nil fields are left untouched.
type UserFields struct {
	FirstName *string
	LastName  *string
	Role      *string
}

func (r Repo) UpdateUser(ctx context.Context, id, updatedAt string, f UserFields) error {
	var (
		fields []string
		args   []any
	)
	if f.FirstName != nil {
		fields = append(fields, "first_name=?")
		args = append(args, nullable(*f.FirstName))
	}
	if f.LastName != nil {
		fields = append(fields, "last_name=?")
		args = append(args, nullable(*f.LastName))
	}
	if f.Role != nil {
		fields = append(fields, "role=?")
		args = append(args, *f.Role)
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, updatedAt, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE users SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUserGuarded deletes a user only while no project would be left
// memberless and no task or comment still names them as author. The guards
// run inside the DELETE so the checks and the write are a single atomic
// statement; memberships of the deleted user cascade away.
func (r Repo) DeleteUserGuarded(ctx context.Context, tx *sql.Tx, id string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM users
WHERE id=?
AND NOT EXISTS (
    SELECT 1 FROM project_members m WHERE m.user_id=users.id
    AND (SELECT COUNT(*) FROM project_members WHERE project_id=m.project_id)=1)
AND NOT EXISTS (SELECT 1 FROM tasks WHERE creator_id=users.id)
AND NOT EXISTS (SELECT 1 FROM comments WHERE user_id=users.id)`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountSoleMemberships reports how many projects have this user as their
// only member.
func (r Repo) CountSoleMemberships(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM project_members m
WHERE m.user_id=?
AND (SELECT COUNT(*) FROM project_members WHERE project_id=m.project_id)=1`, userID).Scan(&n)
	return n, err
}

// UserExists reports whether a user row exists without loading it.
func (r Repo) UserExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id=? LIMIT 1`, id).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
