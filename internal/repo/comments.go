package repo

import (
	"context"
	"database/sql"

	"taskhub/internal/domain"
)

func (r Repo) InsertComment(ctx context.Context, tx *sql.Tx, c domain.Comment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO comments(id,content,task_id,user_id,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		c.ID, c.Content, c.TaskID, c.UserID, c.CreatedAt, c.UpdatedAt)
	return err
}

// ListTaskComments returns a task's comments oldest first, with authors
// eager-loaded.
func (r Repo) ListTaskComments(ctx context.Context, taskID string) ([]domain.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT c.id,c.content,c.task_id,c.user_id,c.created_at,c.updated_at,
u.id,u.email,COALESCE(u.first_name,''),COALESCE(u.last_name,''),u.role,u.created_at,u.updated_at
FROM comments c JOIN users u ON u.id=c.user_id WHERE c.task_id=? ORDER BY c.created_at, c.id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Comment
	for rows.Next() {
		var c domain.Comment
		var u domain.User
		if err := rows.Scan(&c.ID, &c.Content, &c.TaskID, &c.UserID, &c.CreatedAt, &c.UpdatedAt,
			&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		c.User = &u
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) GetComment(ctx context.Context, id string) (domain.Comment, error) {
	var c domain.Comment
	err := r.DB.QueryRowContext(ctx, `SELECT id,content,task_id,user_id,created_at,updated_at FROM comments WHERE id=?`, id).
		Scan(&c.ID, &c.Content, &c.TaskID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) DeleteComment(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
