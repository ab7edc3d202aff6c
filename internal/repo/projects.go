package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"taskhub/internal/domain"
	"taskhub/internal/scope"
)

const projectColumns = `id,name,COALESCE(description,''),status,created_at,updated_at`

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO projects(id,name,description,status,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		p.ID, p.Name, nullable(p.Description), p.Status, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	err := r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	members, err := r.ListProjectMembers(ctx, p.ID)
	if err != nil {
		return p, err
	}
	p.Members = members
	return p, nil
}

// ListProjectMembers returns the member users of a project, eager-loaded for
// read models.
func (r Repo) ListProjectMembers(ctx context.Context, projectID string) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT u.id,u.email,u.password_hash,COALESCE(u.first_name,''),COALESCE(u.last_name,''),u.role,u.created_at,u.updated_at
FROM project_members m JOIN users u ON u.id=m.user_id WHERE m.project_id=? ORDER BY m.added_at, u.id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := []domain.User{}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		members = append(members, u)
	}
	return members, rows.Err()
}

// ProjectMemberIDs returns just the member ids, the shape policy checks need.
func (r Repo) ProjectMemberIDs(ctx context.Context, projectID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT user_id FROM project_members WHERE project_id=?`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r Repo) IsProjectMember(ctx context.Context, projectID, userID string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM project_members WHERE project_id=? AND user_id=? LIMIT 1`, projectID, userID).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r Repo) AddProjectMember(ctx context.Context, tx *sql.Tx, projectID, userID, addedAt string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO project_members(project_id,user_id,added_at) VALUES (?,?,?)`, projectID, userID, addedAt)
	return err
}

// RemoveProjectMemberGuarded deletes a membership only while another member
// remains. The guard runs inside the DELETE so the count check and the write
// are a single atomic statement.
func (r Repo) RemoveProjectMemberGuarded(ctx context.Context, tx *sql.Tx, projectID, userID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM project_members
WHERE project_id=? AND user_id=?
AND (SELECT COUNT(*) FROM project_members WHERE project_id=?) > 1`, projectID, userID, projectID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListProjects returns one page of projects matching the prepared scope
// clause plus the total match count, both computed in one read-only
// transaction over the same predicate.
func (r Repo) ListProjects(ctx context.Context, where string, args []any, page scope.Page) ([]domain.Project, int, error) {
	page = page.Normalize()
	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + projectColumns + ` FROM projects WHERE ` + where + ` ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`
	listArgs := append(append([]any{}, args...), page.Limit, page.Offset())
	rows, err := tx.QueryContext(ctx, query, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range res {
		members, err := r.ListProjectMembers(ctx, res[i].ID)
		if err != nil {
			return nil, 0, err
		}
		res[i].Members = members
	}
	return res, total, nil
}

// ProjectFields carries a partial project update; nil fields are left
// untouched.
type ProjectFields struct {
	Name        *string
	Description *string
	Status      *string
}

func (r Repo) UpdateProject(ctx context.Context, tx *sql.Tx, id, updatedAt string, f ProjectFields) error {
	var (
		fields []string
		args   []any
	)
	if f.Name != nil {
		fields = append(fields, "name=?")
		args = append(args, *f.Name)
	}
	if f.Description != nil {
		fields = append(fields, "description=?")
		args = append(args, nullable(*f.Description))
	}
	if f.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, *f.Status)
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, updatedAt, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE projects SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteProject(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
