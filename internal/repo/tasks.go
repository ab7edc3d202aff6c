package repo

import (
	"context"
	"database/sql"

	"taskhub/internal/domain"
	"taskhub/internal/scope"
)

const taskColumns = `tasks.id,tasks.title,COALESCE(tasks.description,''),tasks.status,tasks.priority,tasks.due_date,tasks.project_id,tasks.creator_id,tasks.assignee_id,tasks.created_at,tasks.updated_at`

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(id,title,description,status,priority,due_date,project_id,creator_id,assignee_id,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, nullable(t.Description), t.Status, t.Priority, nullableStringPtr(t.DueDate),
		t.ProjectID, t.CreatorID, nullableStringPtr(t.AssigneeID), t.CreatedAt, t.UpdatedAt)
	return err
}

// UpdateTask writes the mutable task columns. project_id and creator_id are
// immutable and never touched.
func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, status=?, priority=?, due_date=?, assignee_id=?, updated_at=? WHERE id=?`,
		t.Title, nullable(t.Description), t.Status, t.Priority, nullableStringPtr(t.DueDate),
		nullableStringPtr(t.AssigneeID), t.UpdatedAt, t.ID)
	return err
}

func scanTaskRow(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var dueDate, assigneeID sql.NullString
	err := scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &dueDate, &t.ProjectID, &t.CreatorID, &assigneeID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.String
	}
	if assigneeID.Valid {
		t.AssigneeID = &assigneeID.String
	}
	return t, nil
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	t, err := scanTaskRow(r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	tasks := []domain.Task{t}
	if err := r.loadTaskRelations(ctx, tasks); err != nil {
		return t, err
	}
	comments, err := r.ListTaskComments(ctx, t.ID)
	if err != nil {
		return t, err
	}
	tasks[0].Comments = comments
	return tasks[0], nil
}

// ListTasks returns one page of tasks matching the prepared scope clause plus
// the total match count, both computed in one read-only transaction over the
// same predicate.
func (r Repo) ListTasks(ctx context.Context, where string, args []any, page scope.Page) ([]domain.Task, int, error) {
	page = page.Normalize()
	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + where + ` ORDER BY tasks.updated_at DESC, tasks.id DESC LIMIT ? OFFSET ?`
	listArgs := append(append([]any{}, args...), page.Limit, page.Offset())
	rows, err := tx.QueryContext(ctx, query, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTaskRow(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadTaskRelations(ctx, res); err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

// loadTaskRelations fills creator and assignee users, fetching each distinct
// user once per batch.
func (r Repo) loadTaskRelations(ctx context.Context, tasks []domain.Task) error {
	cache := map[string]*domain.User{}
	lookup := func(id string) (*domain.User, error) {
		if u, ok := cache[id]; ok {
			return u, nil
		}
		u, err := r.GetUser(ctx, id)
		if err != nil {
			if err == ErrNotFound {
				cache[id] = nil
				return nil, nil
			}
			return nil, err
		}
		cache[id] = &u
		return &u, nil
	}
	for i := range tasks {
		creator, err := lookup(tasks[i].CreatorID)
		if err != nil {
			return err
		}
		tasks[i].Creator = creator
		if tasks[i].AssigneeID != nil {
			assignee, err := lookup(*tasks[i].AssigneeID)
			if err != nil {
				return err
			}
			tasks[i].Assignee = assignee
		}
	}
	return nil
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
