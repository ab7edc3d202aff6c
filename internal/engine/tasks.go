package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"taskhub/internal/domain"
	"taskhub/internal/engine/policy"
	"taskhub/internal/events"
	"taskhub/internal/repo"
	"taskhub/internal/scope"
)

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     string
	ProjectID   string
	AssigneeID  string
}

// CreateTask resolves the parent project first: a missing project is
// NotFound, never Forbidden. The caller must have access to the project;
// the assignee, when given, must exist but need not be a member.
func (e Engine) CreateTask(ctx context.Context, pr policy.Principal, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, validation("title is required")
	}
	if opts.ProjectID == "" {
		return domain.Task{}, validation("project_id is required")
	}
	if opts.Status == "" {
		opts.Status = domain.TaskTodo
	}
	if !domain.ValidTaskStatus(opts.Status) {
		return domain.Task{}, validation("invalid task status")
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(opts.Priority) {
		return domain.Task{}, validation("invalid task priority")
	}
	p, err := e.Repo.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := policy.CanAccessProjectTasks(pr, memberIDs(p)); err != nil {
		return domain.Task{}, err
	}
	if opts.AssigneeID != "" {
		exists, err := e.Repo.UserExists(ctx, opts.AssigneeID)
		if err != nil {
			return domain.Task{}, err
		}
		if !exists {
			return domain.Task{}, fmt.Errorf("assignee %s: %w", opts.AssigneeID, repo.ErrNotFound)
		}
	}
	var dueDate *string
	if opts.DueDate != "" {
		normalized, err := normalizeDueDate(opts.DueDate)
		if err != nil {
			return domain.Task{}, err
		}
		dueDate = &normalized
	}
	now := e.timestamp()
	t := domain.Task{
		ID:          uuid.New().String(),
		Title:       opts.Title,
		Description: opts.Description,
		Status:      opts.Status,
		Priority:    opts.Priority,
		DueDate:     dueDate,
		ProjectID:   opts.ProjectID,
		CreatorID:   pr.ID,
		AssigneeID:  optionalString(opts.AssigneeID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.created", t.ProjectID, "task", t.ID, pr.ID, events.EventPayload{"title": t.Title, "status": t.Status}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return e.Repo.GetTask(ctx, t.ID)
}

// GetTask fetches a task, then authorizes against its parent project.
func (e Engine) GetTask(ctx context.Context, pr policy.Principal, id string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	members, err := e.Repo.ProjectMemberIDs(ctx, t.ProjectID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := policy.CanAccessProjectTasks(pr, members); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// ListTasks returns the page of tasks visible to the principal: admins see
// everything, others only tasks they created or are assigned to.
func (e Engine) ListTasks(ctx context.Context, pr policy.Principal, filter scope.TaskFilter, page scope.Page) ([]domain.Task, scope.Info, error) {
	if err := validateTaskFilter(filter); err != nil {
		return nil, scope.Info{}, err
	}
	where, args := scope.TaskWhere(pr, filter)
	items, total, err := e.Repo.ListTasks(ctx, where, args, page)
	if err != nil {
		return nil, scope.Info{}, err
	}
	return items, scope.NewInfo(total, page), nil
}

// ListProjectTasks returns all tasks of one project, gated on project access.
func (e Engine) ListProjectTasks(ctx context.Context, pr policy.Principal, projectID string, filter scope.TaskFilter, page scope.Page) ([]domain.Task, scope.Info, error) {
	if err := validateTaskFilter(filter); err != nil {
		return nil, scope.Info{}, err
	}
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, scope.Info{}, err
	}
	if err := policy.CanAccessProjectTasks(pr, memberIDs(p)); err != nil {
		return nil, scope.Info{}, err
	}
	where := "tasks.project_id=?"
	args := []any{projectID}
	if filter.Status != "" {
		where += " AND tasks.status=?"
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		where += " AND tasks.priority=?"
		args = append(args, filter.Priority)
	}
	items, total, err := e.Repo.ListTasks(ctx, where, args, page)
	if err != nil {
		return nil, scope.Info{}, err
	}
	return items, scope.NewInfo(total, page), nil
}

// ListTasksByAssignee returns tasks assigned to one user; callers may only
// target themselves unless they are admins.
func (e Engine) ListTasksByAssignee(ctx context.Context, pr policy.Principal, userID string, page scope.Page) ([]domain.Task, scope.Info, error) {
	if err := policy.CanListUserTasks(pr, userID); err != nil {
		return nil, scope.Info{}, err
	}
	items, total, err := e.Repo.ListTasks(ctx, "tasks.assignee_id=?", []any{userID}, page)
	if err != nil {
		return nil, scope.Info{}, err
	}
	return items, scope.NewInfo(total, page), nil
}

// ListTasksByCreator returns tasks created by one user; same targeting rule
// as ListTasksByAssignee.
func (e Engine) ListTasksByCreator(ctx context.Context, pr policy.Principal, userID string, page scope.Page) ([]domain.Task, scope.Info, error) {
	if err := policy.CanListUserTasks(pr, userID); err != nil {
		return nil, scope.Info{}, err
	}
	items, total, err := e.Repo.ListTasks(ctx, "tasks.creator_id=?", []any{userID}, page)
	if err != nil {
		return nil, scope.Info{}, err
	}
	return items, scope.NewInfo(total, page), nil
}

// TaskUpdateOptions carries a partial task update. The parent project is
// immutable; there is deliberately no field for it.
type TaskUpdateOptions struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *string
	AssigneeID  *string
	ClearDue    bool
	ClearAssign bool
}

// UpdateTask re-fetches current state, applies the two-stage policy check
// (project access, then task permission), and writes the merged row.
func (e Engine) UpdateTask(ctx context.Context, pr policy.Principal, id string, opts TaskUpdateOptions) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	members, err := e.Repo.ProjectMemberIDs(ctx, t.ProjectID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := policy.CanUpdateTask(pr, members, t.CreatorID, t.AssigneeID); err != nil {
		return domain.Task{}, err
	}
	original := t
	if opts.Title != nil {
		if *opts.Title == "" {
			return domain.Task{}, validation("title cannot be empty")
		}
		t.Title = *opts.Title
	}
	if opts.Description != nil {
		t.Description = *opts.Description
	}
	if opts.Status != nil {
		if !domain.ValidTaskStatus(*opts.Status) {
			return domain.Task{}, validation("invalid task status")
		}
		t.Status = *opts.Status
	}
	if opts.Priority != nil {
		if !domain.ValidPriority(*opts.Priority) {
			return domain.Task{}, validation("invalid task priority")
		}
		t.Priority = *opts.Priority
	}
	if opts.ClearDue {
		t.DueDate = nil
	} else if opts.DueDate != nil {
		normalized, err := normalizeDueDate(*opts.DueDate)
		if err != nil {
			return domain.Task{}, err
		}
		t.DueDate = &normalized
	}
	if opts.ClearAssign {
		t.AssigneeID = nil
	} else if opts.AssigneeID != nil {
		exists, err := e.Repo.UserExists(ctx, *opts.AssigneeID)
		if err != nil {
			return domain.Task{}, err
		}
		if !exists {
			return domain.Task{}, fmt.Errorf("assignee %s: %w", *opts.AssigneeID, repo.ErrNotFound)
		}
		t.AssigneeID = opts.AssigneeID
	}
	t.UpdatedAt = e.timestamp()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.updated", t.ProjectID, "task", t.ID, pr.ID, events.EventPayload{
		"from_status": original.Status,
		"to_status":   t.Status,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return e.Repo.GetTask(ctx, t.ID)
}

// DeleteTask requires project access and creator-or-admin permission.
func (e Engine) DeleteTask(ctx context.Context, pr policy.Principal, id string) error {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	members, err := e.Repo.ProjectMemberIDs(ctx, t.ProjectID)
	if err != nil {
		return err
	}
	if err := policy.CanDeleteTask(pr, members, t.CreatorID); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteTask(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "task.deleted", t.ProjectID, "task", t.ID, pr.ID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// AddComment attaches a comment to a task the principal can read.
func (e Engine) AddComment(ctx context.Context, pr policy.Principal, taskID, content string) (domain.Comment, error) {
	if content == "" {
		return domain.Comment{}, validation("content is required")
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Comment{}, err
	}
	members, err := e.Repo.ProjectMemberIDs(ctx, t.ProjectID)
	if err != nil {
		return domain.Comment{}, err
	}
	if err := policy.CanAccessProjectTasks(pr, members); err != nil {
		return domain.Comment{}, err
	}
	now := e.timestamp()
	c := domain.Comment{
		ID:        uuid.New().String(),
		Content:   content,
		TaskID:    taskID,
		UserID:    pr.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Comment{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertComment(ctx, tx, c); err != nil {
		return domain.Comment{}, err
	}
	if err := e.Events.Append(ctx, tx, "comment.added", t.ProjectID, "comment", c.ID, pr.ID, events.EventPayload{"task_id": taskID}); err != nil {
		return domain.Comment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Comment{}, err
	}
	return c, nil
}

// DeleteComment removes a comment from a task. Only the author or an admin
// may delete it.
func (e Engine) DeleteComment(ctx context.Context, pr policy.Principal, taskID, commentID string) error {
	c, err := e.Repo.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if c.TaskID != taskID {
		return repo.ErrNotFound
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	members, err := e.Repo.ProjectMemberIDs(ctx, t.ProjectID)
	if err != nil {
		return err
	}
	if err := policy.CanDeleteComment(pr, members, c.UserID); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteComment(ctx, tx, commentID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "comment.deleted", t.ProjectID, "comment", commentID, pr.ID, events.EventPayload{"task_id": taskID}); err != nil {
		return err
	}
	return tx.Commit()
}

func validateTaskFilter(f scope.TaskFilter) error {
	if f.Status != "" && !domain.ValidTaskStatus(f.Status) {
		return validation("invalid task status filter")
	}
	if f.Priority != "" && !domain.ValidPriority(f.Priority) {
		return validation("invalid task priority filter")
	}
	return nil
}
