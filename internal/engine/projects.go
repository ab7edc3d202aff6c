package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"taskhub/internal/domain"
	"taskhub/internal/engine/policy"
	"taskhub/internal/events"
	"taskhub/internal/repo"
	"taskhub/internal/scope"
)

// ProjectCreateOptions are parameters for creating a project.
type ProjectCreateOptions struct {
	Name        string
	Description string
	Status      string
}

// CreateProject inserts a project and connects the creator as its first
// member in the same transaction.
func (e Engine) CreateProject(ctx context.Context, pr policy.Principal, opts ProjectCreateOptions) (domain.Project, error) {
	if opts.Name == "" {
		return domain.Project{}, validation("name is required")
	}
	if opts.Status == "" {
		opts.Status = domain.ProjectActive
	}
	if !domain.ValidProjectStatus(opts.Status) {
		return domain.Project{}, validation("invalid project status")
	}
	if err := policy.CanCreateProject(pr); err != nil {
		return domain.Project{}, err
	}
	now := e.timestamp()
	p := domain.Project{
		ID:          uuid.New().String(),
		Name:        opts.Name,
		Description: opts.Description,
		Status:      opts.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return domain.Project{}, err
	}
	if err := e.Repo.AddProjectMember(ctx, tx, p.ID, pr.ID, now); err != nil {
		return domain.Project{}, err
	}
	if err := e.Events.Append(ctx, tx, "project.created", p.ID, "project", p.ID, pr.ID, events.EventPayload{"name": p.Name, "status": p.Status}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return e.Repo.GetProject(ctx, p.ID)
}

// GetProject fetches a project, then authorizes the read. A missing project
// reports NotFound before any access decision.
func (e Engine) GetProject(ctx context.Context, pr policy.Principal, id string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	if err := policy.CanReadProject(pr, memberIDs(p)); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// ListProjects returns the page of projects visible to the principal.
func (e Engine) ListProjects(ctx context.Context, pr policy.Principal, filter scope.ProjectFilter, page scope.Page) ([]domain.Project, scope.Info, error) {
	if filter.Status != "" && !domain.ValidProjectStatus(filter.Status) {
		return nil, scope.Info{}, validation("invalid project status filter")
	}
	where, args := scope.ProjectWhere(pr, filter)
	items, total, err := e.Repo.ListProjects(ctx, where, args, page)
	if err != nil {
		return nil, scope.Info{}, err
	}
	return items, scope.NewInfo(total, page), nil
}

// ProjectUpdateOptions carries a partial project update.
type ProjectUpdateOptions struct {
	Name        *string
	Description *string
	Status      *string
}

func (e Engine) UpdateProject(ctx context.Context, pr policy.Principal, id string, opts ProjectUpdateOptions) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	if err := policy.CanUpdateProject(pr, memberIDs(p)); err != nil {
		return domain.Project{}, err
	}
	if opts.Name != nil && *opts.Name == "" {
		return domain.Project{}, validation("name cannot be empty")
	}
	if opts.Status != nil && !domain.ValidProjectStatus(*opts.Status) {
		return domain.Project{}, validation("invalid project status")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	fields := repo.ProjectFields{Name: opts.Name, Description: opts.Description, Status: opts.Status}
	if err := e.Repo.UpdateProject(ctx, tx, id, e.timestamp(), fields); err != nil {
		return domain.Project{}, err
	}
	if err := e.Events.Append(ctx, tx, "project.updated", id, "project", id, pr.ID, events.EventPayload{}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return e.Repo.GetProject(ctx, id)
}

func (e Engine) DeleteProject(ctx context.Context, pr policy.Principal, id string) error {
	if _, err := e.Repo.GetProject(ctx, id); err != nil {
		return err
	}
	if err := policy.CanDeleteProject(pr); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteProject(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "project.deleted", id, "project", id, pr.ID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// AddMember connects a user to a project.
func (e Engine) AddMember(ctx context.Context, pr policy.Principal, projectID, userID string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := policy.CanAddMember(pr, memberIDs(p)); err != nil {
		return domain.Project{}, err
	}
	if _, err := e.Repo.GetUser(ctx, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Project{}, fmt.Errorf("user %s: %w", userID, repo.ErrNotFound)
		}
		return domain.Project{}, err
	}
	for _, m := range p.Members {
		if m.ID == userID {
			return domain.Project{}, conflict("user is already a member of this project")
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.AddProjectMember(ctx, tx, projectID, userID, e.timestamp()); err != nil {
		return domain.Project{}, err
	}
	if err := e.Events.Append(ctx, tx, "project.member.added", projectID, "project", projectID, pr.ID, events.EventPayload{"user_id": userID}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return e.Repo.GetProject(ctx, projectID)
}

// RemoveMember disconnects a user from a project. The last remaining member
// can never be removed; the guard is part of the DELETE statement so the
// invariant holds under concurrent removals.
func (e Engine) RemoveMember(ctx context.Context, pr policy.Principal, projectID, userID string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := policy.CanRemoveMember(pr, memberIDs(p), userID); err != nil {
		return domain.Project{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	affected, err := e.Repo.RemoveProjectMemberGuarded(ctx, tx, projectID, userID)
	if err != nil {
		return domain.Project{}, err
	}
	if affected == 0 {
		isMember, err := e.Repo.IsProjectMember(ctx, projectID, userID)
		if err != nil {
			return domain.Project{}, err
		}
		if !isMember {
			return domain.Project{}, conflict("user is not a member of this project")
		}
		return domain.Project{}, conflict("cannot remove the last member of a project")
	}
	if err := e.Events.Append(ctx, tx, "project.member.removed", projectID, "project", projectID, pr.ID, events.EventPayload{"user_id": userID}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return e.Repo.GetProject(ctx, projectID)
}

func memberIDs(p domain.Project) []string {
	ids := make([]string, 0, len(p.Members))
	for _, m := range p.Members {
		ids = append(ids, m.ID)
	}
	return ids
}
