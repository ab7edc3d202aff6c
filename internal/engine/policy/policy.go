package policy

import (
	"fmt"

	"taskhub/internal/domain"
)

// Principal is the authenticated caller an access decision is made for.
type Principal struct {
	ID    string
	Email string
	Role  string
}

func (p Principal) IsAdmin() bool { return p.Role == domain.RoleAdmin }

// ForbiddenError indicates a denied access decision.
type ForbiddenError struct {
	Reason string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

func deny(reason string) error { return ForbiddenError{Reason: reason} }

func isMember(memberIDs []string, userID string) bool {
	for _, id := range memberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CanCreateProject always allows; the creator becomes the first member.
func CanCreateProject(p Principal) error { return nil }

func CanReadProject(p Principal, memberIDs []string) error {
	if p.IsAdmin() || isMember(memberIDs, p.ID) {
		return nil
	}
	return deny("you do not have access to this project")
}

func CanUpdateProject(p Principal, memberIDs []string) error {
	if p.IsAdmin() || isMember(memberIDs, p.ID) {
		return nil
	}
	return deny("you do not have access to this project")
}

func CanDeleteProject(p Principal) error {
	if p.IsAdmin() {
		return nil
	}
	return deny("only admins can delete projects")
}

func CanAddMember(p Principal, memberIDs []string) error {
	if p.IsAdmin() || isMember(memberIDs, p.ID) {
		return nil
	}
	return deny("you do not have access to this project")
}

// CanRemoveMember requires project access, and non-admins may only remove
// themselves. The last-member invariant is enforced at the storage layer.
func CanRemoveMember(p Principal, memberIDs []string, targetID string) error {
	if !p.IsAdmin() && !isMember(memberIDs, p.ID) {
		return deny("you do not have access to this project")
	}
	if !p.IsAdmin() && targetID != p.ID {
		return deny("you can only remove yourself from a project")
	}
	return nil
}

// CanAccessProjectTasks gates task creation and reads on membership in the
// parent project.
func CanAccessProjectTasks(p Principal, memberIDs []string) error {
	if p.IsAdmin() || isMember(memberIDs, p.ID) {
		return nil
	}
	return deny("you do not have access to this project")
}

// CanUpdateTask applies two independent checks: project access first, then
// task-level permission. The deny reasons are distinct.
func CanUpdateTask(p Principal, memberIDs []string, creatorID string, assigneeID *string) error {
	if err := CanAccessProjectTasks(p, memberIDs); err != nil {
		return err
	}
	if p.IsAdmin() || creatorID == p.ID {
		return nil
	}
	if assigneeID != nil && *assigneeID == p.ID {
		return nil
	}
	return deny("you do not have permission to update this task")
}

func CanDeleteTask(p Principal, memberIDs []string, creatorID string) error {
	if err := CanAccessProjectTasks(p, memberIDs); err != nil {
		return err
	}
	if p.IsAdmin() || creatorID == p.ID {
		return nil
	}
	return deny("only the creator or an admin can delete this task")
}

func CanDeleteComment(p Principal, memberIDs []string, authorID string) error {
	if err := CanAccessProjectTasks(p, memberIDs); err != nil {
		return err
	}
	if p.IsAdmin() || authorID == p.ID {
		return nil
	}
	return deny("only the author or an admin can delete this comment")
}

// CanListUserTasks gates the by-assignee and by-creator listings.
func CanListUserTasks(p Principal, targetUserID string) error {
	if p.IsAdmin() || targetUserID == p.ID {
		return nil
	}
	return deny("you can only view your own tasks")
}

// CanManageUser gates user record mutations.
func CanManageUser(p Principal, targetUserID string) error {
	if p.IsAdmin() || targetUserID == p.ID {
		return nil
	}
	return deny("you can only manage your own account")
}
