// Package scope builds the visibility predicates and pagination windows used
// by every scoped list query. The same clause always feeds both the item
// select and the count so a page and its total cannot disagree.
package scope

import (
	"strings"

	"taskhub/internal/engine/policy"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is a normalized pagination request.
type Page struct {
	Number int
	Limit  int
}

func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Number - 1) * n.Limit
}

// Info is the envelope metadata computed for a scoped listing.
type Info struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

func NewInfo(total int, p Page) Info {
	n := p.Normalize()
	totalPages := (total + n.Limit - 1) / n.Limit
	return Info{
		Total:      total,
		Page:       n.Number,
		TotalPages: totalPages,
		HasMore:    n.Offset()+n.Limit < total,
	}
}

// ProjectFilter narrows a project listing inside the visibility scope.
type ProjectFilter struct {
	Status string
}

// TaskFilter narrows a task listing inside the visibility scope.
type TaskFilter struct {
	Status   string
	Priority string
}

// ProjectVisibility returns the WHERE fragment restricting projects to those
// the principal may see: everything for admins, membership otherwise.
func ProjectVisibility(p policy.Principal) (string, []any) {
	if p.IsAdmin() {
		return "1=1", nil
	}
	return "EXISTS (SELECT 1 FROM project_members m WHERE m.project_id=projects.id AND m.user_id=?)", []any{p.ID}
}

// TaskVisibility returns the WHERE fragment restricting tasks to those the
// principal may see: everything for admins, else tasks they are assigned to
// or created.
func TaskVisibility(p policy.Principal) (string, []any) {
	if p.IsAdmin() {
		return "1=1", nil
	}
	return "(tasks.assignee_id=? OR tasks.creator_id=?)", []any{p.ID, p.ID}
}

// ProjectWhere combines visibility with caller filters.
func ProjectWhere(p policy.Principal, f ProjectFilter) (string, []any) {
	clause, args := ProjectVisibility(p)
	clauses := []string{clause}
	if f.Status != "" {
		clauses = append(clauses, "projects.status=?")
		args = append(args, f.Status)
	}
	return strings.Join(clauses, " AND "), args
}

// TaskWhere combines visibility with caller filters.
func TaskWhere(p policy.Principal, f TaskFilter) (string, []any) {
	clause, args := TaskVisibility(p)
	clauses := []string{clause}
	if f.Status != "" {
		clauses = append(clauses, "tasks.status=?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		clauses = append(clauses, "tasks.priority=?")
		args = append(args, f.Priority)
	}
	return strings.Join(clauses, " AND "), args
}
