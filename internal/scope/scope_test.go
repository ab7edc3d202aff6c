package scope_test

import (
	"testing"

	"taskhub/internal/domain"
	"taskhub/internal/engine/policy"
	"taskhub/internal/scope"
)

func TestPageNormalize(t *testing.T) {
	cases := []struct {
		name      string
		in        scope.Page
		number    int
		limit     int
		offset    int
	}{
		{"zero value", scope.Page{}, 1, 10, 0},
		{"negative page", scope.Page{Number: -3, Limit: 5}, 1, 5, 0},
		{"limit capped", scope.Page{Number: 2, Limit: 500}, 2, 100, 100},
		{"plain", scope.Page{Number: 3, Limit: 10}, 3, 10, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := tc.in.Normalize()
			if n.Number != tc.number || n.Limit != tc.limit {
				t.Fatalf("normalize: got %+v", n)
			}
			if got := tc.in.Offset(); got != tc.offset {
				t.Fatalf("offset: got %d want %d", got, tc.offset)
			}
		})
	}
}

func TestNewInfo(t *testing.T) {
	info := scope.NewInfo(25, scope.Page{Number: 1, Limit: 10})
	if info.Total != 25 || info.TotalPages != 3 || !info.HasMore {
		t.Fatalf("first page: %+v", info)
	}
	info = scope.NewInfo(25, scope.Page{Number: 3, Limit: 10})
	if info.HasMore {
		t.Fatalf("last page should not have more: %+v", info)
	}
	info = scope.NewInfo(0, scope.Page{})
	if info.TotalPages != 0 || info.HasMore {
		t.Fatalf("empty listing: %+v", info)
	}
	info = scope.NewInfo(10, scope.Page{Number: 1, Limit: 10})
	if info.TotalPages != 1 || info.HasMore {
		t.Fatalf("exact fit: %+v", info)
	}
}

func TestProjectWhere(t *testing.T) {
	user := policy.Principal{ID: "u1", Role: domain.RoleUser}
	admin := policy.Principal{ID: "a1", Role: domain.RoleAdmin}

	clause, args := scope.ProjectWhere(user, scope.ProjectFilter{})
	if clause != "EXISTS (SELECT 1 FROM project_members m WHERE m.project_id=projects.id AND m.user_id=?)" {
		t.Fatalf("clause: %s", clause)
	}
	if len(args) != 1 || args[0] != "u1" {
		t.Fatalf("args: %v", args)
	}

	clause, args = scope.ProjectWhere(admin, scope.ProjectFilter{Status: domain.ProjectActive})
	if clause != "1=1 AND projects.status=?" {
		t.Fatalf("admin clause: %s", clause)
	}
	if len(args) != 1 || args[0] != domain.ProjectActive {
		t.Fatalf("admin args: %v", args)
	}
}

func TestTaskWhere(t *testing.T) {
	user := policy.Principal{ID: "u1", Role: domain.RoleUser}

	clause, args := scope.TaskWhere(user, scope.TaskFilter{Status: domain.TaskTodo, Priority: domain.PriorityHigh})
	want := "(tasks.assignee_id=? OR tasks.creator_id=?) AND tasks.status=? AND tasks.priority=?"
	if clause != want {
		t.Fatalf("clause: %s", clause)
	}
	if len(args) != 4 || args[0] != "u1" || args[1] != "u1" || args[2] != domain.TaskTodo || args[3] != domain.PriorityHigh {
		t.Fatalf("args: %v", args)
	}

	admin := policy.Principal{ID: "a1", Role: domain.RoleAdmin}
	clause, args = scope.TaskWhere(admin, scope.TaskFilter{})
	if clause != "1=1" || len(args) != 0 {
		t.Fatalf("admin visibility: %s %v", clause, args)
	}
}
