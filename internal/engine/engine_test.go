package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskhub/internal/db"
	"taskhub/internal/domain"
	"taskhub/internal/engine"
	"taskhub/internal/engine/policy"
	"taskhub/internal/migrate"
	"taskhub/internal/repo"
	"taskhub/internal/scope"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Admin  domain.User
	Alice  domain.User
	Bob    domain.User
	Carol  domain.User
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn)
	eng.Now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	env := testEnv{Engine: eng, Ctx: ctx}
	env.Admin = register(t, env, "admin@example.com", domain.RoleAdmin)
	env.Alice = register(t, env, "alice@example.com", "")
	env.Bob = register(t, env, "bob@example.com", "")
	env.Carol = register(t, env, "carol@example.com", "")
	return env
}

func register(t *testing.T, env testEnv, email, role string) domain.User {
	t.Helper()
	u, err := env.Engine.Register(env.Ctx, engine.RegisterOptions{
		Email:    email,
		Password: "correct horse",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

func asPrincipal(u domain.User) policy.Principal {
	return policy.Principal{ID: u.ID, Email: u.Email, Role: u.Role}
}

func createProject(t *testing.T, env testEnv, owner domain.User, name string) domain.Project {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, asPrincipal(owner), engine.ProjectCreateOptions{Name: name})
	if err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	return p
}

func TestProjectCreatorBecomesMember(t *testing.T) {
	env := newTestEnv(t)
	p := createProject(t, env, env.Alice, "alpha")
	if len(p.Members) != 1 || p.Members[0].ID != env.Alice.ID {
		t.Fatalf("expected creator as sole member, got %+v", p.Members)
	}
	if p.Status != domain.ProjectActive {
		t.Fatalf("expected default status ACTIVE, got %s", p.Status)
	}
}

func TestProjectAccessControl(t *testing.T) {
	env := newTestEnv(t)
	p := createProject(t, env, env.Alice, "alpha")

	if _, err := env.Engine.GetProject(env.Ctx, asPrincipal(env.Alice), p.ID); err != nil {
		t.Fatalf("member read: %v", err)
	}
	if _, err := env.Engine.GetProject(env.Ctx, asPrincipal(env.Admin), p.ID); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	var fe policy.ForbiddenError
	if _, err := env.Engine.GetProject(env.Ctx, asPrincipal(env.Bob), p.ID); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden for non-member, got %v", err)
	}
	// delete is admin-only, even for members
	if err := env.Engine.DeleteProject(env.Ctx, asPrincipal(env.Alice), p.ID); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden delete for member, got %v", err)
	}
	if err := env.Engine.DeleteProject(env.Ctx, asPrincipal(env.Admin), p.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := env.Engine.GetProject(env.Ctx, asPrincipal(env.Admin), p.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestListProjectsScoped(t *testing.T) {
	env := newTestEnv(t)
	createProject(t, env, env.Alice, "alpha")
	createProject(t, env, env.Bob, "beta")

	items, info, err := env.Engine.ListProjects(env.Ctx, asPrincipal(env.Alice), scope.ProjectFilter{}, scope.Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Name != "alpha" {
		t.Fatalf("expected alice to see only alpha, got %d items", len(items))
	}
	if info.Total != 1 || info.Page != 1 {
		t.Fatalf("unexpected page info: %+v", info)
	}

	items, info, err = env.Engine.ListProjects(env.Ctx, asPrincipal(env.Admin), scope.ProjectFilter{}, scope.Page{})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(items) != 2 || info.Total != 2 {
		t.Fatalf("expected admin to see both projects, got %d (total %d)", len(items), info.Total)
	}

	items, _, err = env.Engine.ListProjects(env.Ctx, asPrincipal(env.Carol), scope.ProjectFilter{}, scope.Page{})
	if err != nil {
		t.Fatalf("carol list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty scope for carol, got %d", len(items))
	}
}

func TestMembershipLifecycle(t *testing.T) {
	env := newTestEnv(t)
	p := createProject(t, env, env.Alice, "alpha")
	alice := asPrincipal(env.Alice)
	bob := asPrincipal(env.Bob)

	p, err := env.Engine.AddMember(env.Ctx, alice, p.ID, env.Bob.ID)
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if len(p.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(p.Members))
	}

	var ce engine.ConflictError
	if _, err := env.Engine.AddMember(env.Ctx, alice, p.ID, env.Bob.ID); !errors.As(err, &ce) {
		t.Fatalf("expected conflict for duplicate member, got %v", err)
	}
	if _, err := env.Engine.AddMember(env.Ctx, alice, p.ID, "no-such-user"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}

	// a member may remove themselves but not another member
	var fe policy.ForbiddenError
	if _, err := env.Engine.RemoveMember(env.Ctx, bob, p.ID, env.Alice.ID); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden removing another member, got %v", err)
	}
	p, err = env.Engine.RemoveMember(env.Ctx, bob, p.ID, env.Bob.ID)
	if err != nil {
		t.Fatalf("self remove: %v", err)
	}
	if len(p.Members) != 1 {
		t.Fatalf("expected 1 member after removal, got %d", len(p.Members))
	}

	if _, err := env.Engine.RemoveMember(env.Ctx, asPrincipal(env.Admin), p.ID, env.Bob.ID); !errors.As(err, &ce) {
		t.Fatalf("expected conflict removing non-member, got %v", err)
	}
	if _, err := env.Engine.RemoveMember(env.Ctx, asPrincipal(env.Admin), p.ID, env.Alice.ID); !errors.As(err, &ce) {
		t.Fatalf("expected conflict removing last member, got %v", err)
	}
}

func TestTaskCreateDefaultsAndValidation(t *testing.T) {
	env := newTestEnv(t)
	p := createProject(t, env, env.Alice, "alpha")
	alice := asPrincipal(env.Alice)

	task, err := env.Engine.CreateTask(env.Ctx, alice, engine.TaskCreateOptions{
		Title:     "write docs",
		ProjectID: p.ID,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != domain.TaskTodo || task.Priority != domain.PriorityMedium {
		t.Fatalf("unexpected defaults: status=%s priority=%s", task.Status, task.Priority)
	}
	if task.CreatorID != env.Alice.ID {
		t.Fatalf("expected creator %s, got %s", env.Alice.ID, task.CreatorID)
	}

	// missing project is not found, never forbidden
	if _, err := env.Engine.CreateTask(env.Ctx, alice, engine.TaskCreateOptions{Title: "x", ProjectID: "missing"}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for missing project, got %v", err)
	}
	// non-member cannot create in the project
	var fe policy.ForbiddenError
	if _, err := env.Engine.CreateTask(env.Ctx, asPrincipal(env.Bob), engine.TaskCreateOptions{Title: "x", ProjectID: p.ID}); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden for non-member, got %v", err)
	}
	// unknown assignee is not found
	if _, err := env.Engine.CreateTask(env.Ctx, alice, engine.TaskCreateOptions{Title: "x", ProjectID: p.ID, AssigneeID: "ghost"}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for unknown assignee, got %v", err)
	}
	// malformed due date is a validation error
	var ve engine.ValidationError
	if _, err := env.Engine.CreateTask(env.Ctx, alice, engine.TaskCreateOptions{Title: "x", ProjectID: p.ID, DueDate: "tomorrow"}); !errors.As(err, &ve) {
		t.Fatalf("expected validation error for bad due date, got %v", err)
	}
}

func TestTaskUpdatePermissions(t *testing.T) {
	env := newTestEnv(t)
	p := createProject(t, env, env.Alice, "alpha")
	alice := asPrincipal(env.Alice)
	if _, err := env.Engine.AddMember(env.Ctx, alice, p.ID, env.Carol.ID); err != nil {
		t.Fatalf("add carol: %v", err)
	}
	if _, err := env.Engine.AddMember(env.Ctx, alice, p.ID, env.Bob.ID); err != nil {
		t.Fatalf("add bob: %v", err)
	}

	task, err := env.Engine.CreateTask(env.Ctx, alice, engine.TaskCreateOptions{
		Title:      "review design",
		ProjectID:  p.ID,
		AssigneeID: env.Bob.ID,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	status := domain.TaskInProgress
	// assignee may update
	task, err = env.Engine.UpdateTask(env.Ctx, asPrincipal(env.Bob), task.ID, engine.TaskUpdateOptions{Status: &status})
	if err != nil {
		t.Fatalf("assignee update: %v", err)
	}
	if task.Status != domain.TaskInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", task.Status)
	}

	// a member who is neither creator nor assignee is denied with a task-level reason
	var fe policy.ForbiddenError
	_, err = env.Engine.UpdateTask(env.Ctx, asPrincipal(env.Carol), task.ID, engine.TaskUpdateOptions{Status: &status})
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden for member bystander, got %v", err)
	}
	if fe.Reason != "you do not have permission to update this task" {
		t.Fatalf("unexpected deny reason: %q", fe.Reason)
	}

	// remove carol; now the denial is project-level
	if _, err := env.Engine.RemoveMember(env.Ctx, alice, p.ID, env.Carol.ID); err != nil {
		t.Fatalf("remove carol: %v", err)
	}
	_, err = env.Engine.UpdateTask(env.Ctx, asPrincipal(env.Carol), task.ID, engine.TaskUpdateOptions{Status: &status})
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden for outsider, got %v", err)
	}
	if fe.Reason != "you do not have access to this project" {
		t.Fatalf("unexpected deny reason: %q", fe.Reason)
	}
}

func TestTaskClearAssigneeAndDueDate(t *testing.T) {
	env := newTestEnv(t)
	p := createProject(t, env, env.Alice, "alpha")
	alice := asPrincipal(env.Alice)

	task, err := env.Engine.CreateTask(env.Ctx, alice, engine.TaskCreateOptions{
		Title:      "ship it",
		ProjectID:  p.ID,
		AssigneeID: env.Alice.ID,
		DueDate:    "2025-07-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.AssigneeID == nil || task.DueDate == nil {
		t.Fatalf("expected assignee and due date set")
	}

	task, err = env.Engine.UpdateTask(env.Ctx, alice, task.ID, engine.TaskUpdateOptions{ClearDue: true, ClearAssign: true})
	if err != nil {
		t.Fatalf("clear update: %v", err)
	}
	if task.AssigneeID != nil || task.DueDate != nil {
		t.Fatalf("expected cleared fields, got assignee=%v due=%v", task.AssigneeID, task.DueDate)
	}
}

func TestTaskDeletePermissions(t *testing.T) {
	env := newTestEnv(t)
	p := createProject(t, env, env.Alice, "alpha")
	alice := asPrincipal(env.Alice)
	if _, err := env.Engine.AddMember(env.Ctx, alice, p.ID, env.Bob.ID); err != nil {
		t.Fatalf("add bob: %v", err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, alice, engine.TaskCreateOptions{Title: "t", ProjectID: p.ID, AssigneeID: env.Bob.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// assignee alone may not delete
	var fe policy.ForbiddenError
	if err := env.Engine.DeleteTask(env.Ctx, asPrincipal(env.Bob), task.ID); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden for assignee delete, got %v", err)
	}
	if err := env.Engine.DeleteTask(env.Ctx, alice, task.ID); err != nil {
		t.Fatalf("creator delete: %v", err)
	}
	if _, err := env.Engine.GetTask(env.Ctx, alice, task.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestListTasksScopedAndPaged(t *testing.T) {
	env := newTestEnv(t)
	p := createProject(t, env, env.Alice, "alpha")
	alice := asPrincipal(env.Alice)
	if _, err := env.Engine.AddMember(env.Ctx, alice, p.ID, env.Bob.ID); err != nil {
		t.Fatalf("add bob: %v", err)
	}
	for i := 0; i < 12; i++ {
		opts := engine.TaskCreateOptions{Title: "task", ProjectID: p.ID}
		if i%2 == 0 {
			opts.AssigneeID = env.Bob.ID
		}
		if _, err := env.Engine.CreateTask(env.Ctx, alice, opts); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	// bob sees only the six tasks assigned to him
	items, info, err := env.Engine.ListTasks(env.Ctx, asPrincipal(env.Bob), scope.TaskFilter{}, scope.Page{})
	if err != nil {
		t.Fatalf("bob list: %v", err)
	}
	if info.Total != 6 || len(items) != 6 {
		t.Fatalf("expected 6 visible tasks for bob, got %d (total %d)", len(items), info.Total)
	}

	// alice created all twelve; default page size is 10
	items, info, err = env.Engine.ListTasks(env.Ctx, alice, scope.TaskFilter{}, scope.Page{})
	if err != nil {
		t.Fatalf("alice list: %v", err)
	}
	if info.Total != 12 || len(items) != 10 || !info.HasMore || info.TotalPages != 2 {
		t.Fatalf("unexpected first page: len=%d info=%+v", len(items), info)
	}
	items, info, err = env.Engine.ListTasks(env.Ctx, alice, scope.TaskFilter{}, scope.Page{Number: 2})
	if err != nil {
		t.Fatalf("alice page 2: %v", err)
	}
	if len(items) != 2 || info.HasMore {
		t.Fatalf("unexpected second page: len=%d info=%+v", len(items), info)
	}

	// project listing requires access
	var fe policy.ForbiddenError
	if _, _, err := env.Engine.ListProjectTasks(env.Ctx, asPrincipal(env.Carol), p.ID, scope.TaskFilter{}, scope.Page{}); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden project listing, got %v", err)
	}
	items, info, err = env.Engine.ListProjectTasks(env.Ctx, asPrincipal(env.Bob), p.ID, scope.TaskFilter{}, scope.Page{Limit: 100})
	if err != nil {
		t.Fatalf("bob project list: %v", err)
	}
	if info.Total != 12 || len(items) != 12 {
		t.Fatalf("expected full project listing for member, got %d", len(items))
	}
}

func TestListTasksByAssignee(t *testing.T) {
	env := newTestEnv(t)
	p := createProject(t, env, env.Alice, "alpha")
	alice := asPrincipal(env.Alice)
	if _, err := env.Engine.AddMember(env.Ctx, alice, p.ID, env.Bob.ID); err != nil {
		t.Fatalf("add bob: %v", err)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, alice, engine.TaskCreateOptions{Title: "t", ProjectID: p.ID, AssigneeID: env.Bob.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}

	items, _, err := env.Engine.ListTasksByAssignee(env.Ctx, asPrincipal(env.Bob), env.Bob.ID, scope.Page{})
	if err != nil {
		t.Fatalf("self list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 task, got %d", len(items))
	}
	// only self or admin
	var fe policy.ForbiddenError
	if _, _, err := env.Engine.ListTasksByAssignee(env.Ctx, alice, env.Bob.ID, scope.Page{}); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden listing another user's tasks, got %v", err)
	}
	if _, _, err := env.Engine.ListTasksByAssignee(env.Ctx, asPrincipal(env.Admin), env.Bob.ID, scope.Page{}); err != nil {
		t.Fatalf("admin list: %v", err)
	}
}

func TestComments(t *testing.T) {
	env := newTestEnv(t)
	p := createProject(t, env, env.Alice, "alpha")
	alice := asPrincipal(env.Alice)
	task, err := env.Engine.CreateTask(env.Ctx, alice, engine.TaskCreateOptions{Title: "t", ProjectID: p.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.Engine.AddComment(env.Ctx, alice, task.ID, "looks good"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	var fe policy.ForbiddenError
	if _, err := env.Engine.AddComment(env.Ctx, asPrincipal(env.Bob), task.ID, "drive-by"); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden comment from non-member, got %v", err)
	}
	task, err = env.Engine.GetTask(env.Ctx, alice, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(task.Comments) != 1 || task.Comments[0].Content != "looks good" {
		t.Fatalf("expected loaded comment, got %+v", task.Comments)
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)

	var ce engine.ConflictError
	if _, err := env.Engine.Register(env.Ctx, engine.RegisterOptions{Email: "Alice@Example.com", Password: "password1"}); !errors.As(err, &ce) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
	var ve engine.ValidationError
	if _, err := env.Engine.Register(env.Ctx, engine.RegisterOptions{Email: "new@example.com", Password: "short"}); !errors.As(err, &ve) {
		t.Fatalf("expected validation error for short password, got %v", err)
	}

	if _, err := env.Engine.Authenticate(env.Ctx, "alice@example.com", "correct horse"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := env.Engine.Authenticate(env.Ctx, "alice@example.com", "wrong"); !errors.Is(err, engine.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := env.Engine.Authenticate(env.Ctx, "ghost@example.com", "whatever"); !errors.Is(err, engine.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}

	// the user row and its audit event commit together
	u := register(t, env, "dana@example.com", "")
	evts, err := env.Engine.Repo.ListEvents(env.Ctx, 50, "", "user.registered")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	found := false
	for _, ev := range evts {
		if ev.EntityID == u.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a user.registered event for %s", u.ID)
	}
}

func TestRoleChangeAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	role := domain.RoleManager
	var fe policy.ForbiddenError
	if _, err := env.Engine.UpdateUser(env.Ctx, asPrincipal(env.Alice), env.Alice.ID, engine.UserUpdateOptions{Role: &role}); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden self role change, got %v", err)
	}
	u, err := env.Engine.UpdateUser(env.Ctx, asPrincipal(env.Admin), env.Alice.ID, engine.UserUpdateOptions{Role: &role})
	if err != nil {
		t.Fatalf("admin role change: %v", err)
	}
	if u.Role != domain.RoleManager {
		t.Fatalf("expected MANAGER, got %s", u.Role)
	}
}

func TestDeleteUserGuards(t *testing.T) {
	env := newTestEnv(t)
	admin := asPrincipal(env.Admin)
	p := createProject(t, env, env.Alice, "alpha")

	var ce engine.ConflictError
	if err := env.Engine.DeleteUser(env.Ctx, admin, env.Alice.ID); !errors.As(err, &ce) {
		t.Fatalf("expected conflict deleting a sole member, got %v", err)
	}
	got, err := env.Engine.GetProject(env.Ctx, admin, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if len(got.Members) != 1 {
		t.Fatalf("project must keep its last member, got %d members", len(got.Members))
	}

	if _, err := env.Engine.AddMember(env.Ctx, asPrincipal(env.Alice), p.ID, env.Bob.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, asPrincipal(env.Bob), engine.TaskCreateOptions{Title: "bob's task", ProjectID: p.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := env.Engine.DeleteUser(env.Ctx, admin, env.Bob.ID); !errors.As(err, &ce) {
		t.Fatalf("expected conflict deleting a task owner, got %v", err)
	}

	if _, err := env.Engine.AddMember(env.Ctx, asPrincipal(env.Alice), p.ID, env.Carol.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if _, err := env.Engine.AddComment(env.Ctx, asPrincipal(env.Carol), task.ID, "noted"); err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if err := env.Engine.DeleteUser(env.Ctx, admin, env.Carol.ID); !errors.As(err, &ce) {
		t.Fatalf("expected conflict deleting a comment author, got %v", err)
	}

	// deleting the task cascades its comments away, unblocking both
	if err := env.Engine.DeleteTask(env.Ctx, asPrincipal(env.Bob), task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if err := env.Engine.DeleteUser(env.Ctx, admin, env.Bob.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := env.Engine.GetUser(env.Ctx, admin, env.Bob.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	got, err = env.Engine.GetProject(env.Ctx, admin, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if len(got.Members) != 2 {
		t.Fatalf("expected membership to cascade away, got %d members", len(got.Members))
	}

	var fe policy.ForbiddenError
	if err := env.Engine.DeleteUser(env.Ctx, asPrincipal(env.Alice), env.Carol.ID); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden deleting another user, got %v", err)
	}
	if err := env.Engine.DeleteUser(env.Ctx, admin, "ghost"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
}

func TestDeleteComment(t *testing.T) {
	env := newTestEnv(t)
	p := createProject(t, env, env.Alice, "alpha")
	if _, err := env.Engine.AddMember(env.Ctx, asPrincipal(env.Alice), p.ID, env.Bob.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, asPrincipal(env.Alice), engine.TaskCreateOptions{Title: "t", ProjectID: p.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	c, err := env.Engine.AddComment(env.Ctx, asPrincipal(env.Bob), task.ID, "looks good")
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}

	var fe policy.ForbiddenError
	if err := env.Engine.DeleteComment(env.Ctx, asPrincipal(env.Carol), task.ID, c.ID); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden for non-member, got %v", err)
	}
	if err := env.Engine.DeleteComment(env.Ctx, asPrincipal(env.Alice), task.ID, c.ID); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden for non-author member, got %v", err)
	}
	if fe.Reason != "only the author or an admin can delete this comment" {
		t.Fatalf("unexpected reason %q", fe.Reason)
	}
	if err := env.Engine.DeleteComment(env.Ctx, asPrincipal(env.Bob), "other-task", c.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for mismatched task, got %v", err)
	}
	if err := env.Engine.DeleteComment(env.Ctx, asPrincipal(env.Bob), task.ID, c.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if err := env.Engine.DeleteComment(env.Ctx, asPrincipal(env.Bob), task.ID, c.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	c, err = env.Engine.AddComment(env.Ctx, asPrincipal(env.Bob), task.ID, "again")
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if err := env.Engine.DeleteComment(env.Ctx, asPrincipal(env.Admin), task.ID, c.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	task, err = env.Engine.GetTask(env.Ctx, asPrincipal(env.Alice), task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if len(task.Comments) != 0 {
		t.Fatalf("expected no comments left, got %d", len(task.Comments))
	}
}
