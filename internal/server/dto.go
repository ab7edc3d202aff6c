package server

import (
	"taskhub/internal/domain"
	"taskhub/internal/scope"
)

// --- auth ---

type RegisterRequest struct {
	Email     string `json:"email" format:"email"`
	Password  string `json:"password" minLength:"8"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   string       `json:"expires_at" format:"date-time"`
	User        UserResponse `json:"user"`
}

// --- users ---

type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role" enum:"ADMIN,MANAGER,USER"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Role      *string `json:"role,omitempty" enum:"ADMIN,MANAGER,USER"`
}

func userResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func mapUsers(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	return out
}

// --- projects ---

type CreateProjectRequest struct {
	Name        string  `json:"name" minLength:"1"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"ACTIVE,ARCHIVED,COMPLETED"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"ACTIVE,ARCHIVED,COMPLETED"`
}

type ProjectResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Status      string         `json:"status" enum:"ACTIVE,ARCHIVED,COMPLETED"`
	Members     []UserResponse `json:"members"`
	CreatedAt   string         `json:"created_at" format:"date-time"`
	UpdatedAt   string         `json:"updated_at" format:"date-time"`
}

type ProjectListResponse struct {
	Items      []ProjectResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	HasMore    bool              `json:"has_more"`
}

func projectResponse(p domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		Members:     mapUsers(p.Members),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func projectListResponse(items []domain.Project, info scope.Info) ProjectListResponse {
	out := ProjectListResponse{
		Items:      []ProjectResponse{},
		Total:      info.Total,
		Page:       info.Page,
		TotalPages: info.TotalPages,
		HasMore:    info.HasMore,
	}
	for _, p := range items {
		out.Items = append(out.Items, projectResponse(p))
	}
	return out
}

// --- tasks ---

type CreateTaskRequest struct {
	Title       string  `json:"title" minLength:"1"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"TODO,IN_PROGRESS,IN_REVIEW,DONE"`
	Priority    *string `json:"priority,omitempty" enum:"LOW,MEDIUM,HIGH,URGENT"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
	ProjectID   string  `json:"project_id" format:"uuid"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"TODO,IN_PROGRESS,IN_REVIEW,DONE"`
	Priority    *string `json:"priority,omitempty" enum:"LOW,MEDIUM,HIGH,URGENT"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
}

type CommentResponse struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	TaskID    string        `json:"task_id"`
	UserID    string        `json:"user_id"`
	User      *UserResponse `json:"user,omitempty"`
	CreatedAt string        `json:"created_at" format:"date-time"`
	UpdatedAt string        `json:"updated_at" format:"date-time"`
}

type TaskResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      string            `json:"status" enum:"TODO,IN_PROGRESS,IN_REVIEW,DONE"`
	Priority    string            `json:"priority" enum:"LOW,MEDIUM,HIGH,URGENT"`
	DueDate     *string           `json:"due_date,omitempty" format:"date-time"`
	ProjectID   string            `json:"project_id"`
	CreatorID   string            `json:"creator_id"`
	AssigneeID  *string           `json:"assignee_id,omitempty"`
	Creator     *UserResponse     `json:"creator,omitempty"`
	Assignee    *UserResponse     `json:"assignee,omitempty"`
	Comments    []CommentResponse `json:"comments,omitempty"`
	CreatedAt   string            `json:"created_at" format:"date-time"`
	UpdatedAt   string            `json:"updated_at" format:"date-time"`
}

type TaskListResponse struct {
	Items      []TaskResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	HasMore    bool           `json:"has_more"`
}

type AddCommentRequest struct {
	Content string `json:"content" minLength:"1"`
}

func commentResponse(c domain.Comment) CommentResponse {
	out := CommentResponse{
		ID:        c.ID,
		Content:   c.Content,
		TaskID:    c.TaskID,
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.User != nil {
		u := userResponse(*c.User)
		out.User = &u
	}
	return out
}

func taskResponse(t domain.Task) TaskResponse {
	out := TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		ProjectID:   t.ProjectID,
		CreatorID:   t.CreatorID,
		AssigneeID:  t.AssigneeID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Creator != nil {
		u := userResponse(*t.Creator)
		out.Creator = &u
	}
	if t.Assignee != nil {
		u := userResponse(*t.Assignee)
		out.Assignee = &u
	}
	for _, c := range t.Comments {
		out.Comments = append(out.Comments, commentResponse(c))
	}
	return out
}

func taskListResponse(items []domain.Task, info scope.Info) TaskListResponse {
	out := TaskListResponse{
		Items:      []TaskResponse{},
		Total:      info.Total,
		Page:       info.Page,
		TotalPages: info.TotalPages,
		HasMore:    info.HasMore,
	}
	for _, t := range items {
		out.Items = append(out.Items, taskResponse(t))
	}
	return out
}

// --- events ---

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

func eventResponse(ev domain.Event) EventResponse {
	return EventResponse{
		ID:         ev.ID,
		TS:         ev.TS,
		Type:       ev.Type,
		ProjectID:  ev.ProjectID,
		EntityKind: ev.EntityKind,
		EntityID:   ev.EntityID,
		ActorID:    ev.ActorID,
		Payload:    ev.Payload,
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
