package taskhubsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// Client is a minimal TaskHub HTTP API client. Requests run through a
// circuit breaker so a struggling server is not hammered with retries.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration

	breaker *gobreaker.CircuitBreaker
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
		breaker: gobreaker.NewCircuitBreaker(newBreakerSettings()),
	}
}

// User represents the API user model.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role"`
}

// Token is the auth response for register and login.
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
	User        User   `json:"user"`
}

// Project represents the API project model.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Members     []User `json:"members"`
}

// Task represents the API task model (partial).
type Task struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Status     string  `json:"status"`
	Priority   string  `json:"priority"`
	DueDate    *string `json:"due_date,omitempty"`
	ProjectID  string  `json:"project_id"`
	CreatorID  string  `json:"creator_id"`
	AssigneeID *string `json:"assignee_id,omitempty"`
}

// Comment represents a task comment.
type Comment struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	TaskID  string `json:"task_id"`
	UserID  string `json:"user_id"`
}

// Page wraps list responses with the pagination envelope.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Register creates an account and stores the returned bearer token on the
// client.
func (c *Client) Register(ctx context.Context, email, password string) (Token, error) {
	body := map[string]any{"email": email, "password": password}
	var resp Token
	if err := c.do(ctx, http.MethodPost, "auth/register", body, &resp); err != nil {
		return Token{}, err
	}
	c.BearerToken = resp.AccessToken
	return resp, nil
}

// Login authenticates and stores the returned bearer token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (Token, error) {
	body := map[string]any{"email": email, "password": password}
	var resp Token
	if err := c.do(ctx, http.MethodPost, "auth/login", body, &resp); err != nil {
		return Token{}, err
	}
	c.BearerToken = resp.AccessToken
	return resp, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var resp User
	err := c.do(ctx, http.MethodGet, "me", nil, &resp)
	return resp, err
}

// CreateProject creates a project owned by the caller.
func (c *Client) CreateProject(ctx context.Context, name, description string) (Project, error) {
	body := map[string]any{"name": name, "description": description}
	var resp Project
	err := c.do(ctx, http.MethodPost, "projects", body, &resp)
	return resp, err
}

// Projects lists projects visible to the caller.
func (c *Client) Projects(ctx context.Context, page, limit int) (Page[Project], error) {
	var resp Page[Project]
	err := c.do(ctx, http.MethodGet, paged("projects", page, limit), nil, &resp)
	return resp, err
}

// GetProject fetches a project by id.
func (c *Client) GetProject(ctx context.Context, id string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, "projects/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// AddMember adds a user to a project.
func (c *Client) AddMember(ctx context.Context, projectID, userID string) (Project, error) {
	var resp Project
	endpoint := fmt.Sprintf("projects/%s/members/%s", url.PathEscape(projectID), url.PathEscape(userID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// RemoveMember removes a user from a project.
func (c *Client) RemoveMember(ctx context.Context, projectID, userID string) (Project, error) {
	var resp Project
	endpoint := fmt.Sprintf("projects/%s/members/%s", url.PathEscape(projectID), url.PathEscape(userID))
	err := c.do(ctx, http.MethodDelete, endpoint, nil, &resp)
	return resp, err
}

// CreateTask creates a task in a project.
func (c *Client) CreateTask(ctx context.Context, projectID, title string) (Task, error) {
	body := map[string]any{"project_id": projectID, "title": title}
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", body, &resp)
	return resp, err
}

// Tasks lists tasks visible to the caller.
func (c *Client) Tasks(ctx context.Context, page, limit int) (Page[Task], error) {
	var resp Page[Task]
	err := c.do(ctx, http.MethodGet, paged("tasks", page, limit), nil, &resp)
	return resp, err
}

// ProjectTasks lists tasks inside one project.
func (c *Client) ProjectTasks(ctx context.Context, projectID string, page, limit int) (Page[Task], error) {
	var resp Page[Task]
	endpoint := paged("tasks/project/"+url.PathEscape(projectID), page, limit)
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// GetTask fetches a task by id.
func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, "tasks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// AddComment comments on a task.
func (c *Client) AddComment(ctx context.Context, taskID, content string) (Comment, error) {
	body := map[string]any{"content": content}
	var resp Comment
	endpoint := fmt.Sprintf("tasks/%s/comments", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// DeleteComment removes a comment from a task.
func (c *Client) DeleteComment(ctx context.Context, taskID, commentID string) error {
	endpoint := fmt.Sprintf("tasks/%s/comments/%s", url.PathEscape(taskID), url.PathEscape(commentID))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

func paged(endpoint string, page, limit int) string {
	sep := "?"
	if page > 0 {
		endpoint = fmt.Sprintf("%s%spage=%d", endpoint, sep, page)
		sep = "&"
	}
	if limit > 0 {
		endpoint = fmt.Sprintf("%s%slimit=%d", endpoint, sep, limit)
	}
	return endpoint
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	if c.breaker == nil {
		c.breaker = gobreaker.NewCircuitBreaker(newBreakerSettings())
	}
	u := c.base() + "/v1/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	raw, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			b, _ := io.ReadAll(resp.Body)
			return nil, &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		}
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 300 {
			return nil, breakerSkip{&APIError{StatusCode: resp.StatusCode, Body: string(b)}}
		}
		return b, nil
	})
	if err != nil {
		var skip breakerSkip
		if ok := asBreakerSkip(err, &skip); ok {
			return skip.err
		}
		return err
	}
	if out != nil {
		return json.Unmarshal(raw.([]byte), out)
	}
	return nil
}

func newBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:    "taskhub",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// 4xx responses are the caller's problem, not the server's.
			_, skip := err.(breakerSkip)
			return skip
		},
	}
}

// breakerSkip marks client errors that should not count as breaker
// failures.
type breakerSkip struct {
	err error
}

func (b breakerSkip) Error() string { return b.err.Error() }

func asBreakerSkip(err error, target *breakerSkip) bool {
	if s, ok := err.(breakerSkip); ok {
		*target = s
		return true
	}
	return false
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
