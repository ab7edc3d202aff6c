package engine

import (
	"database/sql"
	"time"

	"taskhub/internal/events"
	"taskhub/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// ConflictError indicates a request that contradicts current state.
type ConflictError struct {
	Message string
}

func (e ConflictError) Error() string { return e.Message }

// ValidationError indicates a semantically invalid request.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }

func conflict(msg string) error   { return ConflictError{Message: msg} }
func validation(msg string) error { return ValidationError{Message: msg} }

// --- helpers ---

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// normalizeDueDate validates and canonicalizes an RFC 3339 timestamp.
func normalizeDueDate(raw string) (string, error) {
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return "", validation("due_date must be an RFC 3339 timestamp")
	}
	return ts.UTC().Format(time.RFC3339), nil
}
