package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/config"
	"taskhub/internal/db"
	"taskhub/internal/domain"
	"taskhub/internal/engine"
	"taskhub/internal/migrate"
	"taskhub/internal/repo"
)

// App bundles the open database and the engine built on it.
type App struct {
	DB     *sql.DB
	Engine engine.Engine
}

// Open prepares the workspace, opens the database, and applies pending
// migrations.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	workspace := "."
	if cfg != nil && cfg.Storage.Workspace != "" {
		workspace = cfg.Storage.Workspace
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &App{DB: conn, Engine: engine.New(conn)}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// SeedAdmin creates an admin account when the email is not yet registered.
// It returns the existing account unchanged otherwise.
func (a *App) SeedAdmin(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return domain.User{}, fmt.Errorf("email is required")
	}
	if u, err := a.Engine.Repo.GetUserByEmail(ctx, email); err == nil {
		return u, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	u := domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Role:         domain.RoleAdmin,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tx, err := a.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	if err := a.Engine.Repo.InsertUser(ctx, tx, u); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
