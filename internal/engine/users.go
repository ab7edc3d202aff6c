package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/domain"
	"taskhub/internal/engine/policy"
	"taskhub/internal/events"
	"taskhub/internal/repo"
)

// ErrInvalidCredentials is returned by Authenticate on a bad email/password
// pair; the two cases are indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// RegisterOptions are parameters for creating an account.
type RegisterOptions struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

func (e Engine) Register(ctx context.Context, opts RegisterOptions) (domain.User, error) {
	opts.Email = strings.TrimSpace(strings.ToLower(opts.Email))
	if opts.Email == "" {
		return domain.User{}, validation("email is required")
	}
	if len(opts.Password) < 8 {
		return domain.User{}, validation("password must be at least 8 characters")
	}
	if opts.Role == "" {
		opts.Role = domain.RoleUser
	}
	if !domain.ValidRole(opts.Role) {
		return domain.User{}, validation("invalid role")
	}
	if _, err := e.Repo.GetUserByEmail(ctx, opts.Email); err == nil {
		return domain.User{}, conflict("user already exists")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	now := e.timestamp()
	u := domain.User{
		ID:           uuid.New().String(),
		Email:        opts.Email,
		FirstName:    opts.FirstName,
		LastName:     opts.LastName,
		Role:         opts.Role,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertUser(ctx, tx, u); err != nil {
		return domain.User{}, err
	}
	if err := e.Events.Append(ctx, tx, "user.registered", "", "user", u.ID, u.ID, events.EventPayload{"email": u.Email}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Authenticate verifies an email/password pair against the stored hash.
func (e Engine) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := e.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (e Engine) GetUser(ctx context.Context, pr policy.Principal, id string) (domain.User, error) {
	return e.Repo.GetUser(ctx, id)
}

func (e Engine) ListUsers(ctx context.Context, pr policy.Principal) ([]domain.User, error) {
	return e.Repo.ListUsers(ctx)
}

// UserUpdateOptions carries a partial user update. Only admins may change
// roles.
type UserUpdateOptions struct {
	FirstName *string
	LastName  *string
	Role      *string
}

func (e Engine) UpdateUser(ctx context.Context, pr policy.Principal, id string, opts UserUpdateOptions) (domain.User, error) {
	if err := policy.CanManageUser(pr, id); err != nil {
		return domain.User{}, err
	}
	if opts.Role != nil {
		if !pr.IsAdmin() {
			return domain.User{}, policy.ForbiddenError{Reason: "only admins can change roles"}
		}
		if !domain.ValidRole(*opts.Role) {
			return domain.User{}, validation("invalid role")
		}
	}
	fields := repo.UserFields{FirstName: opts.FirstName, LastName: opts.LastName, Role: opts.Role}
	if err := e.Repo.UpdateUser(ctx, id, e.timestamp(), fields); err != nil {
		return domain.User{}, err
	}
	return e.Repo.GetUser(ctx, id)
}

// DeleteUser removes an account. A user who is the sole member of any
// project, or who still authored tasks or comments, cannot be deleted; the
// guard runs inside the DELETE so the checks and the write stay atomic.
func (e Engine) DeleteUser(ctx context.Context, pr policy.Principal, id string) error {
	if err := policy.CanManageUser(pr, id); err != nil {
		return err
	}
	if _, err := e.Repo.GetUser(ctx, id); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	affected, err := e.Repo.DeleteUserGuarded(ctx, tx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		exists, err := e.Repo.UserExists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return repo.ErrNotFound
		}
		n, err := e.Repo.CountSoleMemberships(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return conflict("user is the last member of a project")
		}
		return conflict("user still owns tasks or comments")
	}
	if err := e.Events.Append(ctx, tx, "user.deleted", "", "user", id, pr.ID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}
