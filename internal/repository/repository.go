// Package repository declares the persistence interfaces the services depend
// on. Concrete implementations live in subpackages (sqlite); services only
// ever see these interfaces.
package repository

import (
	"context"
	"time"

	"github.com/dayloop/planner/internal/model"
)

// ListOptions carries pagination for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository persists user accounts.
type UserRepository interface {
	// CreateUser inserts the user and fills in ID, CreatedAt, and
	// UpdatedAt. Returns apperror.ErrConflict if the email is already
	// registered.
	CreateUser(ctx context.Context, user *model.User) error

	// GetUserByID returns apperror.ErrNotFound if no such user exists.
	GetUserByID(ctx context.Context, id int64) (*model.User, error)

	// GetUserByEmail returns apperror.ErrNotFound if no user has this
	// email. Users without an email are never matched.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// UpdateUser persists the given value as the latest state of the user.
	UpdateUser(ctx context.Context, user *model.User) error
}

// IdentityLinkRepository persists OAuth identity links. Links are
// append-only: unlinking stamps a timestamp, re-linking inserts a new row.
type IdentityLinkRepository interface {
	// CreateLink inserts the link and fills in ID and CreatedAt.
	CreateLink(ctx context.Context, link *model.IdentityLink) error

	// GetLinkByProviderID returns the most recent link for the external
	// identity, linked or not — the caller decides what an unlinked one
	// means. Returns apperror.ErrNotFound if the identity has never been
	// linked.
	GetLinkByProviderID(ctx context.Context, provider model.OAuthProvider, providerID string) (*model.IdentityLink, error)

	// Unlink stamps the link's unlink time. Idempotent.
	Unlink(ctx context.Context, id int64, now time.Time) error
}

// TaskRepository persists planner tasks.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTaskByID(ctx context.Context, id int64) (*model.Task, error)
	ListTasksByUser(ctx context.Context, userID int64, opts ListOptions) ([]model.Task, error)
	UpdateTask(ctx context.Context, task *model.Task) error
	DeleteTask(ctx context.Context, id int64) error
}
