package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dayloop/planner/internal/apperror"
	"github.com/dayloop/planner/internal/model"
	"github.com/dayloop/planner/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts the user and fills in ID, CreatedAt, and UpdatedAt.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, name, status, role, deleted_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email,
		user.PasswordHash,
		user.Name,
		string(user.Status),
		string(user.Role),
		user.DeletedAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		// The partial unique index on email reports as a constraint
		// violation; surface it as a conflict the handler can map to 409.
		if isUniqueViolation(err) {
			return apperror.Conflict("user", "email is already registered")
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return db.getUser(ctx,
		`SELECT id, email, password_hash, name, status, role, deleted_at, created_at, updated_at
		 FROM users WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email. Rows with a NULL email never match.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx,
		`SELECT id, email, password_hash, name, status, role, deleted_at, created_at, updated_at
		 FROM users WHERE email = ?`, email)
}

// UpdateUser persists the given value as the latest state of the user.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET email = ?, password_hash = ?, name = ?, status = ?, role = ?, deleted_at = ?, updated_at = ?
		 WHERE id = ?`,
		user.Email,
		user.PasswordHash,
		user.Name,
		string(user.Status),
		string(user.Role),
		user.DeletedAt,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %d: %w", user.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update of user %d: %w", user.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

func (db *DB) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	var (
		u      model.User
		status string
		role   string
	)

	err := db.conn.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&status,
		&role,
		&u.DeletedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", arg)
		}
		return nil, fmt.Errorf("sqlite: getting user %v: %w", arg, err)
	}

	u.Status = model.UserStatus(status)
	u.Role = model.UserRole(role)
	return &u, nil
}

// isUniqueViolation detects SQLite unique-constraint failures without
// depending on the driver's error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
