// Package model defines the data structures used throughout the application.
package model

import "time"

// UserStatus describes whether an account may authenticate.
//
// Transitions:
//
//	ACTIVE    → SUSPENDED / BANNED (moderation), WITHDRAWN (self-service)
//	SUSPENDED → ACTIVE (moderation)
//	WITHDRAWN → ACTIVE (OAuth re-login only — see service.AuthService)
//	BANNED    → (terminal; never reactivated automatically)
type UserStatus string

const (
	StatusActive    UserStatus = "ACTIVE"
	StatusSuspended UserStatus = "SUSPENDED"
	StatusBanned    UserStatus = "BANNED"
	StatusWithdrawn UserStatus = "WITHDRAWN"
)

// CanLogin reports whether an account in this status may obtain or refresh
// tokens. WITHDRAWN is excluded here even though an OAuth re-login can revive
// it — that reactivation is an explicit decision of the auth service, not a
// property of the status itself.
func (s UserStatus) CanLogin() bool {
	return s == StatusActive
}

// UserRole is the coarse authorization level embedded in access tokens.
type UserRole string

const (
	RoleUser      UserRole = "USER"
	RoleModerator UserRole = "MODERATOR"
	RoleAdmin     UserRole = "ADMIN"
)

// User represents a registered account.
//
// WHY POINTERS FOR Email AND PasswordHash?
// OAuth-only accounts may have neither: Apple reveals the email only on the
// first consent, and accounts created through a provider never set a
// password. A nil PasswordHash means password login is impossible for this
// account (a different condition from a wrong password, and surfaced as a
// different error). An empty string can't represent that distinction.
//
// User values are treated as immutable: the With* helpers return an updated
// copy and the repository persists the latest value. Nothing mutates a User
// that another request might be holding.
type User struct {
	ID           int64      `json:"id"              db:"id"`
	Email        *string    `json:"email,omitempty" db:"email"`
	PasswordHash *string    `json:"-"               db:"password_hash"`
	Name         string     `json:"name"            db:"name"`
	Status       UserStatus `json:"status"          db:"status"`
	Role         UserRole   `json:"role"            db:"role"`
	DeletedAt    *time.Time `json:"-"               db:"deleted_at"`
	CreatedAt    time.Time  `json:"createdAt"       db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt"       db:"updated_at"`
}

// EmailOrEmpty returns the email or "" when none is on record.
func (u User) EmailOrEmpty() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// WithStatus returns a copy of the user in the given status. A transition to
// WITHDRAWN stamps the deletion time; any transition away from it clears the
// stamp, so a reactivated account looks fully live again.
func (u User) WithStatus(status UserStatus, now time.Time) User {
	out := u
	out.Status = status
	out.UpdatedAt = now
	if status == StatusWithdrawn {
		t := now
		out.DeletedAt = &t
	} else {
		out.DeletedAt = nil
	}
	return out
}
