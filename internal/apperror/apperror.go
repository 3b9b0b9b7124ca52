// Package apperror defines the application's error taxonomy.
//
// Every caller-facing failure is one of the sentinel errors below, wrapped in
// an *AppError that carries a human-readable message. Services return these;
// the HTTP layer maps them to status codes with errors.Is. Infrastructure
// failures (database down, Redis unreachable) are NOT part of this taxonomy —
// they stay plain wrapped errors and surface as 500s, so an outage can never
// masquerade as "session not found".
package apperror

import (
	"errors"
	"fmt"
)

// Generic CRUD sentinels.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

// Authentication and session sentinels.
//
// ErrInvalidCredentials covers both "no such user" and "wrong password" —
// the two are indistinguishable to the caller to prevent account enumeration.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountOAuthOnly     = errors.New("account has no password")
	ErrAccountNotUsable     = errors.New("account not usable")
	ErrAccountUnlinked      = errors.New("oauth account unlinked")
	ErrOAuthVerification    = errors.New("oauth verification failed")
	ErrInsufficientIdentity = errors.New("insufficient identity info")
	ErrTokenInvalid         = errors.New("token invalid")
	ErrTokenExpired         = errors.New("token expired")
	ErrRefreshNotFound      = errors.New("refresh session not found")
	ErrRefreshExpired       = errors.New("refresh session expired")
	ErrTokenReuse           = errors.New("refresh token reuse detected")
)

// AppError pairs a sentinel with a message safe to show the caller.
type AppError struct {
	Err     error  // sentinel (one of the vars above)
	Message string // human-readable error message
	Field   string // optional: field causing a validation error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap builds an AppError around a sentinel with a plain message.
func Wrap(sentinel error, message string) *AppError {
	return &AppError{Err: sentinel, Message: message}
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, detail string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict: %s", resource, detail),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// InvalidCredentials is returned for a missing user AND for a wrong
// password, with the same message in both cases.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "email or password is incorrect",
	}
}

// AccountNotUsable reports a status that forbids authentication.
func AccountNotUsable(status string) *AppError {
	return &AppError{
		Err:     ErrAccountNotUsable,
		Message: fmt.Sprintf("account is %s and cannot be used", status),
	}
}
