// Package handler implements the HTTP layer: request parsing, response
// shaping, and the mapping from domain errors to status codes. Nothing in
// here contains business rules — handlers delegate to the services.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dayloop/planner/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints:
//
//	{"error": "token_reuse", "message": "refresh token was already used; ..."}
//
// The error field is the machine-readable kind; message is for humans.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code. Headers and
// status must be written before the body — Encode writes the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to HTTP and sends it.
//
// Everything in the apperror taxonomy is caller-recoverable and maps to a
// 4xx. Anything else — including session-store and database outages — is a
// 500 with a generic message; internal details never reach the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status, errorType = http.StatusBadRequest, "validation_error"
		case errors.Is(err, apperror.ErrInvalidCredentials):
			status, errorType = http.StatusUnauthorized, "invalid_credentials"
		case errors.Is(err, apperror.ErrAccountOAuthOnly):
			status, errorType = http.StatusBadRequest, "oauth_only_account"
		case errors.Is(err, apperror.ErrAccountNotUsable):
			status, errorType = http.StatusForbidden, "account_not_usable"
		case errors.Is(err, apperror.ErrAccountUnlinked):
			status, errorType = http.StatusForbidden, "account_unlinked"
		case errors.Is(err, apperror.ErrOAuthVerification):
			status, errorType = http.StatusUnauthorized, "oauth_verification_failed"
		case errors.Is(err, apperror.ErrInsufficientIdentity):
			status, errorType = http.StatusBadRequest, "insufficient_identity_info"
		case errors.Is(err, apperror.ErrTokenInvalid):
			status, errorType = http.StatusUnauthorized, "token_invalid"
		case errors.Is(err, apperror.ErrTokenExpired):
			status, errorType = http.StatusUnauthorized, "token_expired"
		case errors.Is(err, apperror.ErrRefreshNotFound):
			status, errorType = http.StatusUnauthorized, "refresh_not_found"
		case errors.Is(err, apperror.ErrRefreshExpired):
			status, errorType = http.StatusUnauthorized, "refresh_expired"
		case errors.Is(err, apperror.ErrTokenReuse):
			status, errorType = http.StatusUnauthorized, "token_reuse"
		case errors.Is(err, apperror.ErrNotFound):
			status, errorType = http.StatusNotFound, "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status, errorType = http.StatusForbidden, "forbidden"
		case errors.Is(err, apperror.ErrConflict):
			status, errorType = http.StatusConflict, "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "an internal error occurred",
	})
}
