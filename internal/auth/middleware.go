package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dayloop/planner/internal/token"
)

var errMissingToken = errors.New("auth: missing bearer token")

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the identity stored in a request context.
type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller, extracted from a verified access
// token. It carries exactly what the token carries — handlers needing the
// full user record load it themselves.
type Identity struct {
	UserID int64
	Email  string
	Role   string
}

// RequireAuth enforces authentication on protected routes.
//
// The access token travels in the Authorization header as a bearer token.
// The middleware validates it statelessly — no session-store lookup; access
// tokens are not individually revocable within their short lifetime — and
// puts the Identity in the request context. Missing or invalid tokens end
// the request with 401.
func RequireAuth(codec *token.Codec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := extractClaims(r, codec)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, Identity{
				UserID: claims.UserID,
				Email:  claims.Email,
				Role:   string(claims.Role),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves the authenticated caller from the request
// context. The second return is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != 0
}

// extractClaims reads and validates the bearer token from the Authorization
// header.
func extractClaims(r *http.Request, codec *token.Codec) (*token.AccessClaims, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, errMissingToken
	}
	return codec.ParseAccess(raw)
}
