// Package token creates and parses the signed tokens used for
// authentication.
//
// TOKEN MODEL:
// Two kinds of token come out of the same codec, discriminated by a "typ"
// claim so one can never be presented as the other:
//
//   - access  — short-lived, self-verifying, carries userID + email + role.
//     Validated on every API call with no store lookup.
//   - refresh — long-lived, carries only the userID (plus a unique jti).
//     Only ever exchanged at the refresh endpoint, where the session
//     store decides whether this exact string is still the live one.
//
// The codec is pure: it signs and verifies, nothing else. Revocation lives
// in the session store, keyed per device, layered on top of the refresh
// token's validity.
//
// Signing is HS256 (HMAC-SHA256). The parser pins the algorithm with
// jwt.WithValidMethods so a token claiming a different "alg" is rejected
// outright.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/dayloop/planner/internal/apperror"
	"github.com/dayloop/planner/internal/model"
)

const (
	issuer      = "planner"
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// Codec signs and verifies access and refresh tokens.
//
// It holds the HMAC secret used for both operations. The secret should be at
// least 32 bytes of random data in production, e.g.
// JWT_SECRET=$(openssl rand -hex 32).
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec creates a Codec with the given secret and lifetimes.
func NewCodec(secret string, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	if len(secret) < 16 {
		return nil, errors.New("token: JWT secret must be at least 16 characters")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token: token lifetimes must be positive")
	}
	return &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// AccessClaims is what a verified access token asserts about its bearer.
type AccessClaims struct {
	UserID int64
	Email  string
	Role   model.UserRole
}

// RefreshClaims is what a verified refresh token asserts. The session store
// decides whether the token is still the live one for a device; the claims
// only establish who it was minted for and when.
type RefreshClaims struct {
	UserID   int64
	IssuedAt time.Time
}

// claims is the JWT payload for both token types. TokenType discriminates
// access from refresh; Email and Role are only set on access tokens.
type claims struct {
	TokenType string `json:"typ"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AccessTTL returns the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess mints a signed access token for the user. The second return
// value is the token lifetime in seconds, handed to clients so they know
// when to refresh.
func (c *Codec) IssueAccess(userID int64, email string, role model.UserRole) (string, int64, error) {
	now := time.Now()

	cl := claims{
		TokenType: typeAccess,
		Email:     email,
		Role:      string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret)
	if err != nil {
		return "", 0, fmt.Errorf("token: signing access token: %w", err)
	}

	return signed, int64(c.accessTTL.Seconds()), nil
}

// IssueRefresh mints a signed refresh token for the user.
//
// Every refresh token carries a fresh jti (xid). Without it, two tokens
// minted for the same user within the same second would serialize to the
// same string — and rotation depends on the new token being distinguishable
// from the one it replaces.
func (c *Codec) IssueRefresh(userID int64) (string, error) {
	now := time.Now()

	cl := claims{
		TokenType: typeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: signing refresh token: %w", err)
	}

	return signed, nil
}

// ParseAccess verifies an access token and returns its claims.
// Fails with apperror.ErrTokenExpired on expiry and apperror.ErrTokenInvalid
// on any other defect, including a refresh token presented as access.
func (c *Codec) ParseAccess(tokenStr string) (*AccessClaims, error) {
	cl, err := c.parse(tokenStr, typeAccess)
	if err != nil {
		return nil, err
	}

	userID, err := strconv.ParseInt(cl.Subject, 10, 64)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrTokenInvalid, "token subject is not a user id")
	}

	return &AccessClaims{
		UserID: userID,
		Email:  cl.Email,
		Role:   model.UserRole(cl.Role),
	}, nil
}

// ParseRefresh verifies a refresh token and returns its claims.
func (c *Codec) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	cl, err := c.parse(tokenStr, typeRefresh)
	if err != nil {
		return nil, err
	}

	userID, err := strconv.ParseInt(cl.Subject, 10, 64)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrTokenInvalid, "token subject is not a user id")
	}

	return &RefreshClaims{
		UserID:   userID,
		IssuedAt: cl.IssuedAt.Time,
	}, nil
}

// parse verifies the signature, issuer, expiry, and type discriminator.
func (c *Codec) parse(tokenStr, wantType string) (*claims, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.Wrap(apperror.ErrTokenExpired, wantType+" token has expired")
		}
		return nil, apperror.Wrap(apperror.ErrTokenInvalid, wantType+" token is invalid")
	}

	cl, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, apperror.Wrap(apperror.ErrTokenInvalid, wantType+" token claims are invalid")
	}

	// Type discriminator: a refresh token must never pass as access or
	// vice versa, even though both carry valid signatures.
	if cl.TokenType != wantType {
		return nil, apperror.Wrap(apperror.ErrTokenInvalid,
			fmt.Sprintf("token is not an %s token", wantType))
	}

	if cl.Subject == "" {
		return nil, apperror.Wrap(apperror.ErrTokenInvalid, "token has no subject")
	}

	return cl, nil
}
