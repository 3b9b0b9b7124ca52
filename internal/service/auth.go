// Package service — business logic.
//
// AuthService is the orchestrator of the session subsystem. It sits between
// the HTTP handlers and the auth primitives:
//
//	AuthHandler (HTTP) → AuthService (rules) → UserRepository (DB)
//	                   ↘ oauth.Resolver (identity) ↘ session.Store (Redis)
//	                   ↘ token.Codec (JWT)
//
// Every cross-cutting invariant of session handling lives here:
//   - a (user, device) pair holds at most one live refresh token
//   - every successful refresh rotates the refresh token
//   - presenting a superseded refresh token is treated as theft and burns
//     every session the user has
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dayloop/planner/internal/apperror"
	"github.com/dayloop/planner/internal/auth"
	"github.com/dayloop/planner/internal/model"
	"github.com/dayloop/planner/internal/repository"
	"github.com/dayloop/planner/internal/session"
	"github.com/dayloop/planner/internal/token"
)

// IdentityResolver is what AuthService needs from the OAuth side: a verified
// provider token in, a local user out. Satisfied by *oauth.Resolver.
type IdentityResolver interface {
	Resolve(ctx context.Context, provider model.OAuthProvider, providerToken string) (*model.User, error)
}

// AuthService implements login, refresh, and logout across password and
// OAuth identities.
type AuthService struct {
	users     repository.UserRepository
	sessions  session.Store
	codec     *token.Codec
	passwords *auth.PasswordService
	resolver  IdentityResolver
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Called once in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	sessions session.Store,
	codec *token.Codec,
	passwords *auth.PasswordService,
	resolver IdentityResolver,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		codec:     codec,
		passwords: passwords,
		resolver:  resolver,
		logger:    logger,
	}
}

// Register creates a password account. The email must be unused; the
// repository reports a duplicate as apperror.ErrConflict.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if len(password) < 8 {
		return nil, apperror.ValidationFailed("password", "password must be at least 8 characters")
	}
	if name = strings.TrimSpace(name); name == "" {
		if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
			name = local
		}
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        &email,
		PasswordHash: &hash,
		Name:         name,
		Status:       model.StatusActive,
		Role:         model.RoleUser,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.Int64("userID", user.ID))
	return user, nil
}

// Login authenticates email+password and opens a session for the device.
//
// "No such user" and "wrong password" both come back as InvalidCredentials —
// the caller must not be able to probe which emails have accounts.
func (s *AuthService) Login(ctx context.Context, email, password, deviceID string) (*model.TokenPair, error) {
	if deviceID == "" {
		return nil, apperror.ValidationFailed("deviceId", "device id is required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: loading user by email: %w", err)
	}

	if user.PasswordHash == nil {
		return nil, apperror.Wrap(apperror.ErrAccountOAuthOnly,
			"this account signs in with an external provider")
	}

	ok, err := s.passwords.Matches(password, *user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}
	if !ok {
		return nil, apperror.InvalidCredentials()
	}

	if !user.Status.CanLogin() {
		return nil, apperror.AccountNotUsable(string(user.Status))
	}

	pair, err := s.issueAndSave(ctx, user, deviceID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("password login",
		slog.Int64("userID", user.ID),
		slog.String("deviceID", deviceID),
	)
	return pair, nil
}

// OAuthLogin authenticates a provider token and opens a session for the
// device.
//
// REACTIVATION RULE:
// A WITHDRAWN account is revived by a successful OAuth login — the provider
// re-authenticated the same person, which is taken as proof of continued
// ownership. A BANNED or SUSPENDED account is never revived this way.
func (s *AuthService) OAuthLogin(ctx context.Context, provider model.OAuthProvider, providerToken, deviceID string) (*model.TokenPair, error) {
	if !provider.Valid() {
		return nil, apperror.ValidationFailed("provider", "unknown oauth provider")
	}
	if deviceID == "" {
		return nil, apperror.ValidationFailed("deviceId", "device id is required")
	}

	user, err := s.resolver.Resolve(ctx, provider, providerToken)
	if err != nil {
		return nil, fmt.Errorf("service/auth: resolving %s identity: %w", provider, err)
	}

	if user.Status == model.StatusWithdrawn {
		revived := user.WithStatus(model.StatusActive, time.Now())
		if err := s.users.UpdateUser(ctx, &revived); err != nil {
			return nil, fmt.Errorf("service/auth: reactivating user %d: %w", user.ID, err)
		}
		user = &revived
		s.logger.Info("withdrawn account reactivated by oauth login",
			slog.Int64("userID", user.ID),
			slog.String("provider", string(provider)),
		)
	}

	if !user.Status.CanLogin() {
		return nil, apperror.AccountNotUsable(string(user.Status))
	}

	pair, err := s.issueAndSave(ctx, user, deviceID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("oauth login",
		slog.Int64("userID", user.ID),
		slog.String("provider", string(provider)),
		slog.String("deviceID", deviceID),
	)
	return pair, nil
}

// Refresh exchanges a refresh token for a new token pair, rotating the
// refresh token.
//
// THEFT DETECTION:
// The store holds exactly one live refresh token per device. If the
// presented token parses but does not byte-for-byte match the stored one,
// somebody is replaying a token that rotation already superseded — either
// the legitimate client raced itself, or the token was stolen. Both are
// treated as compromise: every session the user has is deleted, and the
// caller gets TokenReuseDetected. Two concurrent refreshes with the same
// token therefore cannot both win; the store's per-key upsert is the
// serialization point.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, deviceID string) (*model.TokenPair, error) {
	if deviceID == "" {
		return nil, apperror.ValidationFailed("deviceId", "device id is required")
	}

	claims, err := s.codec.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Find(ctx, claims.UserID, deviceID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, apperror.Wrap(apperror.ErrRefreshNotFound,
				"no session for this device; log in again")
		}
		// Store outage — must not be reported as a missing session.
		return nil, fmt.Errorf("service/auth: loading session: %w", err)
	}

	if sess.RefreshToken != refreshToken {
		s.logger.Warn("refresh token reuse detected, revoking all sessions",
			slog.Int64("userID", claims.UserID),
			slog.String("deviceID", deviceID),
		)
		if err := s.deleteAllSessions(ctx, claims.UserID); err != nil {
			// A revocation that did not happen must not be reported
			// as TokenReuse.
			return nil, fmt.Errorf("service/auth: revoking sessions after reuse detection: %w", err)
		}
		return nil, apperror.Wrap(apperror.ErrTokenReuse,
			"refresh token was already used; all sessions have been revoked")
	}

	if sess.Expired(time.Now()) {
		if err := s.sessions.Delete(ctx, claims.UserID, deviceID); err != nil {
			return nil, fmt.Errorf("service/auth: deleting expired session: %w", err)
		}
		return nil, apperror.Wrap(apperror.ErrRefreshExpired,
			"session expired; log in again")
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			if derr := s.deleteAllSessions(ctx, claims.UserID); derr != nil {
				return nil, fmt.Errorf("service/auth: revoking sessions of missing user: %w", derr)
			}
			return nil, apperror.AccountNotUsable("deleted")
		}
		return nil, fmt.Errorf("service/auth: loading user %d: %w", claims.UserID, err)
	}
	if !user.Status.CanLogin() {
		if err := s.deleteAllSessions(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("service/auth: revoking sessions of unusable account: %w", err)
		}
		return nil, apperror.AccountNotUsable(string(user.Status))
	}

	return s.issueAndSave(ctx, user, deviceID)
}

// Logout ends the session on one device. Logging out a device with no
// session succeeds — the end state is the same.
func (s *AuthService) Logout(ctx context.Context, userID int64, deviceID string) error {
	if err := s.sessions.Delete(ctx, userID, deviceID); err != nil {
		return fmt.Errorf("service/auth: logging out user %d device %s: %w", userID, deviceID, err)
	}
	return nil
}

// LogoutAll ends the user's sessions on every device.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64) error {
	if err := s.sessions.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("service/auth: logging out all devices of user %d: %w", userID, err)
	}
	return nil
}

// ValidateToken verifies an access token and returns its claims. Stateless:
// no store lookup, which is why revocation granularity is the refresh token,
// not the access token.
func (s *AuthService) ValidateToken(accessToken string) (*token.AccessClaims, error) {
	return s.codec.ParseAccess(accessToken)
}

// Withdraw soft-deletes the account (status WITHDRAWN plus deletion stamp)
// and ends every session. Reversible by a later OAuth login.
func (s *AuthService) Withdraw(ctx context.Context, userID int64) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/auth: loading user %d: %w", userID, err)
	}

	withdrawn := user.WithStatus(model.StatusWithdrawn, time.Now())
	if err := s.users.UpdateUser(ctx, &withdrawn); err != nil {
		return fmt.Errorf("service/auth: withdrawing user %d: %w", userID, err)
	}

	if err := s.deleteAllSessions(ctx, userID); err != nil {
		return fmt.Errorf("service/auth: revoking sessions of withdrawn user %d: %w", userID, err)
	}

	s.logger.Info("account withdrawn", slog.Int64("userID", userID))
	return nil
}

// GetUserByID returns the user for the given internal ID. Used by /api/me
// after the middleware has validated the access token.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, err)
	}
	return user, nil
}

// issueAndSave mints an access+refresh pair and persists the refresh half
// keyed by (userID, deviceID). This is the single place rotation happens:
// Save overwrites whatever token the device held before, which is what makes
// the reuse check in Refresh meaningful.
//
// If persisting fails, the minted tokens are never returned — an issued-but-
// unpersisted pair would refresh into TokenReuseDetected later, so the
// caller gets the error now and retries the whole operation instead.
func (s *AuthService) issueAndSave(ctx context.Context, user *model.User, deviceID string) (*model.TokenPair, error) {
	access, accessExpiresIn, err := s.codec.IssueAccess(user.ID, user.EmailOrEmpty(), user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing access token: %w", err)
	}

	refresh, err := s.codec.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing refresh token: %w", err)
	}

	now := time.Now()
	sess := model.RefreshSession{
		UserID:       user.ID,
		DeviceID:     deviceID,
		RefreshToken: refresh,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.codec.RefreshTTL()),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("service/auth: persisting session: %w", err)
	}

	return &model.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresIn:  accessExpiresIn,
		RefreshExpiresIn: int64(s.codec.RefreshTTL().Seconds()),
	}, nil
}

// deleteAllSessions is DeleteAll with one retry. It backs the theft
// response, where leaving sessions alive after a detected compromise would
// leave the thief logged in, so a transient store error gets a second chance
// before surfacing.
func (s *AuthService) deleteAllSessions(ctx context.Context, userID int64) error {
	err := s.sessions.DeleteAll(ctx, userID)
	if err == nil {
		return nil
	}

	s.logger.Error("delete-all sessions failed, retrying",
		slog.Int64("userID", userID),
		slog.String("error", err.Error()),
	)
	if err := s.sessions.DeleteAll(ctx, userID); err != nil {
		s.logger.Error("delete-all sessions failed after retry",
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}
