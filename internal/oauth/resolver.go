package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/dayloop/planner/internal/apperror"
	"github.com/dayloop/planner/internal/model"
	"github.com/dayloop/planner/internal/repository"
)

// Resolver maps a verified external identity onto exactly one local user
// account, creating the account on first login.
//
// RESOLUTION ORDER:
//  1. An existing link for (provider, providerID) wins. If the latest link
//     was explicitly unlinked, resolution fails — re-linking is a deliberate
//     user action, never a silent side effect of logging in.
//  2. No link but the provider supplied an email that matches an existing
//     account: reuse that account and link the new provider to it. This is
//     what keeps "sign up with password, later log in with Google" from
//     forking into two accounts.
//  3. Otherwise a brand-new user is created together with its first link.
//
// The resolver only resolves. It never mints tokens and never judges
// account status — both belong to the auth service.
type Resolver struct {
	verifiers Verifiers
	users     repository.UserRepository
	links     repository.IdentityLinkRepository
	logger    *slog.Logger
}

// NewResolver creates a Resolver over the given verifier set and
// repositories.
func NewResolver(
	verifiers Verifiers,
	users repository.UserRepository,
	links repository.IdentityLinkRepository,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		verifiers: verifiers,
		users:     users,
		links:     links,
		logger:    logger,
	}
}

// Resolve verifies the provider token and returns the local user it belongs
// to, creating user and link records as needed.
func (r *Resolver) Resolve(ctx context.Context, provider model.OAuthProvider, providerToken string) (*model.User, error) {
	verifier, ok := r.verifiers[provider]
	if !ok {
		return nil, apperror.Wrap(apperror.ErrOAuthVerification,
			fmt.Sprintf("provider %s is not configured", provider))
	}

	identity, err := verifier.Verify(ctx, providerToken)
	if err != nil {
		return nil, fmt.Errorf("oauth: verifying %s token: %w", provider, err)
	}

	// Path 1: known external identity.
	link, err := r.links.GetLinkByProviderID(ctx, provider, identity.ProviderID)
	switch {
	case err == nil:
		if link.Unlinked() {
			return nil, apperror.Wrap(apperror.ErrAccountUnlinked,
				fmt.Sprintf("%s account was unlinked; link it again to log in", provider))
		}
		user, err := r.users.GetUserByID(ctx, link.UserID)
		if err != nil {
			return nil, fmt.Errorf("oauth: loading user %d for link %d: %w", link.UserID, link.ID, err)
		}
		return user, nil
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("oauth: looking up %s link: %w", provider, err)
	}

	// Path 2: unknown external identity, known email — merge onto the
	// existing account.
	if identity.Email != "" {
		user, err := r.users.GetUserByEmail(ctx, identity.Email)
		switch {
		case err == nil:
			if err := r.createLink(ctx, provider, identity.ProviderID, user.ID); err != nil {
				return nil, err
			}
			r.logger.Info("linked provider to existing account by email",
				slog.String("provider", string(provider)),
				slog.Int64("userID", user.ID),
			)
			return user, nil
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, fmt.Errorf("oauth: looking up user by email: %w", err)
		}
	}

	// Path 3: first login ever for this identity — create the account.
	// With neither an email nor a name there is nothing to build an
	// account from; the client must request the profile scopes.
	if identity.Email == "" && identity.Name == "" {
		return nil, apperror.Wrap(apperror.ErrInsufficientIdentity,
			fmt.Sprintf("%s returned no email or name for a first-time login", provider))
	}

	user := &model.User{
		Name:   displayName(identity),
		Status: model.StatusActive,
		Role:   model.RoleUser,
	}
	if identity.Email != "" {
		email := identity.Email
		user.Email = &email
	}

	if err := r.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("oauth: creating user for %s login: %w", provider, err)
	}
	if err := r.createLink(ctx, provider, identity.ProviderID, user.ID); err != nil {
		return nil, err
	}

	r.logger.Info("created account from first oauth login",
		slog.String("provider", string(provider)),
		slog.Int64("userID", user.ID),
	)
	return user, nil
}

func (r *Resolver) createLink(ctx context.Context, provider model.OAuthProvider, providerID string, userID int64) error {
	link := &model.IdentityLink{
		Provider:   provider,
		ProviderID: providerID,
		UserID:     userID,
		CreatedAt:  time.Now(),
	}
	if err := r.links.CreateLink(ctx, link); err != nil {
		return fmt.Errorf("oauth: creating %s link for user %d: %w", provider, userID, err)
	}
	return nil
}

// displayName picks a display name for a first-time account: the provider's
// name if it sent one, the email local-part otherwise, and a synthetic
// fallback when neither exists.
func displayName(identity *Identity) string {
	if identity.Name != "" {
		return identity.Name
	}
	if identity.Email != "" {
		if local, _, found := strings.Cut(identity.Email, "@"); found && local != "" {
			return local
		}
	}
	return "user-" + xid.New().String()
}
