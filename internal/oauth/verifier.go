// Package oauth verifies provider tokens and resolves external identities
// onto local user accounts.
//
// PROVIDER DISPATCH:
// Each provider (Google, Apple, Kakao) gets its own Verifier implementation;
// the Resolver holds a map from provider tag to Verifier, built once at
// startup. Adding a provider is one new file plus one map entry — no
// reflection, no registry magic.
package oauth

import (
	"context"

	"github.com/dayloop/planner/internal/model"
)

// Identity is what a provider asserts about the bearer of a provider token.
// ProviderID is the provider's stable user identifier and is always present
// on success. Email and Name are best-effort: Apple, for example, reveals
// the email only on the first consent.
type Identity struct {
	ProviderID string
	Email      string
	Name       string
}

// Verifier converts a provider token into a verified Identity.
//
// Implementations fail with apperror.ErrOAuthVerification on any provider
// rejection, network failure, or malformed token — the caller never learns
// which, and doesn't need to: the remedy is the same (re-authenticate with
// the provider).
type Verifier interface {
	Verify(ctx context.Context, providerToken string) (*Identity, error)
}

// Verifiers maps provider tags to their verifier, assembled at startup.
type Verifiers map[model.OAuthProvider]Verifier
