package model

import "time"

// OAuthProvider identifies a supported external identity provider.
type OAuthProvider string

const (
	ProviderGoogle OAuthProvider = "GOOGLE"
	ProviderApple  OAuthProvider = "APPLE"
	ProviderKakao  OAuthProvider = "KAKAO"
)

// Valid reports whether p is one of the supported providers.
func (p OAuthProvider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderApple, ProviderKakao:
		return true
	}
	return false
}

// IdentityLink associates an external (provider, providerID) identity with a
// local user account.
//
// Links are never hard-deleted. Unlinking stamps UnlinkedAt; an unlinked link
// can no longer authenticate, and re-linking the same external identity
// creates a fresh row rather than clearing the stamp. That keeps the history
// of every linkage the account ever had.
type IdentityLink struct {
	ID         int64         `json:"id"         db:"id"`
	Provider   OAuthProvider `json:"provider"   db:"provider"`
	ProviderID string        `json:"providerId" db:"provider_id"`
	UserID     int64         `json:"userId"     db:"user_id"`
	UnlinkedAt *time.Time    `json:"-"          db:"unlinked_at"`
	CreatedAt  time.Time     `json:"createdAt"  db:"created_at"`
}

// Unlinked reports whether this link has been severed.
func (l IdentityLink) Unlinked() bool {
	return l.UnlinkedAt != nil
}
