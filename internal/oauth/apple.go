package oauth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dayloop/planner/internal/apperror"
)

const (
	appleJWKSURL = "https://appleid.apple.com/auth/keys"
	appleIssuer  = "https://appleid.apple.com"

	// How long a fetched key set is trusted before refetching. Apple
	// rotates keys rarely; an unknown kid forces an immediate refetch
	// regardless.
	appleKeyCacheTTL = 24 * time.Hour
)

// AppleVerifier validates a Sign in with Apple identity token.
//
// Unlike Google and Kakao there is no userinfo endpoint to call: the
// provider token IS a JWT, RS256-signed by Apple. Verification means
// checking the signature against Apple's published JWKS, the issuer, and
// the audience (our client ID).
//
// EMAIL CAVEAT:
// Apple includes the email claim only on the first consent. Repeat logins
// carry just the stable subject — the resolver handles the empty email.
type AppleVerifier struct {
	clientID string
	jwksURL  string
	timeout  time.Duration

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey // by kid
	fetchedAt time.Time
}

// NewAppleVerifier creates an AppleVerifier. clientID is the app's
// bundle/service identifier — the audience Apple mints tokens for.
func NewAppleVerifier(clientID string, timeout time.Duration) *AppleVerifier {
	return &AppleVerifier{
		clientID: clientID,
		jwksURL:  appleJWKSURL,
		timeout:  timeout,
	}
}

// appleClaims is the identity-token payload we consume.
type appleClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verify implements Verifier.
func (v *AppleVerifier) Verify(ctx context.Context, providerToken string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	parsed, err := jwt.ParseWithClaims(
		providerToken,
		&appleClaims{},
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, fmt.Errorf("identity token has no kid header")
			}
			return v.keyForKid(ctx, kid)
		},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(appleIssuer),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrOAuthVerification, "apple identity token did not verify")
	}

	claims, ok := parsed.Claims.(*appleClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, apperror.Wrap(apperror.ErrOAuthVerification, "apple identity token has no subject")
	}

	return &Identity{
		ProviderID: claims.Subject,
		Email:      claims.Email,
		// Apple never puts a name in the identity token.
	}, nil
}

// keyForKid returns the RSA public key for a signing key ID, refetching the
// JWKS when the cache is stale or the kid is unknown.
func (v *AppleVerifier) keyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fresh := time.Since(v.fetchedAt) < appleKeyCacheTTL
	if key, ok := v.keys[kid]; ok && fresh {
		return key, nil
	}

	if err := v.fetchKeysLocked(ctx); err != nil {
		return nil, err
	}

	key, ok := v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("apple JWKS has no key %q", kid)
	}
	return key, nil
}

// appleJWKS is the shape of Apple's key-set document.
type appleJWKS struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

// fetchKeysLocked downloads Apple's JWKS and rebuilds the key cache.
// Caller must hold v.mu.
func (v *AppleVerifier) fetchKeysLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("building JWKS request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching apple JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("apple JWKS returned status %d", resp.StatusCode)
	}

	var doc appleJWKS
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decoding apple JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaKeyFromJWK(k.N, k.E)
		if err != nil {
			return fmt.Errorf("decoding apple key %q: %w", k.Kid, err)
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("apple JWKS contained no RSA keys")
	}

	v.keys = keys
	v.fetchedAt = time.Now()
	return nil
}

// rsaKeyFromJWK builds an rsa.PublicKey from base64url-encoded modulus and
// exponent.
func rsaKeyFromJWK(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
