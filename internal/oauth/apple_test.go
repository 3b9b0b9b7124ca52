package oauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dayloop/planner/internal/apperror"
)

const appleTestClientID = "com.example.planner"

// appleFixture signs identity tokens with a locally generated RSA key and
// serves the matching JWKS, standing in for appleid.apple.com.
type appleFixture struct {
	key      *rsa.PrivateKey
	kid      string
	jwks     *httptest.Server
	fetches  int
	verifier *AppleVerifier
}

func newAppleFixture(t *testing.T) *appleFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}

	fx := &appleFixture{key: key, kid: "test-key-1"}

	fx.jwks = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fx.fetches++
		doc := map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": fx.kid,
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		}
		json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(fx.jwks.Close)

	fx.verifier = NewAppleVerifier(appleTestClientID, 2*time.Second)
	fx.verifier.jwksURL = fx.jwks.URL
	return fx
}

// sign mints an identity token the way Apple would.
func (fx *appleFixture) sign(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = fx.kid
	signed, err := tok.SignedString(fx.key)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func appleTokenClaims(subject, email string, expiresAt time.Time) appleClaims {
	return appleClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    appleIssuer,
			Audience:  jwt.ClaimStrings{appleTestClientID},
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
}

func TestAppleVerifier_ValidToken(t *testing.T) {
	fx := newAppleFixture(t)
	token := fx.sign(t, appleTokenClaims("apple-sub-1", "a@privaterelay.appleid.com", time.Now().Add(time.Hour)))

	identity, err := fx.verifier.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity.ProviderID != "apple-sub-1" {
		t.Errorf("ProviderID = %q, want apple-sub-1", identity.ProviderID)
	}
	if identity.Email != "a@privaterelay.appleid.com" {
		t.Errorf("Email = %q, want relay address", identity.Email)
	}
	if identity.Name != "" {
		t.Errorf("Name = %q, identity tokens carry no name", identity.Name)
	}
}

func TestAppleVerifier_RepeatLoginWithoutEmail(t *testing.T) {
	fx := newAppleFixture(t)
	token := fx.sign(t, appleTokenClaims("apple-sub-1", "", time.Now().Add(time.Hour)))

	identity, err := fx.verifier.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity.Email != "" {
		t.Errorf("Email = %q, want empty on repeat login", identity.Email)
	}
}

func TestAppleVerifier_Rejections(t *testing.T) {
	fx := newAppleFixture(t)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}

	wrongAudience := appleTokenClaims("apple-sub-1", "", time.Now().Add(time.Hour))
	wrongAudience.Audience = jwt.ClaimStrings{"com.someone.else"}

	wrongIssuer := appleTokenClaims("apple-sub-1", "", time.Now().Add(time.Hour))
	wrongIssuer.Issuer = "https://not-apple.example.com"

	noSubject := appleTokenClaims("", "", time.Now().Add(time.Hour))

	forged := jwt.NewWithClaims(jwt.SigningMethodRS256, appleTokenClaims("apple-sub-1", "", time.Now().Add(time.Hour)))
	forged.Header["kid"] = fx.kid
	forgedToken, err := forged.SignedString(otherKey)
	if err != nil {
		t.Fatalf("signing forged token: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"expired", fx.sign(t, appleTokenClaims("apple-sub-1", "", time.Now().Add(-time.Hour)))},
		{"wrong audience", fx.sign(t, wrongAudience)},
		{"wrong issuer", fx.sign(t, wrongIssuer)},
		{"no subject", fx.sign(t, noSubject)},
		{"signed by a different key", forgedToken},
		{"not a jwt at all", "this-is-not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.verifier.Verify(context.Background(), tt.token)
			if !errors.Is(err, apperror.ErrOAuthVerification) {
				t.Errorf("error = %v, want ErrOAuthVerification", err)
			}
		})
	}
}

func TestAppleVerifier_CachesJWKS(t *testing.T) {
	fx := newAppleFixture(t)
	token := fx.sign(t, appleTokenClaims("apple-sub-1", "", time.Now().Add(time.Hour)))

	for i := 0; i < 3; i++ {
		if _, err := fx.verifier.Verify(context.Background(), token); err != nil {
			t.Fatalf("Verify #%d: %v", i+1, err)
		}
	}

	if fx.fetches != 1 {
		t.Errorf("JWKS fetches = %d, want 1 (cached afterwards)", fx.fetches)
	}
}

func TestAppleVerifier_UnknownKidRefetches(t *testing.T) {
	fx := newAppleFixture(t)

	// Warm the cache with the current key.
	warm := fx.sign(t, appleTokenClaims("apple-sub-1", "", time.Now().Add(time.Hour)))
	if _, err := fx.verifier.Verify(context.Background(), warm); err != nil {
		t.Fatalf("warm Verify: %v", err)
	}

	// Rotate the server's key id; the cached set no longer has it.
	fx.kid = "test-key-2"
	rotated := fx.sign(t, appleTokenClaims("apple-sub-1", "", time.Now().Add(time.Hour)))

	if _, err := fx.verifier.Verify(context.Background(), rotated); err != nil {
		t.Fatalf("Verify after rotation: %v", err)
	}
	if fx.fetches != 2 {
		t.Errorf("JWKS fetches = %d, want 2 (unknown kid forces a refetch)", fx.fetches)
	}
}
