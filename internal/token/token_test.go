package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dayloop/planner/internal/apperror"
	"github.com/dayloop/planner/internal/model"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(testSecret, 15*time.Minute, 14*24*time.Hour)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestNewCodec_RejectsShortSecret(t *testing.T) {
	if _, err := NewCodec("short", time.Minute, time.Hour); err == nil {
		t.Fatal("NewCodec should reject a secret shorter than 16 characters")
	}
}

func TestNewCodec_RejectsNonPositiveTTL(t *testing.T) {
	if _, err := NewCodec(testSecret, 0, time.Hour); err == nil {
		t.Fatal("NewCodec should reject a zero access TTL")
	}
}

func TestAccessToken_RoundTrip(t *testing.T) {
	c := newTestCodec(t)

	signed, expiresIn, err := c.IssueAccess(42, "a@x.com", model.RoleUser)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if expiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("expiresIn = %d, want %d", expiresIn, int64((15*time.Minute).Seconds()))
	}

	claims, err := c.ParseAccess(signed)
	if err != nil {
		t.Fatalf("ParseAccess: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Email != "a@x.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "a@x.com")
	}
	if claims.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", claims.Role, model.RoleUser)
	}
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	c := newTestCodec(t)

	signed, err := c.IssueRefresh(7)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	claims, err := c.ParseRefresh(signed)
	if err != nil {
		t.Fatalf("ParseRefresh: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("UserID = %d, want 7", claims.UserID)
	}
	if claims.IssuedAt.IsZero() {
		t.Error("IssuedAt should be set")
	}
}

// Rotation depends on back-to-back refresh tokens being distinct strings.
// The jti claim guarantees that even within the same second.
func TestRefreshToken_ConsecutiveTokensDiffer(t *testing.T) {
	c := newTestCodec(t)

	first, err := c.IssueRefresh(1)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	second, err := c.IssueRefresh(1)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	if first == second {
		t.Error("two refresh tokens for the same user must not be identical")
	}
}

func TestTypeDiscriminator(t *testing.T) {
	c := newTestCodec(t)

	access, _, err := c.IssueAccess(1, "a@x.com", model.RoleUser)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, err := c.IssueRefresh(1)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	if _, err := c.ParseRefresh(access); !errors.Is(err, apperror.ErrTokenInvalid) {
		t.Errorf("ParseRefresh(access token) error = %v, want ErrTokenInvalid", err)
	}
	if _, err := c.ParseAccess(refresh); !errors.Is(err, apperror.ErrTokenInvalid) {
		t.Errorf("ParseAccess(refresh token) error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseAccess_TamperedToken(t *testing.T) {
	c := newTestCodec(t)

	signed, _, err := c.IssueAccess(1, "a@x.com", model.RoleUser)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	// Flip a character in the payload segment; the signature no longer
	// matches.
	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		t.Fatalf("token should have 3 segments, got %d", len(parts))
	}
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := c.ParseAccess(tampered); !errors.Is(err, apperror.ErrTokenInvalid) {
		t.Errorf("ParseAccess(tampered) error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseAccess_WrongSecret(t *testing.T) {
	c := newTestCodec(t)
	other, err := NewCodec("a-completely-different-secret!!!", 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	signed, _, err := other.IssueAccess(1, "a@x.com", model.RoleUser)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	if _, err := c.ParseAccess(signed); !errors.Is(err, apperror.ErrTokenInvalid) {
		t.Errorf("ParseAccess(foreign token) error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseAccess_Expired(t *testing.T) {
	c, err := NewCodec(testSecret, time.Millisecond, time.Millisecond)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	signed, _, err := c.IssueAccess(1, "a@x.com", model.RoleUser)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if _, err := c.ParseAccess(signed); !errors.Is(err, apperror.ErrTokenExpired) {
		t.Errorf("ParseAccess(expired) error = %v, want ErrTokenExpired", err)
	}
}

func TestParseRefresh_Garbage(t *testing.T) {
	c := newTestCodec(t)

	if _, err := c.ParseRefresh("this.is.garbage"); !errors.Is(err, apperror.ErrTokenInvalid) {
		t.Errorf("ParseRefresh(garbage) error = %v, want ErrTokenInvalid", err)
	}
}
