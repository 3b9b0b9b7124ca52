package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/dayloop/planner/internal/apperror"
)

const kakaoUserMeURL = "https://kapi.kakao.com/v2/user/me"

// KakaoVerifier validates a Kakao access token against the /v2/user/me API.
type KakaoVerifier struct {
	userMeURL string
	timeout   time.Duration
}

// NewKakaoVerifier creates a KakaoVerifier with the given call timeout.
func NewKakaoVerifier(timeout time.Duration) *KakaoVerifier {
	return &KakaoVerifier{
		userMeURL: kakaoUserMeURL,
		timeout:   timeout,
	}
}

// kakaoUserMe mirrors the nesting of Kakao's response: the numeric account
// ID at top level, email and profile under kakao_account. Email is present
// only when the user consented to sharing it.
type kakaoUserMe struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

// Verify implements Verifier.
func (v *KakaoVerifier) Verify(ctx context.Context, providerToken string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: providerToken,
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userMeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("oauth/kakao: building user/me request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrOAuthVerification, "kakao did not accept the token")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Wrap(apperror.ErrOAuthVerification,
			fmt.Sprintf("kakao user/me returned status %d", resp.StatusCode))
	}

	var info kakaoUserMe
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, apperror.Wrap(apperror.ErrOAuthVerification, "kakao user/me response was malformed")
	}
	if info.ID == 0 {
		return nil, apperror.Wrap(apperror.ErrOAuthVerification, "kakao user/me has no account id")
	}

	return &Identity{
		ProviderID: strconv.FormatInt(info.ID, 10),
		Email:      info.KakaoAccount.Email,
		Name:       info.KakaoAccount.Profile.Nickname,
	}, nil
}
