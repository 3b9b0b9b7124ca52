package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dayloop/planner/internal/apperror"
	"github.com/dayloop/planner/internal/auth"
	"github.com/dayloop/planner/internal/model"
	"github.com/dayloop/planner/internal/service"
)

// AuthHandler exposes registration, the three login flows, token refresh,
// and logout.
//
// DEVICE ID:
// Every session-opening request carries a client-generated deviceId — an
// opaque string, stable per installation. It is the unit of session
// granularity: refresh and logout act on one deviceId, logout-all on all of
// them. The server never generates it; clients own its lifecycle.
type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// HandleRegister creates a password account.
//
// HTTP: POST /api/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	user, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId"`
}

// HandleLogin authenticates email+password and returns a token pair.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	pair, err := h.svc.Login(r.Context(), req.Email, req.Password, req.DeviceID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

type oauthLoginRequest struct {
	ProviderToken string `json:"providerToken"`
	DeviceID      string `json:"deviceId"`
}

// HandleOAuthLogin authenticates a provider token and returns a token pair.
//
// HTTP: POST /api/auth/oauth/{provider}   (provider ∈ google, apple, kakao)
func (h *AuthHandler) HandleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	provider := model.OAuthProvider(strings.ToUpper(chi.URLParam(r, "provider")))

	var req oauthLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	pair, err := h.svc.OAuthLogin(r.Context(), provider, req.ProviderToken, req.DeviceID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	DeviceID     string `json:"deviceId"`
}

// HandleRefresh rotates a refresh token into a new pair.
//
// HTTP: POST /api/auth/refresh
//
// Unauthenticated route — the refresh token itself is the credential.
// A 401 with error "token_reuse" means every session was just revoked and
// the client must run a full login.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken, req.DeviceID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

type logoutRequest struct {
	DeviceID string `json:"deviceId"`
}

// HandleLogout ends the authenticated user's session on one device.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Wrap(apperror.ErrTokenInvalid, "authentication required"))
		return
	}

	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}
	if req.DeviceID == "" {
		writeError(w, apperror.ValidationFailed("deviceId", "device id is required"))
		return
	}

	if err := h.svc.Logout(r.Context(), identity.UserID, req.DeviceID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleLogoutAll ends the authenticated user's sessions on every device.
//
// HTTP: POST /api/auth/logout-all
func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Wrap(apperror.ErrTokenInvalid, "authentication required"))
		return
	}

	if err := h.svc.LogoutAll(r.Context(), identity.UserID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the authenticated user's full record.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Wrap(apperror.ErrTokenInvalid, "authentication required"))
		return
	}

	user, err := h.svc.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleWithdraw soft-deletes the authenticated user's account and revokes
// every session.
//
// HTTP: DELETE /api/me
func (h *AuthHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Wrap(apperror.ErrTokenInvalid, "authentication required"))
		return
	}

	if err := h.svc.Withdraw(r.Context(), identity.UserID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
