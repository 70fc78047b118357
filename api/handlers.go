package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	adminauth "github.com/Kalenite/adminauth"
	"github.com/Kalenite/adminauth/httputil"
)

// AuthHandlers serves the authentication endpoints.
type AuthHandlers struct {
	service *adminauth.Service
	drawer  adminauth.CaptchaDrawer
	log     logrus.FieldLogger
	metrics *metrics
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Captcha  string `json:"captcha"`
}

type principalSummary struct {
	ID          string    `json:"id"`
	UUID        string    `json:"uuid"`
	Username    string    `json:"username"`
	Nickname    string    `json:"nickname,omitempty"`
	Superuser   bool      `json:"is_superuser"`
	Roles       []string  `json:"roles,omitempty"`
	LastLoginAt time.Time `json:"last_login_time"`
}

type tokenResponse struct {
	AccessToken            string            `json:"access_token"`
	AccessTokenExpireTime  time.Time         `json:"access_token_expire_time"`
	RefreshToken           string            `json:"refresh_token"`
	RefreshTokenExpireTime time.Time         `json:"refresh_token_expire_time"`
	User                   *principalSummary `json:"user,omitempty"`
}

type captchaResponse struct {
	ImageType  string `json:"image_type"`
	Image      string `json:"image"`
	CodeLength int    `json:"code_length"`
}

func summarize(p *adminauth.Principal) *principalSummary {
	return &principalSummary{
		ID:          p.ID,
		UUID:        p.UUID,
		Username:    p.Username,
		Nickname:    p.Nickname,
		Superuser:   p.Superuser,
		Roles:       p.Roles,
		LastLoginAt: p.LastLoginAt,
	}
}

// Login handles POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, 0, "malformed request body")
		return
	}
	if req.Username == "" || req.Password == "" || req.Captcha == "" {
		httputil.WriteError(w, http.StatusBadRequest, 0, "username, password and captcha are required")
		return
	}

	res, err := h.service.Login(r.Context(), adminauth.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		Captcha:   req.Captcha,
		IP:        httputil.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.metrics.loginAttempts.WithLabelValues(loginOutcome(err)).Inc()
		writeServiceError(w, err)
		return
	}
	h.metrics.loginAttempts.WithLabelValues("success").Inc()

	httputil.WriteSuccess(w, tokenResponse{
		AccessToken:            res.AccessToken,
		AccessTokenExpireTime:  res.AccessExpiresAt,
		RefreshToken:           res.RefreshToken,
		RefreshTokenExpireTime: res.RefreshExpiresAt,
		User:                   summarize(res.Principal),
	})
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, adminauth.ErrNotFound):
		return "unknown_user"
	case errors.Is(err, adminauth.ErrInvalidCredentials):
		return "bad_password"
	case errors.Is(err, adminauth.ErrAccountDisabled):
		return "account_disabled"
	case errors.Is(err, adminauth.ErrCaptchaExpired):
		return "captcha_expired"
	case errors.Is(err, adminauth.ErrCaptchaMismatch):
		return "captcha_mismatch"
	default:
		return "error"
	}
}

// BasicLogin handles POST /auth/login/basic, the captcha-less login kept
// for API tooling. Returns an access token only.
func (h *AuthHandlers) BasicLogin(w http.ResponseWriter, r *http.Request) {
	username, pass, ok := r.BasicAuth()
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, 0, "basic credentials required")
		return
	}

	access, p, err := h.service.BasicLogin(r.Context(), username, pass)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]any{
		"access_token": access,
		"user":         summarize(p),
	})
}

// Captcha handles GET /auth/captcha: issues a challenge for the caller's
// network identity and returns the rendered image, never the code.
func (h *AuthHandlers) Captcha(w http.ResponseWriter, r *http.Request) {
	ip := httputil.ClientIP(r)

	code, err := h.service.IssueCaptcha(r.Context(), ip)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.log.WithField("ip", ip).Debug("captcha issued")

	img, err := h.drawer.Draw(code, 120, 40)
	if err != nil {
		h.log.WithError(err).Error("captcha render failed")
		httputil.WriteError(w, http.StatusInternalServerError, 0, "captcha unavailable")
		return
	}

	httputil.WriteSuccess(w, captchaResponse{
		ImageType:  "base64",
		Image:      base64.StdEncoding.EncodeToString(img),
		CodeLength: h.service.CaptchaCodeLength(),
	})
}

// NewToken handles POST /auth/token/new: renews the authenticated caller's
// session using the refresh token passed as a query parameter.
func (h *AuthHandlers) NewToken(w http.ResponseWriter, r *http.Request) {
	principal, ok := adminauth.PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, 0, "not authenticated")
		return
	}

	refresh := r.URL.Query().Get("refresh_token")
	if refresh == "" {
		httputil.WriteError(w, http.StatusBadRequest, 0, "refresh_token is required")
		return
	}
	currentAccess, _ := httputil.BearerToken(r)

	pair, err := h.service.Refresh(r.Context(), principal, currentAccess, refresh)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.metrics.tokenRenewals.Inc()

	httputil.WriteSuccess(w, tokenResponse{
		AccessToken:            pair.AccessToken,
		AccessTokenExpireTime:  pair.AccessExpiresAt,
		RefreshToken:           pair.RefreshToken,
		RefreshTokenExpireTime: pair.RefreshExpiresAt,
	})
}

// Logout handles POST /auth/logout: revokes every access and refresh token
// of the authenticated caller.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := adminauth.PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, 0, "not authenticated")
		return
	}

	if err := h.service.Logout(r.Context(), principal.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	h.metrics.logouts.Inc()

	httputil.WriteSuccess(w, nil)
}
