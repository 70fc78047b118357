package api

import (
	"errors"
	"net/http"

	adminauth "github.com/Kalenite/adminauth"
	"github.com/Kalenite/adminauth/httputil"
	"github.com/Kalenite/adminauth/policy"
)

// Application-level codes carried in the response envelope alongside the
// HTTP status. Captcha mismatch gets its own code so clients can render a
// dedicated message.
const (
	codeCaptchaMismatch = 40001
)

// writeServiceError maps the core's error taxonomy onto one HTTP status
// plus a machine-readable code. Unrecognized errors collapse to a plain
// 500; internal detail never reaches the client.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, adminauth.ErrCaptchaMismatch):
		httputil.WriteError(w, http.StatusBadRequest, codeCaptchaMismatch, err.Error())
	case errors.Is(err, adminauth.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, 0, err.Error())
	case errors.Is(err, adminauth.ErrForbidden):
		httputil.WriteError(w, http.StatusForbidden, 0, err.Error())
	case errors.Is(err, adminauth.ErrRateLimited):
		httputil.WriteError(w, http.StatusTooManyRequests, 0, err.Error())
	case errors.Is(err, adminauth.ErrUnauthorized),
		errors.Is(err, adminauth.ErrInvalidCredentials),
		errors.Is(err, adminauth.ErrAccountDisabled),
		errors.Is(err, adminauth.ErrCaptchaExpired),
		errors.Is(err, adminauth.ErrTokenInvalid),
		errors.Is(err, adminauth.ErrRefreshInvalid):
		httputil.WriteError(w, http.StatusUnauthorized, 0, err.Error())
	default:
		httputil.WriteError(w, http.StatusInternalServerError, 0, "internal server error")
	}
}

// writePolicyError maps rule-mutation failures: duplicate rules are a
// conflict blocked by the uniqueness constraint (403), missing rules a 404.
func writePolicyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, policy.ErrRuleExists):
		httputil.WriteError(w, http.StatusForbidden, 0, "rule already exists")
	case errors.Is(err, policy.ErrRuleNotFound):
		httputil.WriteError(w, http.StatusNotFound, 0, "rule not found")
	default:
		httputil.WriteError(w, http.StatusBadRequest, 0, err.Error())
	}
}
