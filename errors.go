package adminauth

import "errors"

var (
	// ErrNotFound is returned when the named principal or resource does
	// not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is the generic not-authenticated failure for
	// requests without a usable session.
	ErrUnauthorized = errors.New("not authenticated")
	// ErrForbidden is returned when an authenticated principal is denied
	// by policy.
	ErrForbidden = errors.New("permission denied")
	// ErrInvalidCredentials is returned when the submitted password does
	// not match the stored salted hash.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is returned when the account exists but its
	// status blocks login and token refresh.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrCaptchaExpired is returned when no challenge is pending for the
	// caller's network identity.
	ErrCaptchaExpired = errors.New("captcha expired, request a new one")
	// ErrCaptchaMismatch is returned when a pending challenge exists but
	// the submitted code does not match it. Distinguished from the
	// generic authorization failure so clients can render a dedicated
	// message.
	ErrCaptchaMismatch = errors.New("captcha code incorrect")
	// ErrTokenInvalid is returned for a malformed, signature-invalid,
	// expired, or store-evicted bearer token.
	ErrTokenInvalid = errors.New("token invalid or expired")
	// ErrRefreshInvalid is returned when the refresh token is unusable or
	// its subject does not match the authenticated caller.
	ErrRefreshInvalid = errors.New("refresh token invalid")
	// ErrRateLimited is returned when a throttled endpoint exhausts its
	// window budget.
	ErrRateLimited = errors.New("too many requests")
)
