// Package rate provides Redis-backed fixed-window request counters used to
// throttle the unauthenticated auth endpoints (login, captcha issuance).
//
// Window semantics: INCR plus EXPIRE set on the first hit of each window.
// When the counter exceeds the limit, callers receive the remaining window
// duration so the HTTP layer can emit a Retry-After hint.
package rate
