package middleware

import (
	"net/http"

	adminauth "github.com/Kalenite/adminauth"
	"github.com/Kalenite/adminauth/httputil"
)

// SessionResolver runs once per request before route handling. It extracts
// the bearer token, resolves it to a principal through the service, and
// attaches the principal to the request context. Requests without an
// Authorization header proceed unauthenticated; routes that need a
// principal declare that through RequireAuthenticated or RequirePermission.
type SessionResolver struct {
	service *adminauth.Service
	exclude map[string]struct{}
}

// NewSessionResolver builds the resolver. excludePaths bypass the gate
// entirely (the login and captcha endpoints, which exist before any token
// can).
func NewSessionResolver(service *adminauth.Service, excludePaths []string) *SessionResolver {
	exclude := make(map[string]struct{}, len(excludePaths))
	for _, p := range excludePaths {
		exclude[p] = struct{}{}
	}
	return &SessionResolver{service: service, exclude: exclude}
}

// Handler is the middleware entry point. Token failures end the request
// with a structured 401; they never propagate as unhandled faults.
func (sr *SessionResolver) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := sr.exclude[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		value, ok := httputil.BearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := sr.service.Authenticate(r.Context(), value)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, 0, "token invalid or expired")
			return
		}

		next.ServeHTTP(w, r.WithContext(adminauth.WithPrincipal(r.Context(), principal)))
	})
}

// RequireAuthenticated rejects requests that reached the handler without a
// resolved principal.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := adminauth.PrincipalFromContext(r.Context()); !ok {
			httputil.WriteError(w, http.StatusUnauthorized, 0, "not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}
