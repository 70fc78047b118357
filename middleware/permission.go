package middleware

import (
	"net/http"

	adminauth "github.com/Kalenite/adminauth"
	"github.com/Kalenite/adminauth/httputil"
	"github.com/Kalenite/adminauth/policy"
)

// RequirePermission gates a route behind one permission tag (e.g.
// "dept:add"), declared at route-registration time and passed directly into
// the authorization call. The decision does not depend on any other
// middleware's execution order beyond the session resolver having run.
func RequirePermission(authorizer policy.Authorizer, perm string) func(http.Handler) http.Handler {
	resource, action := policy.SplitPerm(perm)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := adminauth.PrincipalFromContext(r.Context())
			if !ok {
				httputil.WriteError(w, http.StatusUnauthorized, 0, "not authenticated")
				return
			}

			allowed, err := authorizer.Authorize(r.Context(), policy.Subject{
				ID:        principal.ID,
				Superuser: principal.Superuser,
				Roles:     principal.Roles,
				MenuPerms: principal.MenuPerms,
			}, resource, action)
			if err != nil {
				httputil.WriteError(w, http.StatusInternalServerError, 0, "authorization check failed")
				return
			}
			if !allowed {
				httputil.WriteError(w, http.StatusForbidden, 0, "permission denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
