package adminauth

import "context"

type principalContextKey struct{}

// WithPrincipal attaches the resolved principal to ctx for the remainder of
// the request's lifetime. Set by the session-resolver middleware.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal attached by the session
// resolver, or false for unauthenticated requests.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalContextKey{}).(*Principal)
	return p, ok && p != nil
}
