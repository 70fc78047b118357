package policy

import "context"

// MenuAuthorizer is the "declared menu permission" authorization mode: the
// required tag must appear among the permission strings attached to the
// principal's resolved menu entries. It carries no state of its own.
type MenuAuthorizer struct{}

// NewMenuAuthorizer returns the menu-permission strategy.
func NewMenuAuthorizer() *MenuAuthorizer {
	return &MenuAuthorizer{}
}

// Authorize checks resource:action against the subject's menu permissions.
// Superusers bypass the check.
func (m *MenuAuthorizer) Authorize(_ context.Context, sub Subject, resource, action string) (bool, error) {
	if sub.Superuser {
		return true, nil
	}

	perm := resource + ":" + action
	for _, p := range sub.MenuPerms {
		if p == perm {
			return true, nil
		}
	}
	return false, nil
}

var _ Authorizer = (*MenuAuthorizer)(nil)
