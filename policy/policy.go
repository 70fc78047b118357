package policy

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrRuleExists is returned when an added rule or grouping is already
	// present. Duplicate adds surface as a conflict so administrative
	// tooling gets accurate feedback.
	ErrRuleExists = errors.New("policy: rule already exists")
	// ErrRuleNotFound is returned when a removal names a rule or grouping
	// that is not present.
	ErrRuleNotFound = errors.New("policy: rule not found")
)

// Subject carries the slice of a principal the decision needs. It is built
// by the caller from the resolved principal; the policy layer never loads
// identity data itself.
type Subject struct {
	ID        string
	Superuser bool
	Roles     []string
	MenuPerms []string
}

// Rule is one stored permission assertion: Sub (a principal id or a role
// name) may perform Action on Resource.
type Rule struct {
	Sub      string `json:"sub"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// Grouping places Sub (a principal id or a role name) in Role. Groupings
// compose: a role may itself be grouped into another role.
type Grouping struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
}

// Authorizer is the decision interface shared by both authorization modes.
type Authorizer interface {
	// Authorize reports whether sub may perform action on resource.
	Authorize(ctx context.Context, sub Subject, resource, action string) (bool, error)
}

// Engine is the full rule-based capability: the Authorizer decision plus
// administrative mutation of the rule set.
type Engine interface {
	Authorizer

	AddRule(ctx context.Context, r Rule) error
	AddRules(ctx context.Context, rs []Rule) error
	RemoveRule(ctx context.Context, r Rule) error
	RemoveRules(ctx context.Context, rs []Rule) error
	// RemoveRulesBySubject drops every permission rule and grouping whose
	// Sub matches, returning the number removed.
	RemoveRulesBySubject(ctx context.Context, sub string) (int, error)
	// ListRules returns permission rules, optionally filtered by Sub.
	ListRules(ctx context.Context, sub string) ([]Rule, error)

	AddGrouping(ctx context.Context, g Grouping) error
	AddGroupings(ctx context.Context, gs []Grouping) error
	RemoveGrouping(ctx context.Context, g Grouping) error
	ListGroupings(ctx context.Context) ([]Grouping, error)
}

// SplitPerm splits a permission tag of the form "resource:action" (e.g.
// "dept:add") at its last colon. Tags without a colon map to the empty
// action, which no stored rule matches.
func SplitPerm(perm string) (resource, action string) {
	i := strings.LastIndex(perm, ":")
	if i < 0 {
		return perm, ""
	}
	return perm[:i], perm[i+1:]
}
