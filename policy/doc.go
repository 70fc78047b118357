// Package policy decides whether a principal may invoke a (resource, action)
// pair. Two interchangeable strategies implement the same decision
// interface, selected once at startup:
//
//   - RuleEngine evaluates stored permission rules (subject-or-role,
//     resource, action) together with grouping rules that place subjects in
//     roles, transitively. Rules are mutated through an explicit admin API
//     that is safe to call concurrently with authorization checks.
//   - MenuAuthorizer checks the required permission tag against the
//     permission strings attached to the principal's resolved menu entries.
//
// Superusers bypass both strategies unconditionally.
package policy
