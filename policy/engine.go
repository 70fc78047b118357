package policy

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// RuleEngine is an in-process Engine implementation. Rules live in indexed
// maps guarded by a single RWMutex: in-flight authorization checks observe
// either the pre- or post-mutation rule set, never a partial one.
type RuleEngine struct {
	mu        sync.RWMutex
	rules     map[Rule]struct{}
	bySub     map[string]map[Rule]struct{}
	groupings map[Grouping]struct{}
	memberOf  map[string][]string // sub -> directly granted roles
}

// NewRuleEngine returns an empty rule engine.
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{
		rules:     make(map[Rule]struct{}),
		bySub:     make(map[string]map[Rule]struct{}),
		groupings: make(map[Grouping]struct{}),
		memberOf:  make(map[string][]string),
	}
}

// Authorize reports whether sub, or any role it belongs to transitively,
// holds a rule for (resource, action). Superusers are allowed without
// consulting the rule set.
func (e *RuleEngine) Authorize(_ context.Context, sub Subject, resource, action string) (bool, error) {
	if sub.Superuser {
		return true, nil
	}
	if sub.ID == "" {
		return false, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, candidate := range e.resolveSubjectsLocked(sub) {
		if _, ok := e.rules[Rule{Sub: candidate, Resource: resource, Action: action}]; ok {
			return true, nil
		}
	}
	return false, nil
}

// resolveSubjectsLocked expands the subject id plus its direct roles into
// the transitive closure over grouping rules. Cycle-safe via the seen set.
func (e *RuleEngine) resolveSubjectsLocked(sub Subject) []string {
	seen := map[string]struct{}{sub.ID: {}}
	queue := append([]string{sub.ID}, sub.Roles...)
	for _, r := range sub.Roles {
		seen[r] = struct{}{}
	}

	out := make([]string, 0, len(queue))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)

		for _, role := range e.memberOf[cur] {
			if _, ok := seen[role]; ok {
				continue
			}
			seen[role] = struct{}{}
			queue = append(queue, role)
		}
	}
	return out
}

func validRule(r Rule) error {
	if strings.TrimSpace(r.Sub) == "" || strings.TrimSpace(r.Resource) == "" || strings.TrimSpace(r.Action) == "" {
		return errors.New("policy: rule fields must be non-empty")
	}
	return nil
}

// AddRule inserts one permission rule; ErrRuleExists on duplicates.
func (e *RuleEngine) AddRule(_ context.Context, r Rule) error {
	if err := validRule(r); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addRuleLocked(r)
}

// AddRules inserts a batch; it fails atomically on the first duplicate.
func (e *RuleEngine) AddRules(_ context.Context, rs []Rule) error {
	for _, r := range rs {
		if err := validRule(r); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range rs {
		if _, ok := e.rules[r]; ok {
			return ErrRuleExists
		}
	}
	for _, r := range rs {
		if err := e.addRuleLocked(r); err != nil {
			return err
		}
	}
	return nil
}

func (e *RuleEngine) addRuleLocked(r Rule) error {
	if _, ok := e.rules[r]; ok {
		return ErrRuleExists
	}
	e.rules[r] = struct{}{}
	set := e.bySub[r.Sub]
	if set == nil {
		set = make(map[Rule]struct{})
		e.bySub[r.Sub] = set
	}
	set[r] = struct{}{}
	return nil
}

// RemoveRule deletes one permission rule; ErrRuleNotFound when absent.
func (e *RuleEngine) RemoveRule(_ context.Context, r Rule) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeRuleLocked(r)
}

// RemoveRules deletes a batch; it fails atomically if any rule is absent.
func (e *RuleEngine) RemoveRules(_ context.Context, rs []Rule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range rs {
		if _, ok := e.rules[r]; !ok {
			return ErrRuleNotFound
		}
	}
	for _, r := range rs {
		if err := e.removeRuleLocked(r); err != nil {
			return err
		}
	}
	return nil
}

func (e *RuleEngine) removeRuleLocked(r Rule) error {
	if _, ok := e.rules[r]; !ok {
		return ErrRuleNotFound
	}
	delete(e.rules, r)
	if set := e.bySub[r.Sub]; set != nil {
		delete(set, r)
		if len(set) == 0 {
			delete(e.bySub, r.Sub)
		}
	}
	return nil
}

// RemoveRulesBySubject drops every permission rule and grouping whose Sub
// matches and returns the removed count. Removing for an unknown subject
// returns 0 without error.
func (e *RuleEngine) RemoveRulesBySubject(_ context.Context, sub string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for r := range e.bySub[sub] {
		delete(e.rules, r)
		removed++
	}
	delete(e.bySub, sub)

	for g := range e.groupings {
		if g.Sub != sub {
			continue
		}
		delete(e.groupings, g)
		removed++
	}
	e.rebuildMemberOfLocked()

	return removed, nil
}

// ListRules returns the permission rules, filtered by Sub when sub is
// non-empty. Order is unspecified.
func (e *RuleEngine) ListRules(_ context.Context, sub string) ([]Rule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if sub != "" {
		out := make([]Rule, 0, len(e.bySub[sub]))
		for r := range e.bySub[sub] {
			out = append(out, r)
		}
		return out, nil
	}

	out := make([]Rule, 0, len(e.rules))
	for r := range e.rules {
		out = append(out, r)
	}
	return out, nil
}

// AddGrouping places a subject (or role) in a role; ErrRuleExists on
// duplicates.
func (e *RuleEngine) AddGrouping(_ context.Context, g Grouping) error {
	if strings.TrimSpace(g.Sub) == "" || strings.TrimSpace(g.Role) == "" {
		return errors.New("policy: grouping fields must be non-empty")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.groupings[g]; ok {
		return ErrRuleExists
	}
	e.groupings[g] = struct{}{}
	e.memberOf[g.Sub] = append(e.memberOf[g.Sub], g.Role)
	return nil
}

// AddGroupings inserts a batch; it fails atomically on the first duplicate.
func (e *RuleEngine) AddGroupings(_ context.Context, gs []Grouping) error {
	for _, g := range gs {
		if strings.TrimSpace(g.Sub) == "" || strings.TrimSpace(g.Role) == "" {
			return errors.New("policy: grouping fields must be non-empty")
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, g := range gs {
		if _, ok := e.groupings[g]; ok {
			return ErrRuleExists
		}
	}
	for _, g := range gs {
		e.groupings[g] = struct{}{}
		e.memberOf[g.Sub] = append(e.memberOf[g.Sub], g.Role)
	}
	return nil
}

// RemoveGrouping deletes one grouping; ErrRuleNotFound when absent.
func (e *RuleEngine) RemoveGrouping(_ context.Context, g Grouping) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.groupings[g]; !ok {
		return ErrRuleNotFound
	}
	delete(e.groupings, g)
	e.rebuildMemberOfLocked()
	return nil
}

// ListGroupings returns every grouping rule. Order is unspecified.
func (e *RuleEngine) ListGroupings(_ context.Context) ([]Grouping, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Grouping, 0, len(e.groupings))
	for g := range e.groupings {
		out = append(out, g)
	}
	return out, nil
}

func (e *RuleEngine) rebuildMemberOfLocked() {
	e.memberOf = make(map[string][]string, len(e.groupings))
	for g := range e.groupings {
		e.memberOf[g.Sub] = append(e.memberOf[g.Sub], g.Role)
	}
}

var _ Engine = (*RuleEngine)(nil)
