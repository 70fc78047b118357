package policy

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestSplitPerm(t *testing.T) {
	cases := []struct {
		perm, resource, action string
	}{
		{"dept:add", "dept", "add"},
		{"sys:dict:del", "sys:dict", "del"},
		{"bare", "bare", ""},
	}
	for _, tc := range cases {
		res, act := SplitPerm(tc.perm)
		if res != tc.resource || act != tc.action {
			t.Fatalf("SplitPerm(%q) = %q, %q; want %q, %q", tc.perm, res, act, tc.resource, tc.action)
		}
	}
}

func TestAuthorizeDirectRule(t *testing.T) {
	e := NewRuleEngine()
	ctx := context.Background()

	sub := Subject{ID: "42"}
	ok, err := e.Authorize(ctx, sub, "dept", "add")
	if err != nil || ok {
		t.Fatalf("unruled subject allowed: %v, %v", ok, err)
	}

	if err := e.AddRule(ctx, Rule{Sub: "42", Resource: "dept", Action: "add"}); err != nil {
		t.Fatal(err)
	}

	ok, err = e.Authorize(ctx, sub, "dept", "add")
	if err != nil || !ok {
		t.Fatalf("ruled subject denied: %v, %v", ok, err)
	}

	// Matching is exact per action and resource.
	if ok, _ := e.Authorize(ctx, sub, "dept", "del"); ok {
		t.Fatal("wrong action allowed")
	}
	if ok, _ := e.Authorize(ctx, sub, "menu", "add"); ok {
		t.Fatal("wrong resource allowed")
	}
}

func TestAuthorizeViaRoleAndNestedRole(t *testing.T) {
	e := NewRuleEngine()
	ctx := context.Background()

	if err := e.AddRule(ctx, Rule{Sub: "ops", Resource: "dept", Action: "add"}); err != nil {
		t.Fatal(err)
	}
	if err := e.AddGrouping(ctx, Grouping{Sub: "admin", Role: "ops"}); err != nil {
		t.Fatal(err)
	}
	if err := e.AddGrouping(ctx, Grouping{Sub: "42", Role: "admin"}); err != nil {
		t.Fatal(err)
	}

	// 42 -> admin -> ops -> rule.
	ok, err := e.Authorize(ctx, Subject{ID: "42"}, "dept", "add")
	if err != nil || !ok {
		t.Fatalf("transitive grant denied: %v, %v", ok, err)
	}

	// Roles carried on the subject itself resolve too.
	ok, err = e.Authorize(ctx, Subject{ID: "77", Roles: []string{"ops"}}, "dept", "add")
	if err != nil || !ok {
		t.Fatalf("subject-role grant denied: %v, %v", ok, err)
	}

	// Grouping cycles must not hang resolution.
	if err := e.AddGrouping(ctx, Grouping{Sub: "ops", Role: "admin"}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := e.Authorize(ctx, Subject{ID: "42"}, "dept", "add"); !ok {
		t.Fatal("cycle broke resolution")
	}
}

func TestSuperuserBypassesRules(t *testing.T) {
	e := NewRuleEngine()
	ok, err := e.Authorize(context.Background(), Subject{ID: "1", Superuser: true}, "anything", "at-all")
	if err != nil || !ok {
		t.Fatalf("superuser denied: %v, %v", ok, err)
	}
}

func TestDuplicateAndMissingRules(t *testing.T) {
	e := NewRuleEngine()
	ctx := context.Background()
	r := Rule{Sub: "42", Resource: "dept", Action: "add"}

	if err := e.AddRule(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := e.AddRule(ctx, r); err != ErrRuleExists {
		t.Fatalf("err = %v, want ErrRuleExists", err)
	}
	if err := e.RemoveRule(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := e.RemoveRule(ctx, r); err != ErrRuleNotFound {
		t.Fatalf("err = %v, want ErrRuleNotFound", err)
	}

	g := Grouping{Sub: "42", Role: "admin"}
	if err := e.AddGrouping(ctx, g); err != nil {
		t.Fatal(err)
	}
	if err := e.AddGrouping(ctx, g); err != ErrRuleExists {
		t.Fatalf("err = %v, want ErrRuleExists", err)
	}
	if err := e.RemoveGrouping(ctx, g); err != nil {
		t.Fatal(err)
	}
	if err := e.RemoveGrouping(ctx, g); err != ErrRuleNotFound {
		t.Fatalf("err = %v, want ErrRuleNotFound", err)
	}
}

func TestBatchAddIsAllOrNothing(t *testing.T) {
	e := NewRuleEngine()
	ctx := context.Background()

	seed := Rule{Sub: "42", Resource: "dept", Action: "add"}
	if err := e.AddRule(ctx, seed); err != nil {
		t.Fatal(err)
	}

	batch := []Rule{
		{Sub: "42", Resource: "dept", Action: "del"},
		seed, // duplicate
	}
	if err := e.AddRules(ctx, batch); err != ErrRuleExists {
		t.Fatalf("err = %v, want ErrRuleExists", err)
	}

	rules, err := e.ListRules(ctx, "42")
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 {
		t.Fatalf("partial batch applied: %v", rules)
	}
}

func TestRemoveRulesBySubject(t *testing.T) {
	e := NewRuleEngine()
	ctx := context.Background()

	_ = e.AddRule(ctx, Rule{Sub: "42", Resource: "dept", Action: "add"})
	_ = e.AddRule(ctx, Rule{Sub: "42", Resource: "dept", Action: "del"})
	_ = e.AddRule(ctx, Rule{Sub: "7", Resource: "menu", Action: "add"})
	_ = e.AddGrouping(ctx, Grouping{Sub: "42", Role: "admin"})

	n, err := e.RemoveRulesBySubject(ctx, "42")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("removed = %d, want 3", n)
	}

	if ok, _ := e.Authorize(ctx, Subject{ID: "42"}, "dept", "add"); ok {
		t.Fatal("subject still authorized after purge")
	}
	rules, _ := e.ListRules(ctx, "")
	if len(rules) != 1 || rules[0].Sub != "7" {
		t.Fatalf("unrelated subject disturbed: %v", rules)
	}

	n, err = e.RemoveRulesBySubject(ctx, "no-such")
	if err != nil || n != 0 {
		t.Fatalf("purge of unknown subject = %d, %v", n, err)
	}
}

func TestConcurrentAuthorizeAndMutate(t *testing.T) {
	e := NewRuleEngine()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				r := Rule{Sub: fmt.Sprintf("s%d", i), Resource: "dept", Action: fmt.Sprintf("a%d", j)}
				_ = e.AddRule(ctx, r)
				_ = e.RemoveRule(ctx, r)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_, _ = e.Authorize(ctx, Subject{ID: fmt.Sprintf("s%d", i)}, "dept", "a0")
			}
		}(i)
	}
	wg.Wait()
}

func TestMenuAuthorizer(t *testing.T) {
	m := NewMenuAuthorizer()
	ctx := context.Background()

	sub := Subject{ID: "42", MenuPerms: []string{"dept:add", "menu:list"}}
	if ok, _ := m.Authorize(ctx, sub, "dept", "add"); !ok {
		t.Fatal("declared menu permission denied")
	}
	if ok, _ := m.Authorize(ctx, sub, "dept", "del"); ok {
		t.Fatal("undeclared permission allowed")
	}
	if ok, _ := m.Authorize(ctx, Subject{ID: "1", Superuser: true}, "dept", "del"); !ok {
		t.Fatal("superuser denied in menu mode")
	}
}
