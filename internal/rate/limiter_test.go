package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, "fba"), mr
}

func TestAllowWithinBudget(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, _, err := l.Allow(ctx, "login", "10.0.0.1", 5, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("hit %d rejected within budget", i+1)
		}
	}

	ok, retryAfter, err := l.Allow(ctx, "login", "10.0.0.1", 5, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("sixth hit allowed")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("retryAfter = %v, want (0, 1m]", retryAfter)
	}
}

func TestScopesAndIdentifiersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _, _ := l.Allow(ctx, "login", "a", 3, time.Minute); !ok {
			t.Fatal("budget consumed early")
		}
	}
	if ok, _, _ := l.Allow(ctx, "login", "a", 3, time.Minute); ok {
		t.Fatal("exhausted identifier still allowed")
	}
	if ok, _, _ := l.Allow(ctx, "login", "b", 3, time.Minute); !ok {
		t.Fatal("other identifier throttled")
	}
	if ok, _, _ := l.Allow(ctx, "captcha", "a", 3, time.Minute); !ok {
		t.Fatal("other scope throttled")
	}
}

func TestWindowExpiryResetsBudget(t *testing.T) {
	l, mr := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, _ = l.Allow(ctx, "login", "a", 2, time.Minute)
	}
	if ok, _, _ := l.Allow(ctx, "login", "a", 2, time.Minute); ok {
		t.Fatal("over-budget hit allowed")
	}

	mr.FastForward(2 * time.Minute)

	if ok, _, _ := l.Allow(ctx, "login", "a", 2, time.Minute); !ok {
		t.Fatal("fresh window still throttled")
	}
}

func TestZeroLimitDisables(t *testing.T) {
	l, _ := newTestLimiter(t)
	for i := 0; i < 10; i++ {
		ok, _, err := l.Allow(context.Background(), "login", "a", 0, time.Minute)
		if err != nil || !ok {
			t.Fatalf("disabled limiter throttled: %v, %v", ok, err)
		}
	}
}

func TestReset(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, _ = l.Allow(ctx, "login", "a", 1, time.Minute)
	}
	if err := l.Reset(ctx, "login", "a"); err != nil {
		t.Fatal(err)
	}
	if ok, _, _ := l.Allow(ctx, "login", "a", 1, time.Minute); !ok {
		t.Fatal("reset did not clear counter")
	}
}
