package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	adminauth "github.com/Kalenite/adminauth"
	"github.com/Kalenite/adminauth/httputil"
	"github.com/Kalenite/adminauth/internal/rate"
	"github.com/Kalenite/adminauth/password"
	"github.com/Kalenite/adminauth/policy"
	"github.com/Kalenite/adminauth/token"
	"github.com/Kalenite/adminauth/tokenstore"
)

type staticIdentity struct {
	principals map[string]*adminauth.Principal
}

func (s *staticIdentity) GetByUsername(_ context.Context, username string) (*adminauth.Principal, error) {
	for _, p := range s.principals {
		if p.Username == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, adminauth.ErrNotFound
}

func (s *staticIdentity) GetByID(_ context.Context, id string) (*adminauth.Principal, error) {
	p, ok := s.principals[id]
	if !ok {
		return nil, adminauth.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *staticIdentity) UpdateLoginTime(_ context.Context, _ string, _ time.Time) error {
	return nil
}

type middlewareFixture struct {
	service *adminauth.Service
	limiter *rate.Limiter
	store   *tokenstore.Store
}

func newMiddlewareFixture(t *testing.T) *middlewareFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store, err := tokenstore.New(rdb, "fba")
	if err != nil {
		t.Fatal(err)
	}

	codec, err := token.NewCodec(token.Config{
		AccessTTL:     time.Hour,
		RefreshTTL:    4 * time.Hour,
		SigningMethod: token.MethodHS256,
		Key:           []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "adminauth-test",
	})
	if err != nil {
		t.Fatal(err)
	}

	hasher, err := password.NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	salt, _ := password.NewSalt()
	hash, _ := hasher.Hash("secret-pass", salt)

	identity := &staticIdentity{principals: map[string]*adminauth.Principal{
		"1": {
			ID: "1", Username: "admin", Enabled: true,
			Roles: []string{"ops"}, MenuPerms: []string{"dept:list"},
			PasswordHash: hash, PasswordSalt: salt,
		},
	}}

	svc, err := adminauth.New(adminauth.Options{
		Config: adminauth.Config{
			App:        "fba",
			Token:      codec.Config(),
			CaptchaTTL: 15 * time.Minute,
			BcryptCost: bcrypt.MinCost,
		},
		Codec:    codec,
		Store:    store,
		Identity: identity,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Close)

	return &middlewareFixture{
		service: svc,
		limiter: rate.New(rdb, "fba"),
		store:   store,
	}
}

func (f *middlewareFixture) accessToken(t *testing.T) string {
	t.Helper()
	access, _, err := f.service.BasicLogin(context.Background(), "admin", "secret-pass")
	if err != nil {
		t.Fatal(err)
	}
	return access
}

func echoPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := adminauth.PrincipalFromContext(r.Context()); ok {
			httputil.WriteSuccess(w, p.Username)
			return
		}
		httputil.WriteSuccess(w, nil)
	})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httputil.Envelope {
	t.Helper()
	var env httputil.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestSessionResolverAttachesPrincipal(t *testing.T) {
	f := newMiddlewareFixture(t)
	resolver := NewSessionResolver(f.service, nil)
	h := resolver.Handler(echoPrincipal())

	r := httptest.NewRequest("GET", "/api/v1/sys/depts", nil)
	r.Header.Set("Authorization", "Bearer "+f.accessToken(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Data != "admin" {
		t.Fatalf("principal = %v, want admin", env.Data)
	}
}

func TestSessionResolverWithoutTokenProceedsUnauthenticated(t *testing.T) {
	f := newMiddlewareFixture(t)
	h := NewSessionResolver(f.service, nil).Handler(echoPrincipal())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/sys/depts", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for anonymous pass-through", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Data != nil {
		t.Fatalf("unexpected principal: %v", env.Data)
	}
}

func TestSessionResolverRejectsBadToken(t *testing.T) {
	f := newMiddlewareFixture(t)
	h := NewSessionResolver(f.service, nil).Handler(echoPrincipal())

	r := httptest.NewRequest("GET", "/api/v1/sys/depts", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Code != http.StatusUnauthorized {
		t.Fatalf("envelope code = %d, want 401", env.Code)
	}
}

func TestSessionResolverRejectsRevokedToken(t *testing.T) {
	f := newMiddlewareFixture(t)
	h := NewSessionResolver(f.service, nil).Handler(echoPrincipal())
	access := f.accessToken(t)

	if err := f.service.Logout(context.Background(), "1"); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest("GET", "/api/v1/sys/depts", nil)
	r.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 after logout", rec.Code)
	}
}

func TestSessionResolverExcludedPathBypassesGate(t *testing.T) {
	f := newMiddlewareFixture(t)
	h := NewSessionResolver(f.service, []string{"/api/v1/auth/login"}).Handler(echoPrincipal())

	// A garbage token on an excluded path must not 401.
	r := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 on excluded path", rec.Code)
	}
}

func TestRequireAuthenticated(t *testing.T) {
	h := RequireAuthenticated(echoPrincipal())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without principal", rec.Code)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(adminauth.WithPrincipal(r.Context(), &adminauth.Principal{ID: "1", Username: "admin"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with principal", rec.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	engine := policy.NewRuleEngine()
	h := RequirePermission(engine, "dept:add")(echoPrincipal())

	// Unauthenticated → 401.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/sys/depts", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	withPrincipal := func(p *adminauth.Principal) *http.Request {
		r := httptest.NewRequest("POST", "/api/v1/sys/depts", nil)
		return r.WithContext(adminauth.WithPrincipal(r.Context(), p))
	}

	// Authenticated without a matching rule → 403.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withPrincipal(&adminauth.Principal{ID: "42"}))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	// Granted through a role.
	if err := engine.AddRule(context.Background(), policy.Rule{Sub: "ops", Resource: "dept", Action: "add"}); err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withPrincipal(&adminauth.Principal{ID: "42", Roles: []string{"ops"}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 via role grant", rec.Code)
	}

	// Superuser bypass.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withPrincipal(&adminauth.Principal{ID: "1", Superuser: true}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for superuser", rec.Code)
	}
}

func TestRequirePermissionMenuMode(t *testing.T) {
	h := RequirePermission(policy.NewMenuAuthorizer(), "dept:list")(echoPrincipal())

	r := httptest.NewRequest("GET", "/api/v1/sys/depts", nil)
	r = r.WithContext(adminauth.WithPrincipal(r.Context(), &adminauth.Principal{ID: "1", MenuPerms: []string{"dept:list"}}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 via menu permission", rec.Code)
	}

	r = httptest.NewRequest("GET", "/api/v1/sys/depts", nil)
	r = r.WithContext(adminauth.WithPrincipal(r.Context(), &adminauth.Principal{ID: "1", MenuPerms: []string{"menu:list"}}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 without the tag", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	f := newMiddlewareFixture(t)
	h := RateLimit(f.limiter, "login", 2, time.Minute, nil)(echoPrincipal())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, r)
		if rec.Code != http.StatusOK {
			t.Fatalf("hit %d status = %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After hint")
	}

	// Another address keeps its own budget.
	rec = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	r.RemoteAddr = "10.0.0.2:1234"
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for other address", rec.Code)
	}
}
