package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	adminauth "github.com/Kalenite/adminauth"
	"github.com/Kalenite/adminauth/internal/rate"
	"github.com/Kalenite/adminauth/middleware"
	"github.com/Kalenite/adminauth/policy"
)

const basePath = "/api/v1"

// RateLimits tunes the throttles on the unauthenticated auth endpoints.
// Zero limits disable the corresponding throttle.
type RateLimits struct {
	LoginLimit    int
	LoginWindow   time.Duration
	CaptchaLimit  int
	CaptchaWindow time.Duration
}

// DefaultRateLimits mirrors the backend's defaults: 5 logins per minute,
// 5 captcha renders per 10 seconds, per client address.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		LoginLimit:    5,
		LoginWindow:   time.Minute,
		CaptchaLimit:  5,
		CaptchaWindow: 10 * time.Second,
	}
}

// Options assembles the router's dependencies, all constructed explicitly
// at startup.
type Options struct {
	Service *adminauth.Service
	// Engine is the rule store exposed on the admin endpoints. Required
	// in policy mode; may be nil in menu mode, which hides those routes.
	Engine policy.Engine
	// Authorizer is the decision strategy gating protected routes. In
	// policy mode this is Engine itself; in menu mode a MenuAuthorizer.
	Authorizer policy.Authorizer
	Drawer     adminauth.CaptchaDrawer
	Limiter    *rate.Limiter
	Logger     logrus.FieldLogger
	Registry   prometheus.Registerer
	Limits     RateLimits
}

// NewRouter builds the HTTP surface. The session resolver runs on every
// route except the declared exclude list; each protected route names the
// permission it requires at registration time.
func NewRouter(opts Options) *mux.Router {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	auth := &AuthHandlers{
		service: opts.Service,
		drawer:  opts.Drawer,
		log:     log,
		metrics: newMetrics(opts.Registry),
	}

	excluded := []string{
		basePath + "/auth/login",
		basePath + "/auth/login/basic",
		basePath + "/auth/captcha",
	}
	resolver := middleware.NewSessionResolver(opts.Service, excluded)

	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(resolver.Handler))

	v1 := r.PathPrefix(basePath).Subrouter()

	limited := func(scope string, limit int, window time.Duration, h http.HandlerFunc) http.Handler {
		if opts.Limiter == nil || limit <= 0 {
			return h
		}
		return middleware.RateLimit(opts.Limiter, scope, limit, window, log)(h)
	}

	v1.Handle("/auth/login", limited("login", opts.Limits.LoginLimit, opts.Limits.LoginWindow, auth.Login)).Methods(http.MethodPost)
	v1.Handle("/auth/login/basic", http.HandlerFunc(auth.BasicLogin)).Methods(http.MethodPost)
	v1.Handle("/auth/captcha", limited("captcha", opts.Limits.CaptchaLimit, opts.Limits.CaptchaWindow, auth.Captcha)).Methods(http.MethodGet)
	v1.Handle("/auth/token/new", middleware.RequireAuthenticated(http.HandlerFunc(auth.NewToken))).Methods(http.MethodPost)
	v1.Handle("/auth/logout", middleware.RequireAuthenticated(http.HandlerFunc(auth.Logout))).Methods(http.MethodPost)

	if opts.Engine != nil {
		ph := &PolicyHandlers{engine: opts.Engine}
		guard := func(perm string, h http.HandlerFunc) http.Handler {
			return middleware.RequirePermission(opts.Authorizer, perm)(h)
		}

		v1.Handle("/sys/policies", guard("policy:list", ph.ListRules)).Methods(http.MethodGet)
		v1.Handle("/sys/policies", guard("policy:add", ph.CreateRule)).Methods(http.MethodPost)
		v1.Handle("/sys/policies", guard("policy:del", ph.DeleteRule)).Methods(http.MethodDelete)
		v1.Handle("/sys/policies/subjects/{sub}", guard("policy:del", ph.DeleteBySubject)).Methods(http.MethodDelete)
		v1.Handle("/sys/policies/groups", guard("policy:list", ph.ListGroupings)).Methods(http.MethodGet)
		v1.Handle("/sys/policies/groups", guard("policy:add", ph.CreateGrouping)).Methods(http.MethodPost)
		v1.Handle("/sys/policies/groups", guard("policy:del", ph.DeleteGrouping)).Methods(http.MethodDelete)
	}

	metricsHandler := promhttp.Handler()
	if g, ok := opts.Registry.(prometheus.Gatherer); ok {
		metricsHandler = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	return r
}
