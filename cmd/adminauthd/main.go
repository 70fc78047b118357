// Command adminauthd runs the authentication service as a standalone HTTP
// server, backed by Redis (or an embedded miniredis when no address is
// configured) and a seeded in-memory identity store for local development.
//
// Run:
//
//	go run ./cmd/adminauthd
//
// Then:
//
//	# fetch a captcha (the image field is a base64 SVG with the code)
//	curl -s localhost:8000/api/v1/auth/captcha
//
//	# login
//	curl -s -X POST localhost:8000/api/v1/auth/login \
//	  -H 'Content-Type: application/json' \
//	  -d '{"username":"admin","password":"correct-horse","captcha":"<CODE>"}'
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	adminauth "github.com/Kalenite/adminauth"
	"github.com/Kalenite/adminauth/api"
	"github.com/Kalenite/adminauth/internal/rate"
	"github.com/Kalenite/adminauth/password"
	"github.com/Kalenite/adminauth/policy"
	"github.com/Kalenite/adminauth/token"
	"github.com/Kalenite/adminauth/tokenstore"
)

func main() {
	var (
		addr       = flag.String("addr", ":8000", "listen address")
		app        = flag.String("app", "fba", "application key prefix")
		redisAddr  = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or embedded miniredis is used")
		jwtKey     = flag.String("jwt-key", "", "JWT signing key; if empty, JWT_KEY env or a dev-only default is used")
		accessTTL  = flag.Duration("access-ttl", time.Hour, "access token lifetime")
		refreshTTL = flag.Duration("refresh-ttl", 48*time.Hour, "refresh token lifetime")
		mode       = flag.String("permission-mode", string(adminauth.ModePolicy), "authorization mode: policy or menu")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	rdb, cleanup, err := connectRedis(*redisAddr, log)
	if err != nil {
		log.WithError(err).Fatal("redis setup failed")
	}
	defer cleanup()

	key := *jwtKey
	if key == "" {
		key = os.Getenv("JWT_KEY")
	}
	if key == "" {
		key = "dev-only-0123456789abcdef0123456789"
		log.Warn("using built-in dev JWT key; set -jwt-key or JWT_KEY in production")
	}

	codec, err := token.NewCodec(token.Config{
		AccessTTL:     *accessTTL,
		RefreshTTL:    *refreshTTL,
		SigningMethod: token.MethodHS256,
		Key:           []byte(key),
		Issuer:        *app,
	})
	if err != nil {
		log.WithError(err).Fatal("token codec setup failed")
	}

	store, err := tokenstore.New(rdb, *app)
	if err != nil {
		log.WithError(err).Fatal("token store setup failed")
	}

	identity, err := seedIdentity()
	if err != nil {
		log.WithError(err).Fatal("identity seed failed")
	}

	svc, err := adminauth.New(adminauth.Options{
		Config: adminauth.Config{
			App:            *app,
			Token:          codec.Config(),
			CaptchaTTL:     5 * time.Minute,
			PermissionMode: adminauth.PermissionMode(*mode),
		},
		Codec:    codec,
		Store:    store,
		Identity: identity,
		Recorder: logRecorder{log: log},
		Logger:   log,
	})
	if err != nil {
		log.WithError(err).Fatal("service setup failed")
	}
	defer svc.Close()

	engine := policy.NewRuleEngine()
	var authorizer policy.Authorizer = engine
	if adminauth.PermissionMode(*mode) == adminauth.ModeMenu {
		authorizer = policy.NewMenuAuthorizer()
	}

	router := api.NewRouter(api.Options{
		Service:    svc,
		Engine:     engine,
		Authorizer: authorizer,
		Drawer:     svgDrawer{},
		Limiter:    rate.New(rdb, *app),
		Logger:     log,
		Registry:   prometheus.DefaultRegisterer,
		Limits:     api.DefaultRateLimits(),
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithFields(logrus.Fields{"addr": *addr, "mode": *mode}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown incomplete")
	}
}

func connectRedis(addr string, log *logrus.Logger) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		log.WithField("addr", mr.Addr()).Info("using embedded miniredis")
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	log.WithField("addr", addr).Info("using redis")
	return client, func() { _ = client.Close() }, nil
}

// logRecorder writes login history to the process log. A deployment wires a
// relational recorder here instead.
type logRecorder struct {
	log logrus.FieldLogger
}

func (r logRecorder) Record(_ context.Context, rec adminauth.LoginRecord) error {
	r.log.WithFields(logrus.Fields{
		"username": rec.Username,
		"ip":       rec.IP,
		"success":  rec.Success,
		"msg":      rec.Message,
	}).Info("login attempt")
	return nil
}

// memIdentity is the development identity store: fixed principals, login
// times kept in memory.
type memIdentity struct {
	mu         sync.Mutex
	byUsername map[string]*adminauth.Principal
	byID       map[string]*adminauth.Principal
}

func seedIdentity() (*memIdentity, error) {
	hasher, err := password.NewHasher(0)
	if err != nil {
		return nil, err
	}
	salt, err := password.NewSalt()
	if err != nil {
		return nil, err
	}
	hash, err := hasher.Hash("correct-horse", salt)
	if err != nil {
		return nil, err
	}

	admin := &adminauth.Principal{
		ID:           "1",
		UUID:         "00000000-0000-0000-0000-000000000001",
		Username:     "admin",
		Nickname:     "Administrator",
		Enabled:      true,
		Superuser:    true,
		PasswordHash: hash,
		PasswordSalt: salt,
	}

	return &memIdentity{
		byUsername: map[string]*adminauth.Principal{admin.Username: admin},
		byID:       map[string]*adminauth.Principal{admin.ID: admin},
	}, nil
}

func (m *memIdentity) GetByUsername(_ context.Context, username string) (*adminauth.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byUsername[username]
	if !ok {
		return nil, adminauth.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memIdentity) GetByID(_ context.Context, id string) (*adminauth.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, adminauth.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memIdentity) UpdateLoginTime(_ context.Context, username string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byUsername[username]; ok {
		p.LastLoginAt = at
	}
	return nil
}
