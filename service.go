package adminauth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kalenite/adminauth/password"
	"github.com/Kalenite/adminauth/token"
	"github.com/Kalenite/adminauth/tokenstore"
)

// Options carries the explicitly constructed dependencies a Service is
// assembled from at process startup.
type Options struct {
	Config   Config
	Codec    *token.Codec
	Store    *tokenstore.Store
	Identity IdentityStore
	// Recorder may be nil; login history is then discarded.
	Recorder LoginRecorder
	// Logger may be nil; dispatch-boundary failures are then silent.
	Logger logrus.FieldLogger
}

// Service orchestrates credential verification, token issuance, and token
// revocation. Safe for concurrent use after construction.
type Service struct {
	config     Config
	codec      *token.Codec
	store      *tokenstore.Store
	identity   IdentityStore
	hasher     *password.Hasher
	dispatcher *loginDispatcher
}

// New validates opts and returns a ready Service.
func New(opts Options) (*Service, error) {
	if err := opts.Config.validate(); err != nil {
		return nil, err
	}
	if opts.Codec == nil {
		return nil, errors.New("token codec is required")
	}
	if opts.Store == nil {
		return nil, errors.New("token store is required")
	}
	if opts.Identity == nil {
		return nil, errors.New("identity store is required")
	}

	hasher, err := password.NewHasher(opts.Config.BcryptCost)
	if err != nil {
		return nil, err
	}

	return &Service{
		config:     opts.Config,
		codec:      opts.Codec,
		store:      opts.Store,
		identity:   opts.Identity,
		hasher:     hasher,
		dispatcher: newLoginDispatcher(opts.Recorder, opts.Config.LoginLogBuffer, opts.Logger),
	}, nil
}

// Close stops the login-history dispatcher after draining queued records.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.dispatcher.Close()
}

// DroppedLoginRecords reports login-history records discarded because the
// dispatch buffer was full.
func (s *Service) DroppedLoginRecords() uint64 {
	if s == nil {
		return 0
	}
	return s.dispatcher.Dropped()
}

// CaptchaCodeLength reports the configured challenge code length, exposed
// to clients alongside the image.
func (s *Service) CaptchaCodeLength() int { return s.config.CaptchaCodeLength }

// captchaCharset omits the lookalike characters 0/O, 1/I/l.
const captchaCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// IssueCaptcha generates a fresh challenge for the caller's network
// identity, replacing any pending one, and returns the code for rendering.
// The code itself never reaches the client.
func (s *Service) IssueCaptcha(ctx context.Context, networkID string) (string, error) {
	if strings.TrimSpace(networkID) == "" {
		return "", errors.New("network identity is required")
	}

	buf := make([]byte, s.config.CaptchaCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = captchaCharset[int(b)%len(captchaCharset)]
	}
	code := string(buf)

	if err := s.store.SetCaptcha(ctx, networkID, code, s.config.CaptchaTTL); err != nil {
		return "", err
	}
	return code, nil
}

// Login verifies one login attempt and, on success, issues and stores a
// fresh access/refresh pair. Existing tokens of the subject are not
// disturbed. The outcome is reported to the login-history recorder without
// blocking or failing the call.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	principal, err := s.identity.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.verifyAttempt(ctx, principal, in); err != nil {
		s.report(principal, in, false, err.Error())
		return nil, err
	}

	pair, err := s.issuePair(ctx, principal.ID)
	if err != nil {
		return nil, err
	}

	if err := s.identity.UpdateLoginTime(ctx, principal.Username, time.Now()); err != nil {
		return nil, err
	}

	// Single use: the matched challenge must not verify a second login.
	if err := s.store.DeleteCaptcha(ctx, in.IP); err != nil {
		return nil, err
	}

	s.report(principal, in, true, "login ok")

	return &LoginResult{TokenPair: *pair, Principal: principal}, nil
}

// verifyAttempt checks password, account status, and captcha, in that
// order. The captcha challenge is compared case-insensitively and is left
// untouched on mismatch.
func (s *Service) verifyAttempt(ctx context.Context, principal *Principal, in LoginInput) error {
	if !s.hasher.Verify(in.Password, principal.PasswordSalt, principal.PasswordHash) {
		return ErrInvalidCredentials
	}
	if !principal.Enabled {
		return ErrAccountDisabled
	}

	code, err := s.store.GetCaptcha(ctx, in.IP)
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			return ErrCaptchaExpired
		}
		return err
	}
	if !strings.EqualFold(code, in.Captcha) {
		return ErrCaptchaMismatch
	}
	return nil
}

// BasicLogin is the captcha-less username/password login kept for API
// tooling. It issues and stores an access token only.
func (s *Service) BasicLogin(ctx context.Context, username, pass string) (string, *Principal, error) {
	principal, err := s.identity.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if !s.hasher.Verify(pass, principal.PasswordSalt, principal.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}
	if !principal.Enabled {
		return "", nil, ErrAccountDisabled
	}

	access, err := s.codec.IssueAccess(principal.ID)
	if err != nil {
		return "", nil, err
	}
	if err := s.store.Save(ctx, token.KindAccess, principal.ID, access.Value, access.ExpiresAt); err != nil {
		return "", nil, err
	}
	if err := s.identity.UpdateLoginTime(ctx, principal.Username, time.Now()); err != nil {
		return "", nil, err
	}
	return access.Value, principal, nil
}

// Authenticate resolves a bearer token into its principal: the token must
// decode as an access token, its store record must still be live (store
// eviction is authoritative over the embedded expiry claim), and the
// subject must still exist.
func (s *Service) Authenticate(ctx context.Context, value string) (*Principal, error) {
	claims, err := s.codec.ParseKind(value, token.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	live, err := s.store.Exists(ctx, token.KindAccess, claims.Subject, value)
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, ErrTokenInvalid
	}

	principal, err := s.identity.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return principal, nil
}

func (s *Service) report(p *Principal, in LoginInput, success bool, msg string) {
	s.dispatcher.Dispatch(LoginRecord{
		Username:  p.Username,
		UserUUID:  p.UUID,
		IP:        in.IP,
		UserAgent: in.UserAgent,
		Success:   success,
		Message:   msg,
		LoginAt:   time.Now(),
	})
}
