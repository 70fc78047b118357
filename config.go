package adminauth

import (
	"errors"
	"strings"
	"time"

	"github.com/Kalenite/adminauth/token"
)

// PermissionMode selects the authorization strategy, resolved once at
// startup.
type PermissionMode string

const (
	// ModePolicy evaluates stored permission and grouping rules.
	ModePolicy PermissionMode = "policy"
	// ModeMenu checks the required tag against the principal's menu
	// permissions.
	ModeMenu PermissionMode = "menu"
)

// Config holds the service's tunables. Validated once at construction and
// immutable afterwards.
type Config struct {
	// App namespaces every Redis key the core writes.
	App string

	Token token.Config

	// CaptchaTTL is the challenge window; CaptchaCodeLength the generated
	// code length.
	CaptchaTTL       time.Duration
	CaptchaCodeLength int

	// RefreshReuseWindow controls refresh-token reuse on renewal: while a
	// refresh token's remaining lifetime exceeds the window it is returned
	// unchanged, otherwise a fresh one is minted.
	RefreshReuseWindow time.Duration

	// RotateOnRefresh, when set, revokes the prior access/refresh pair on
	// renewal. Off by default: the original behavior keeps prior pairs
	// valid until their own TTL lapses.
	RotateOnRefresh bool

	// BcryptCost tunes password hashing; zero selects the library default.
	BcryptCost int

	// LoginLogBuffer sizes the fire-and-forget login-history queue.
	LoginLogBuffer int

	PermissionMode PermissionMode
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.App) == "" {
		return errors.New("app name is required")
	}
	if c.CaptchaTTL <= 0 {
		return errors.New("captcha TTL must be positive")
	}
	if c.CaptchaCodeLength <= 0 {
		c.CaptchaCodeLength = 4
	}
	if c.RefreshReuseWindow < 0 {
		return errors.New("refresh reuse window must not be negative")
	}
	if c.RefreshReuseWindow == 0 {
		c.RefreshReuseWindow = c.Token.AccessTTL
	}
	if c.LoginLogBuffer <= 0 {
		c.LoginLogBuffer = 256
	}
	switch c.PermissionMode {
	case ModePolicy, ModeMenu:
	case "":
		c.PermissionMode = ModePolicy
	default:
		return errors.New("unknown permission mode")
	}
	return nil
}
