package adminauth

import (
	"context"
	"time"
)

// Principal is the authenticated identity attached to a request: the
// account plus its role memberships and menu permissions. Owned by the
// identity store; the core reads it and only writes back login metadata.
type Principal struct {
	ID        string
	UUID      string
	Username  string
	Nickname  string
	Enabled   bool
	Superuser bool
	Roles     []string
	// MenuPerms are the permission tags attached to the principal's
	// resolved menu entries, consulted in menu authorization mode.
	MenuPerms []string

	PasswordHash string
	PasswordSalt string
	LastLoginAt  time.Time
}

// IdentityStore is the narrow slice of the relational layer the core needs.
// Lookups return ErrNotFound for absent principals.
type IdentityStore interface {
	GetByUsername(ctx context.Context, username string) (*Principal, error)
	GetByID(ctx context.Context, id string) (*Principal, error)
	UpdateLoginTime(ctx context.Context, username string, at time.Time) error
}

// LoginRecord is one entry of the login history.
type LoginRecord struct {
	Username  string
	UserUUID  string
	IP        string
	UserAgent string
	Success   bool
	Message   string
	LoginAt   time.Time
}

// LoginRecorder persists login history. Records are dispatched
// fire-and-forget: recorder failures are logged and never surface on the
// login path.
type LoginRecorder interface {
	Record(ctx context.Context, rec LoginRecord) error
}

// CaptchaDrawer renders a challenge code into image bytes. Image rendering
// is an external collaborator; the core only generates and matches codes.
type CaptchaDrawer interface {
	Draw(code string, width, height int) ([]byte, error)
}

// LoginInput is one login attempt as received from the HTTP layer.
type LoginInput struct {
	Username  string
	Password  string
	Captcha   string
	IP        string
	UserAgent string
}

// TokenPair is an issued access/refresh pair with the expiries clients need
// to schedule renewal.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginResult is a successful login: the token pair plus the principal
// summary returned to the client.
type LoginResult struct {
	TokenPair
	Principal *Principal
}
