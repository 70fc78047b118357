package token

import (
	"crypto/ed25519"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes the two token flavors. Access tokens authenticate
// ordinary requests; refresh tokens are only accepted by the token-renewal
// endpoint.
type Kind string

const (
	// KindAccess marks a short-lived access token.
	KindAccess Kind = "access"
	// KindRefresh marks the longer-lived refresh token paired with an
	// access token at login time.
	KindRefresh Kind = "refresh"
)

// SigningMethod selects the JWT signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared HMAC secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key.
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrTokenMalformed is returned when a token fails to parse or its
	// signature does not verify.
	ErrTokenMalformed = errors.New("token malformed or signature invalid")
	// ErrTokenExpired is returned when a token's embedded expiry has
	// elapsed. The store-eviction check remains authoritative for tokens
	// whose claim has not yet lapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrKindMismatch is returned when a structurally valid token carries
	// the wrong kind for the operation (e.g. a refresh token presented as
	// an access token).
	ErrKindMismatch = errors.New("token kind mismatch")
)

// Config holds the codec's signing material and lifetimes.
// RefreshTTL must exceed AccessTTL: a refresh token always outlives the
// access token it was issued with.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	Key           []byte // HMAC secret or Ed25519 private key seed
	Issuer        string
	Leeway        time.Duration
}

// Claims is the signed payload of every issued token.
type Claims struct {
	Subject string `json:"sub_id"`
	Kind    Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// Codec mints and parses signed tokens. A Codec is immutable after
// construction and safe for concurrent use.
type Codec struct {
	config Config
	method jwt.SigningMethod
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
}

// Issued describes one minted token: the compact serialized form plus the
// expiry the caller should use as the store TTL.
type Issued struct {
	Value     string
	ExpiresAt time.Time
}

// NewCodec validates cfg and returns a ready Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("refresh TTL must exceed access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("issuer is required")
	}

	c := &Codec{config: cfg}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Key) == 0 {
			return nil, errors.New("hs256 requires a signing key")
		}
		c.method = jwt.SigningMethodHS256
	case MethodEd25519:
		if len(cfg.Key) != ed25519.SeedSize {
			return nil, errors.New("ed25519 requires a 32-byte seed key")
		}
		c.priv = ed25519.NewKeyFromSeed(cfg.Key)
		c.pub = c.priv.Public().(ed25519.PublicKey)
		c.method = jwt.SigningMethodEdDSA
	default:
		return nil, errors.New("unsupported signing method")
	}

	return c, nil
}

// Config returns a copy of the codec's configuration, including the
// signing material the codec was built with.
func (c *Codec) Config() Config { return c.config }

// AccessTTL reports the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.config.AccessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.config.RefreshTTL }

// IssueAccess mints an access token for subject, valid for the configured
// access lifetime starting now.
func (c *Codec) IssueAccess(subject string) (Issued, error) {
	return c.issue(subject, KindAccess, c.config.AccessTTL)
}

// IssueRefresh mints a refresh token for subject, valid for the configured
// refresh lifetime starting now.
func (c *Codec) IssueRefresh(subject string) (Issued, error) {
	return c.issue(subject, KindRefresh, c.config.RefreshTTL)
}

func (c *Codec) issue(subject string, kind Kind, ttl time.Duration) (Issued, error) {
	if strings.TrimSpace(subject) == "" {
		return Issued{}, errors.New("subject is required")
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Subject: subject,
		Kind:    kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	tok := jwt.NewWithClaims(c.method, claims)
	signed, err := tok.SignedString(c.signKey())
	if err != nil {
		return Issued{}, err
	}

	return Issued{Value: signed, ExpiresAt: expiresAt}, nil
}

// Parse verifies the signature and registered claims of value and returns
// its Claims. Structural or signature failures map to ErrTokenMalformed,
// elapsed expiry to ErrTokenExpired.
func (c *Codec) Parse(value string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithIssuer(c.config.Issuer),
		jwt.WithLeeway(c.config.Leeway),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(value, claims, func(t *jwt.Token) (any, error) {
		return c.verifyKey(), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if claims.Subject == "" || (claims.Kind != KindAccess && claims.Kind != KindRefresh) {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// ParseKind is Parse plus a kind check.
func (c *Codec) ParseKind(value string, kind Kind) (*Claims, error) {
	claims, err := c.Parse(value)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, ErrKindMismatch
	}
	return claims, nil
}

func (c *Codec) signKey() any {
	if c.config.SigningMethod == MethodEd25519 {
		return c.priv
	}
	return c.config.Key
}

func (c *Codec) verifyKey() any {
	if c.config.SigningMethod == MethodEd25519 {
		return c.pub
	}
	return c.config.Key
}
