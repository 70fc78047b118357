package tokenstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kalenite/adminauth/token"
)

var (
	// ErrNotFound is returned when a requested record is absent, whether it
	// expired, was revoked, or never existed. The three cases are
	// indistinguishable to readers.
	ErrNotFound = errors.New("token store: record not found")
	// ErrExpiredRecord is returned when a write is attempted with a
	// non-positive TTL; the record would be dead on arrival.
	ErrExpiredRecord = errors.New("token store: record already expired")
)

const (
	accessSuffix  = "_access_token"
	refreshSuffix = "_access_refresh_token"
	captchaSuffix = "_login_captcha"

	scanBatch   = 100
	deleteBatch = 500

	// recordMarker is the stored value; liveness is carried by key
	// existence and TTL, not by the payload.
	recordMarker = "1"
)

// Store is the Redis-backed record of live tokens and pending captcha
// challenges. Safe for concurrent use.
type Store struct {
	rdb redis.UniversalClient
	app string
}

// New returns a Store namespacing all keys under the given app name.
func New(rdb redis.UniversalClient, app string) (*Store, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	app = strings.TrimSpace(app)
	if app == "" {
		return nil, errors.New("app name is required")
	}
	if strings.Contains(app, ":") {
		return nil, errors.New("app name must not contain ':'")
	}
	return &Store{rdb: rdb, app: app}, nil
}

func (s *Store) kindPrefix(kind token.Kind) string {
	if kind == token.KindRefresh {
		return s.app + refreshSuffix
	}
	return s.app + accessSuffix
}

func (s *Store) tokenKey(kind token.Kind, subject, value string) string {
	return s.kindPrefix(kind) + ":" + subject + ":" + value
}

// SubjectPrefix returns the bulk-revocation prefix for one subject's tokens
// of the given kind.
func (s *Store) SubjectPrefix(kind token.Kind, subject string) string {
	return s.kindPrefix(kind) + ":" + subject + ":"
}

// Save records a live token until expiresAt. The TTL is the token's
// remaining lifetime, so store eviction and claim expiry coincide for
// tokens that are never revoked.
func (s *Store) Save(ctx context.Context, kind token.Kind, subject, value string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return ErrExpiredRecord
	}
	return s.rdb.Set(ctx, s.tokenKey(kind, subject, value), recordMarker, ttl).Err()
}

// Exists reports whether the token is still live in the store.
func (s *Store) Exists(ctx context.Context, kind token.Kind, subject, value string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.tokenKey(kind, subject, value)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes one token record. Deleting an absent record is not an
// error; revocation is idempotent.
func (s *Store) Delete(ctx context.Context, kind token.Kind, subject, value string) error {
	return s.rdb.Del(ctx, s.tokenKey(kind, subject, value)).Err()
}

// RevokeAll deletes every record under the subject's prefix for one kind
// and returns the number of records removed. Enumeration and deletion are
// best-effort, not atomic: a token saved concurrently may survive.
func (s *Store) RevokeAll(ctx context.Context, kind token.Kind, subject string) (int, error) {
	return s.deletePrefix(ctx, s.SubjectPrefix(kind, subject))
}

// RevokeSubject deletes every access and refresh record for the subject.
// Used on logout, password reset, and account deletion.
func (s *Store) RevokeSubject(ctx context.Context, subject string) (int, error) {
	deleted, err := s.RevokeAll(ctx, token.KindAccess, subject)
	if err != nil {
		return deleted, err
	}
	n, err := s.RevokeAll(ctx, token.KindRefresh, subject)
	return deleted + n, err
}

func (s *Store) deletePrefix(ctx context.Context, prefix string) (int, error) {
	var (
		cursor  uint64
		deleted int
		batch   []string
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.rdb.Del(ctx, batch...).Result()
		deleted += int(n)
		batch = batch[:0]
		return err
	}

	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return deleted, err
		}
		batch = append(batch, keys...)
		if len(batch) >= deleteBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if err := flush(); err != nil {
		return deleted, err
	}
	return deleted, nil
}
