package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func (s *Store) captchaKey(networkID string) string {
	return s.app + captchaSuffix + ":" + networkID
}

// SetCaptcha stores the pending challenge code for one network identity,
// replacing any previous challenge for that identity.
func (s *Store) SetCaptcha(ctx context.Context, networkID, code string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrExpiredRecord
	}
	return s.rdb.Set(ctx, s.captchaKey(networkID), code, ttl).Err()
}

// GetCaptcha returns the pending challenge for the network identity, or
// ErrNotFound once it has expired or been consumed.
func (s *Store) GetCaptcha(ctx context.Context, networkID string) (string, error) {
	code, err := s.rdb.Get(ctx, s.captchaKey(networkID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

// DeleteCaptcha consumes the challenge. A challenge is single use: the
// caller deletes it on the first successful match.
func (s *Store) DeleteCaptcha(ctx context.Context, networkID string) error {
	return s.rdb.Del(ctx, s.captchaKey(networkID)).Err()
}
