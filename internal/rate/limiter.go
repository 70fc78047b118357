package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned when an identifier exhausts its window
	// budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transport failures talking to Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Limiter enforces per-identifier fixed-window limits using Redis counters.
type Limiter struct {
	rdb    redis.UniversalClient
	prefix string
}

// New returns a Limiter with counters namespaced under "{app}_limiter:".
func New(rdb redis.UniversalClient, app string) *Limiter {
	return &Limiter{rdb: rdb, prefix: app + "_limiter:"}
}

// Allow counts one hit for (scope, id) and reports whether it is within
// limit hits per window. When over budget, retryAfter carries the remaining
// window duration.
func (l *Limiter) Allow(ctx context.Context, scope, id string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error) {
	if limit <= 0 || window <= 0 {
		return true, 0, nil
	}

	key := l.prefix + scope + ":" + id
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	if count <= int64(limit) {
		return true, 0, nil
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return false, ttl, nil
}

// Reset clears the counter for (scope, id). Used by tests and by manual
// unblocking of an address.
func (l *Limiter) Reset(ctx context.Context, scope, id string) error {
	return l.rdb.Del(ctx, l.prefix+scope+":"+id).Err()
}
