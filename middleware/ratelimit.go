package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kalenite/adminauth/httputil"
	"github.com/Kalenite/adminauth/internal/rate"
)

// RateLimit throttles a route per client IP: limit hits per window,
// counted in Redis. Over-budget requests get a 429 with a Retry-After
// hint. Limiter transport failures fail open: an unavailable counter must
// not take login down with it.
func RateLimit(limiter *rate.Limiter, scope string, limit int, window time.Duration, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter, err := limiter.Allow(r.Context(), scope, httputil.ClientIP(r), limit, window)
			if err != nil {
				if log != nil {
					log.WithError(err).WithField("scope", scope).Warn("rate limiter unavailable")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				httputil.WriteRateLimited(w, retryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
