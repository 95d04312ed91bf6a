package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/a1gen/internal/api/response"
	"github.com/kiranshivaraju/a1gen/internal/ratelimit"
	"github.com/rs/zerolog"
)

// RateLimit enforces per-caller request limits.
type RateLimit struct {
	limiter ratelimit.Limiter
	logger  zerolog.Logger
}

// NewRateLimit creates a new RateLimit middleware.
func NewRateLimit(l ratelimit.Limiter, logger zerolog.Logger) *RateLimit {
	return &RateLimit{limiter: l, logger: logger}
}

// Limit applies rate limiting based on the caller id set by ProxyAuth.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := GetCallerID(r)
		if !ok {
			// No caller id means auth middleware didn't run; pass through
			next.ServeHTTP(w, r)
			return
		}

		res, err := rl.limiter.Allow(r.Context(), caller)
		if err != nil {
			// On limiter error, allow the request (fail open)
			rl.logger.Warn().Err(err).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}

		retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(res.RetryAfter).Unix()))

		if !res.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
