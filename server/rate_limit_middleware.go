package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-line-login/ratelimit"
)

const rateLimitMessage = "Too many requests, please try again later."

// RateLimitMiddleware rejects callers over limiter's window with 429. Limiter
// backend errors let the request through.
func (s *Server) RateLimitMiddleware(name string, limiter ratelimit.Limiter) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if limiter == nil {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				log.Warn().Err(err).Str("limiter", name).Msg("rate limiter unavailable, allowing request")
				next(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(math.Ceil(res.ResetIn.Seconds()))))

			if !res.Allowed {
				s.metrics.ObserveRateLimited(name)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
				writeJSON(w, http.StatusTooManyRequests, errorResponse{
					Message: rateLimitMessage,
					Status:  http.StatusTooManyRequests,
				})
				return
			}
			next(w, r)
		}
	}
}
