package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"legado/internal/platform/ratelimit"
	"legado/internal/transport/http/shared"
	dErrors "legado/pkg/domain-errors"
)

// RateLimit throttles requests through the given limiter, keyed by wallet
// credential when one is already in context and by remote address otherwise.
// A limiter failure fails open; throttling must not take the registry down.
func RateLimit(limiter ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r)

			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Error("rate limit check failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				shared.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if wallet := GetWallet(r.Context()); !wallet.IsZero() {
		return "wallet:" + wallet.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
