package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"

	"bb-fantasy/internal/service"
	"bb-fantasy/pkg/errors"
	"bb-fantasy/pkg/logger"
)

// RateLimit applies limit to the route, keyed by client IP and user agent.
// Every response carries the X-RateLimit-* headers; rejected ones also carry
// Retry-After.
func RateLimit(limiter *service.RateLimiter, route string, limit service.Limit, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientID := ClientID(r)
			result := limiter.Allow(r.Context(), route, clientID, limit)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))

			if !result.Allowed {
				retryAfter := int(result.RetryAfter.Seconds() + 0.999)
				if retryAfter < 1 {
					retryAfter = 1
				}
				h.Set("Retry-After", strconv.Itoa(retryAfter))

				logger.WithFields(map[string]interface{}{
					"route":       route,
					"client":      clientID,
					"retry_after": retryAfter,
				}).Warn("Rate limit exceeded")

				appErr := errors.NewRateLimitError("Too many requests. Please try again later.")
				appErr.Details = map[string]interface{}{"retryAfter": retryAfter}
				writeErrorResponse(w, appErr, logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientID identifies a caller as "<ip>:<first 16 hex chars of sha256(user agent)>"
func ClientID(r *http.Request) string {
	sum := sha256.Sum256([]byte(r.Header.Get("User-Agent")))
	return ClientIP(r) + ":" + hex.EncodeToString(sum[:])[:16]
}

// ClientIP returns the host part of RemoteAddr. Forwarding headers are only
// honoured through chi's RealIP, which the router installs when the proxy
// in front is trusted.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
