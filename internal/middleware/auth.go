package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"bb-fantasy/internal/domain"
	"bb-fantasy/internal/service"
	"bb-fantasy/pkg/errors"
	"bb-fantasy/pkg/logger"

	"github.com/google/uuid"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// UserContextKey is the key for the signed-in *domain.User
	UserContextKey ContextKey = "user"
	// SessionTokenContextKey is the key for the raw session token
	SessionTokenContextKey ContextKey = "session_token"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// SessionCookieName is the cookie carrying the session token
const SessionCookieName = "session-token"

// SessionToken returns the session token from the cookie, falling back to an
// "Authorization: Bearer" header.
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// Auth rejects requests without a valid session
func Auth(authService service.AuthService, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				writeErrorResponse(w, errors.NewAuthenticationError("Unauthorized"), logger)
				return
			}

			ctx := r.Context()
			user, err := authService.ResolveSession(ctx, token)
			if err != nil {
				writeErrorResponse(w, errors.FromError(err), logger)
				return
			}

			ctx = context.WithValue(ctx, UserContextKey, user)
			ctx = context.WithValue(ctx, SessionTokenContextKey, token)

			logger.WithField("user_id", user.ID).Debug("User authenticated successfully")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the user when a valid session is present and
// otherwise continues anonymously.
func OptionalAuth(authService service.AuthService, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, SessionTokenContextKey, token)
			user, err := authService.ResolveSession(ctx, token)
			if err == nil {
				ctx = context.WithValue(ctx, UserContextKey, user)
			} else {
				logger.WithError(err).Debug("Ignoring invalid session")
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after Auth
func RequireAdmin(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if user == nil {
				writeErrorResponse(w, errors.NewAuthenticationError("Unauthorized"), logger)
				return
			}
			if !user.IsAdmin {
				logger.WithField("user_id", user.ID).Warn("Non-admin tried an admin route")
				writeErrorResponse(w, errors.NewAuthorizationError("Admin access required"), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUser returns the signed-in user, or nil
func GetUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(UserContextKey).(*domain.User)
	return user
}

// GetSessionToken returns the session token seen by Auth or OptionalAuth
func GetSessionToken(ctx context.Context) string {
	token, _ := ctx.Value(SessionTokenContextKey).(string)
	return token
}

// RequestID creates a middleware that adds a unique request ID to each request
func RequestID(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" || len(requestID) > 64 {
				requestID = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID returns the request ID, or ""
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

// writeErrorResponse writes an error response to the client
func writeErrorResponse(w http.ResponseWriter, appErr *errors.AppError, logger *logger.Logger) {
	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.WithError(appErr).Error("Request error")
	} else {
		logger.WithField("error", appErr.Message).Debug("Request rejected")
	}

	response := errors.ErrorResponse{Success: false}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = w.Header().Get("X-Request-ID")
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.WithError(err).Error("Failed to encode error response")
	}
}
