package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bb-fantasy/internal/domain"
	"bb-fantasy/internal/service"
	"bb-fantasy/pkg/errors"
	"bb-fantasy/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	sessions map[string]*domain.User
	expired  map[string]bool
}

func (s *stubAuth) RequestMagicLink(ctx context.Context, email string) error { return nil }

func (s *stubAuth) CompleteMagicLink(ctx context.Context, token string) (*domain.Session, error) {
	return nil, nil
}

func (s *stubAuth) ResolveSession(ctx context.Context, token string) (*domain.User, error) {
	if s.expired[token] {
		return nil, errors.NewAuthenticationError("Session expired")
	}
	if u, ok := s.sessions[token]; ok {
		return u, nil
	}
	return nil, errors.NewAuthenticationError("Unauthorized")
}

func (s *stubAuth) SignOut(ctx context.Context, token string) error { return nil }

func newStubAuth() *stubAuth {
	return &stubAuth{
		sessions: map[string]*domain.User{
			"player": {ID: "u1", Username: "player"},
			"admin":  {ID: "u2", Username: "boss", IsAdmin: true},
		},
		expired: map[string]bool{"old": true},
	}
}

func whoAmI(w http.ResponseWriter, r *http.Request) {
	if u := GetUser(r.Context()); u != nil {
		_, _ = w.Write([]byte(u.ID))
		return
	}
	_, _ = w.Write([]byte("anonymous"))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errors.ErrorResponse {
	t.Helper()
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAuth(t *testing.T) {
	handler := Auth(newStubAuth(), logger.NewNop())(http.HandlerFunc(whoAmI))

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantBody   string
		wantError  string
	}{
		{
			name:       "cookie",
			setup:      func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "player"}) },
			wantStatus: http.StatusOK,
			wantBody:   "u1",
		},
		{
			name:       "bearer",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer admin") },
			wantStatus: http.StatusOK,
			wantBody:   "u2",
		},
		{
			name:       "missing",
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Unauthorized",
		},
		{
			name:       "expired",
			setup:      func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "old"}) },
			wantStatus: http.StatusUnauthorized,
			wantError:  "Session expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
			if tt.wantError != "" {
				resp := decodeError(t, rec)
				assert.False(t, resp.Success)
				assert.Equal(t, tt.wantError, resp.Error.Message)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	handler := OptionalAuth(newStubAuth(), logger.NewNop())(http.HandlerFunc(whoAmI))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "anonymous", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "old"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	log := logger.NewNop()
	handler := Auth(newStubAuth(), log)(RequireAdmin(log)(http.HandlerFunc(whoAmI)))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/week/create", nil)
	req.Header.Set("Authorization", "Bearer player")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/week/create", nil)
	req.Header.Set("Authorization", "Bearer admin")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := service.NewRateLimiter(nil, nil)
	limit := service.Limit{Requests: 2, Window: time.Minute}
	handler := RateLimit(limiter, "picks", limit, logger.NewNop())(http.HandlerFunc(whoAmI))

	send := func(ua string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/me/picks", nil)
		req.Header.Set("User-Agent", ua)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send("browser")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, first.Header().Get("X-RateLimit-Reset"))
	assert.Empty(t, first.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, send("browser").Code)

	blocked := send("browser")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "0", blocked.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.Equal(t, errors.ErrorTypeRateLimit, decodeError(t, blocked).Error.Type)

	// A different user agent from the same IP is a different client
	assert.Equal(t, http.StatusOK, send("other").Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded header ignored", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "10.0.0.2:5000", "10.0.0.2"},
		{"real ip header ignored", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.2:5000", "10.0.0.2"},
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"rewritten by RealIP", nil, "203.0.113.9", "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestCORS(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://league.example"}), logger.NewNop())(http.HandlerFunc(whoAmI))

	req := httptest.NewRequest(http.MethodOptions, "/api/me", nil)
	req.Header.Set("Origin", "https://league.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://league.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	handler := RequestID(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetRequestID(r.Context())))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, rec.Header().Get("X-Request-ID"), rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Body.String())
}
