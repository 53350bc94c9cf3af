package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"bb-fantasy/internal/domain"
	"bb-fantasy/internal/middleware"
	"bb-fantasy/internal/repository/repotest"
	"bb-fantasy/internal/service"
	"bb-fantasy/internal/service/auth"
	"bb-fantasy/internal/service/scoring"
	"bb-fantasy/pkg/errors"
	"bb-fantasy/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAppURL = "https://league.example"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type linkMailer struct {
	mu    sync.Mutex
	links map[string]string
}

func (m *linkMailer) SendMagicLink(ctx context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[to] = link
	return nil
}

func (m *linkMailer) token(t *testing.T, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[email]
	require.True(t, ok, "no link sent to %s", email)
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

type testServer struct {
	router http.Handler
	store  *repotest.Store
	mailer *linkMailer
	hgs    []*domain.Houseguest
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.NewNop()
	store := repotest.NewStore()
	repos := store.Repositories()
	mailer := &linkMailer{links: map[string]string{}}

	authService := auth.NewService(repos.User, repos.Session, repos.VerificationToken, mailer, auth.Config{
		Secret:       []byte("handler-test-secret-handler-test-secret"),
		AppURL:       testAppURL,
		SessionTTL:   time.Hour,
		MagicLinkTTL: time.Hour,
		AdminEmails:  []string{"admin@example.com"},
	}, log)

	services := &service.Services{
		Auth:        authService,
		League:      service.NewLeagueService(repos, nil, scoring.New(0), log),
		Admin:       service.NewAdminService(repos, nil, log),
		RateLimiter: service.NewRateLimiter(nil, nil),
	}

	ts := &testServer{
		router: NewRouter(RouterConfig{
			Services:       services,
			Logger:         log,
			AllowedOrigins: []string{testAppURL},
			AppURL:         testAppURL,
			MaxPhotoBytes:  1 << 20,
			Version:        "test",
		}),
		store:  store,
		mailer: mailer,
	}
	for _, name := range [][2]string{
		{"Ava", "Pearl"}, {"Zach", "Cornell"}, {"Rachel", "Reilly"},
		{"Mickey", "Lee"}, {"Keanu", "Soto"}, {"Amy", "Bingham"},
	} {
		ts.hgs = append(ts.hgs, store.AddHouseguest(&domain.Houseguest{
			Slug:      strings.ToLower(name[0] + "-" + name[1]),
			FirstName: name[0],
			LastName:  name[1],
		}))
	}
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

// signIn runs the magic link flow and returns the session cookie
func (ts *testServer) signIn(t *testing.T, email string) *http.Cookie {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/auth/signin/email", map[string]string{"email": email}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/auth/callback/email?token="+url.QueryEscape(ts.mailer.token(t, email)), nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testAppURL+"/welcome", rec.Header().Get("Location"))

	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			assert.True(t, c.HttpOnly)
			assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func (ts *testServer) pickIDs(n int) []string {
	ids := make([]string, 0, n)
	for _, hg := range ts.hgs[:n] {
		ids = append(ids, hg.ID)
	}
	return ids
}

func multipartProfile(t *testing.T, username string, photo []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("username", username))
	if photo != nil {
		fw, err := mw.CreateFormFile("photo", "me.png")
		require.NoError(t, err)
		_, err = fw.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) errors.ErrorResponse {
	t.Helper()
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestPlayerFlow(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.signIn(t, "player@example.com")

	// Session
	rec := ts.do(t, http.MethodGet, "/api/auth/session", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var session struct {
		User *domain.SessionUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotNil(t, session.User)
	assert.Equal(t, "player@example.com", session.User.Email)
	assert.False(t, session.User.IsAdmin)

	// Me before onboarding
	rec = ts.do(t, http.MethodGet, "/api/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var me domain.Me
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Empty(t, me.Picks)
	assert.Empty(t, me.PhotoURL)

	// Onboarding
	body, contentType := multipartProfile(t, "bigfan", pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/api/me", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var user domain.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "bigfan", user.Username)
	assert.True(t, strings.HasPrefix(user.PhotoURL, "data:image/png;base64,"))

	// Picks
	rec = ts.do(t, http.MethodPost, "/api/me/picks", map[string]interface{}{"picks": ts.pickIDs(5)}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/me/picks", map[string]interface{}{"picks": ts.pickIDs(5)}, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Leaderboard with ETag
	rec = ts.do(t, http.MethodGet, "/api/leaderboard", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var board []domain.LeaderboardEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	require.Len(t, board, 1)
	assert.Equal(t, "bigfan", board[0].Username)
	assert.Equal(t, 5, board[0].RemainingCount)

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	req = httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	// Public profile
	rec = ts.do(t, http.MethodGet, "/api/users/bigfan", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile domain.PublicProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Len(t, profile.Houseguests, 5)

	// Sign out
	rec = ts.do(t, http.MethodPost, "/api/auth/signout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallbackErrors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/auth/callback/email?token=bogus", nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testAppURL+"/auth/signin?error=InvalidToken", rec.Header().Get("Location"))

	// Links are single use
	rec = ts.do(t, http.MethodPost, "/api/auth/signin/email", map[string]string{"email": "once@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	token := ts.mailer.token(t, "once@example.com")

	rec = ts.do(t, http.MethodGet, "/api/auth/callback/email?token="+url.QueryEscape(token), nil, nil)
	assert.Equal(t, testAppURL+"/welcome", rec.Header().Get("Location"))
	rec = ts.do(t, http.MethodGet, "/api/auth/callback/email?token="+url.QueryEscape(token), nil, nil)
	assert.Equal(t, testAppURL+"/auth/signin?error=InvalidToken", rec.Header().Get("Location"))
}

func TestSignInValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing body", ""},
		{"bad json", "{"},
		{"missing email", map[string]string{}},
		{"invalid email", map[string]string{"email": "not-an-email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/auth/signin/email", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, errors.ErrorTypeValidation, decodeErrorBody(t, rec).Error.Type)
		})
	}
}

func TestSessionAnonymous(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/auth/session", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":null}`, rec.Body.String())
}

func TestPicksValidation(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.signIn(t, "picker@example.com")

	// Stays within the three-per-minute picks budget
	tests := []struct {
		name string
		ids  []string
	}{
		{"wrong count", ts.pickIDs(6)},
		{"duplicate", append(ts.pickIDs(4), ts.hgs[0].ID)},
		{"unknown", append(ts.pickIDs(4), "missing")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/me/picks", map[string]interface{}{"picks": tt.ids}, cookie)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(t)
	ts.store.AddUser(&domain.User{Email: "other@example.com", Username: "taken"})
	cookie := ts.signIn(t, "mover@example.com")

	rec := ts.do(t, http.MethodPut, "/api/me", map[string]string{"username": "taken"}, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/me", map[string]string{"username": "x"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/me", map[string]string{"username": "mover_2"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Onboarding without a photo is rejected
	body, contentType := multipartProfile(t, "mover_3", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/me", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Non-image uploads are rejected
	body, contentType = multipartProfile(t, "mover_3", []byte("just some text"))
	req = httptest.NewRequest(http.MethodPut, "/api/me", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t)
	player := ts.signIn(t, "player@example.com")
	admin := ts.signIn(t, "admin@example.com")

	rec := ts.do(t, http.MethodPost, "/api/admin/week/create", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/admin/week/create", nil, player)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/admin/week/create", nil, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var week domain.Week
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &week))
	assert.Equal(t, 1, week.Number)

	hoh := ts.hgs[0].ID
	rec = ts.do(t, http.MethodPut, "/api/admin/week/1", `{"hohWinnerId":"`+hoh+`","hohCompetition":"Wall"}`, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &week))
	require.NotNil(t, week.HOHWinnerID)
	assert.Equal(t, hoh, *week.HOHWinnerID)

	rec = ts.do(t, http.MethodGet, "/api/houseguests/ava-pearl", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hg domain.HouseguestWithPoints
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hg))
	assert.Equal(t, []int{1}, hg.Wins.HOH)
	require.NotNil(t, hg.Breakdown)
	assert.Equal(t, scoring.PointsHOH, hg.Breakdown.HOH)

	rec = ts.do(t, http.MethodPut, "/api/admin/week/1", `{"unknownField":1}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/admin/week/abc", `{}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/admin/houseguest/"+ts.hgs[1].ID, `{"bio":"Engineer","finalPlacement":"WINNER"}`, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/admin/promote", map[string]string{"email": "player@example.com"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Promotion takes effect on the player's existing session
	rec = ts.do(t, http.MethodPost, "/api/admin/houseguests/seed", nil, player)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHistoryAndHouseguests(t *testing.T) {
	ts := newTestServer(t)
	ts.store.AddWeek(&domain.Week{Number: 1})
	ts.store.AddWeek(&domain.Week{Number: 2})

	rec := ts.do(t, http.MethodGet, "/api/history?desc=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var weeks []domain.Week
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &weeks))
	require.Len(t, weeks, 2)
	assert.Equal(t, 2, weeks[0].Number)

	rec = ts.do(t, http.MethodGet, "/api/houseguests?q=keanu", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hgs []domain.HouseguestWithPoints
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hgs))
	require.NotEmpty(t, hgs)
	assert.Equal(t, "keanu-soto", hgs[0].Slug)

	rec = ts.do(t, http.MethodGet, "/api/houseguests/nobody", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "disabled", resp.Checks["redis"])
}

func TestSignInLimitIgnoresForwardedFor(t *testing.T) {
	ts := newTestServer(t)

	send := func(i int) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signin/email",
			strings.NewReader(`{"email":"flood@example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < service.LimitEmailSignIn.Requests; i++ {
		require.Equal(t, http.StatusOK, send(i))
	}
	assert.Equal(t, http.StatusTooManyRequests, send(99))
}
