package auth

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"bb-fantasy/internal/domain"
	"bb-fantasy/internal/repository/repotest"
	"bb-fantasy/pkg/errors"
	"bb-fantasy/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	mu    sync.Mutex
	to    []string
	links []string
	err   error
}

func (m *captureMailer) SendMagicLink(ctx context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.links = append(m.links, link)
	return nil
}

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.links)
	u, err := url.Parse(m.links[len(m.links)-1])
	require.NoError(t, err)
	return u.Query().Get("token")
}

func newTestService(t *testing.T) (*Service, *repotest.Store, *captureMailer) {
	t.Helper()
	store := repotest.NewStore()
	repos := store.Repositories()
	mailer := &captureMailer{}
	svc := NewService(repos.User, repos.Session, repos.VerificationToken, mailer, Config{
		Secret:       []byte("test-secret-test-secret-test-secret"),
		AppURL:       "https://league.example",
		SessionTTL:   30 * 24 * time.Hour,
		MagicLinkTTL: 24 * time.Hour,
		AdminEmails:  []string{"boss@example.com"},
	}, logger.NewNop())
	return svc, store, mailer
}

func TestRequestMagicLink_CreatesUserAndSendsLink(t *testing.T) {
	svc, store, mailer := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestMagicLink(ctx, "  Player.One@Example.com "))

	user, err := store.Repositories().User.GetByEmail(ctx, "player.one@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "player_one", user.Username)
	assert.False(t, user.IsAdmin)

	require.Len(t, mailer.to, 1)
	assert.Equal(t, "player.one@example.com", mailer.to[0])
	assert.True(t, strings.HasPrefix(mailer.links[0], "https://league.example/api/auth/callback/email?token="))
	assert.Equal(t, 1, store.TokenCount())
}

func TestRequestMagicLink_ExistingUserReused(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	existing := store.AddUser(&domain.User{Email: "fan@example.com", Username: "bigfan"})

	require.NoError(t, svc.RequestMagicLink(ctx, "fan@example.com"))

	users, err := store.Repositories().User.ListWithPicks(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, existing.ID, users[0].ID)
}

func TestRequestMagicLink_AdminEmail(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestMagicLink(ctx, "Boss@Example.com"))

	user, err := store.Repositories().User.GetByEmail(ctx, "boss@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.IsAdmin)
}

func TestRequestMagicLink_UsernameCollision(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	store.AddUser(&domain.User{Email: "other@example.com", Username: "julie"})

	require.NoError(t, svc.RequestMagicLink(ctx, "julie@example.com"))

	user, err := store.Repositories().User.GetByEmail(ctx, "julie@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEqual(t, "julie", user.Username)
	assert.True(t, strings.HasPrefix(user.Username, "julie_"))
	assert.LessOrEqual(t, len(user.Username), domain.UsernameMaxLength)
}

func TestRequestMagicLink_MailerFailure(t *testing.T) {
	svc, _, mailer := newTestService(t)
	mailer.err = assert.AnError

	err := svc.RequestMagicLink(context.Background(), "x@example.com")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
}

func TestCompleteMagicLink_SingleUse(t *testing.T) {
	svc, store, mailer := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestMagicLink(ctx, "player@example.com"))
	token := mailer.lastToken(t)

	session, err := svc.CompleteMagicLink(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Len(t, session.Token, 64)
	assert.NotNil(t, store.Session(session.Token))

	_, err = svc.CompleteMagicLink(ctx, token)
	require.Error(t, err)
	assert.Equal(t, CodeInvalidToken, CallbackErrorCode(err))
}

func TestCompleteMagicLink_Expired(t *testing.T) {
	svc, _, mailer := newTestService(t)
	ctx := context.Background()

	issued := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }
	require.NoError(t, svc.RequestMagicLink(ctx, "late@example.com"))
	token := mailer.lastToken(t)

	svc.now = func() time.Time { return issued.Add(25 * time.Hour) }
	_, err := svc.CompleteMagicLink(ctx, token)
	require.Error(t, err)
	assert.Equal(t, CodeTokenExpired, CallbackErrorCode(err))
}

func TestCompleteMagicLink_Rejections(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, MagicLinkClaims{
		Email: "x@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			Subject:   "user",
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("some-other-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		code  string
	}{
		{"empty", "", CodeInvalidToken},
		{"garbage", "not-a-jwt", CodeInvalidToken},
		{"wrong secret", forged, CodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CompleteMagicLink(ctx, tt.token)
			require.Error(t, err)
			assert.Equal(t, tt.code, CallbackErrorCode(err))
		})
	}
}

func TestCompleteMagicLink_UserDeleted(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	// Token for a user id that was never stored
	user := &domain.User{ID: "ghost", Email: "ghost@example.com"}
	token, err := svc.issueMagicLink(ctx, user)
	require.NoError(t, err)
	require.Equal(t, 1, store.TokenCount())

	_, err = svc.CompleteMagicLink(ctx, token)
	require.Error(t, err)
	assert.Equal(t, CodeUserNotFound, CallbackErrorCode(err))
}

func TestResolveSession(t *testing.T) {
	svc, store, mailer := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestMagicLink(ctx, "player@example.com"))
	session, err := svc.CompleteMagicLink(ctx, mailer.lastToken(t))
	require.NoError(t, err)

	user, err := svc.ResolveSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "player@example.com", user.Email)

	_, err = svc.ResolveSession(ctx, "")
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))

	_, err = svc.ResolveSession(ctx, "unknown")
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))

	svc.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	_, err = svc.ResolveSession(ctx, session.Token)
	require.Error(t, err)
	assert.Equal(t, "Session expired", errors.FromError(err).Message)
	assert.Nil(t, store.Session(session.Token))
}

func TestSignOut(t *testing.T) {
	svc, store, mailer := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestMagicLink(ctx, "player@example.com"))
	session, err := svc.CompleteMagicLink(ctx, mailer.lastToken(t))
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, session.Token))
	assert.Nil(t, store.Session(session.Token))
	assert.NoError(t, svc.SignOut(ctx, ""))
}

func TestSweepExpired(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	repos := store.Repositories()

	past := time.Now().Add(-time.Hour)
	require.NoError(t, repos.Session.Create(ctx, &domain.Session{Token: "old", UserID: "u", Expires: past}))
	require.NoError(t, repos.Session.Create(ctx, &domain.Session{Token: "new", UserID: "u", Expires: time.Now().Add(time.Hour)}))
	require.NoError(t, repos.VerificationToken.Create(ctx, &domain.VerificationToken{Identifier: "a", Token: "t", Expires: past}))

	sessions, tokens, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sessions)
	assert.Equal(t, int64(1), tokens)
	assert.NotNil(t, store.Session("new"))
}

func TestUsernameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"julie@example.com", "julie"},
		{"first.last@example.com", "first_last"},
		{"a@example.com", "playera"},
		{"...@example.com", "player"},
		{"averyveryverylongname@example.com", "averyveryverylo"},
		{"Mixed-Case+tag@example.com", "mixed_case_tag"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got := usernameFromEmail(tt.email)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, len(got), domain.UsernameMinLength)
			assert.LessOrEqual(t, len(got), domain.UsernameMaxLength)
		})
	}
}

func TestWithSuffix(t *testing.T) {
	got := withSuffix("averyveryverylongname", "1234")
	assert.Equal(t, domain.UsernameMaxLength, len(got))
	assert.True(t, strings.HasSuffix(got, "_1234"))
}
