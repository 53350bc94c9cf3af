package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"bb-fantasy/internal/domain"
	"bb-fantasy/internal/repository"
	"bb-fantasy/internal/service"
	"bb-fantasy/pkg/errors"
	"bb-fantasy/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "bb-fantasy"
	tokenAudience = "magic-link"
)

// Callback failure codes, passed to the sign-in page as ?error=
const (
	CodeInvalidToken  = "InvalidToken"
	CodeTokenExpired  = "TokenExpired"
	CodeUserNotFound  = "UserNotFound"
	CodeSessionError  = "SessionError"
	CodeCallbackError = "CallbackError"
)

// CallbackError is returned by CompleteMagicLink
type CallbackError struct {
	Code string
	Err  error
}

func (e *CallbackError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("magic link %s: %v", e.Code, e.Err)
	}
	return "magic link " + e.Code
}

func (e *CallbackError) Unwrap() error { return e.Err }

// CallbackErrorCode extracts the failure code of err
func CallbackErrorCode(err error) string {
	var cbErr *CallbackError
	if stderrors.As(err, &cbErr) {
		return cbErr.Code
	}
	return CodeCallbackError
}

// Config holds the auth settings
type Config struct {
	Secret       []byte
	AppURL       string
	SessionTTL   time.Duration
	MagicLinkTTL time.Duration
	AdminEmails  []string
}

// MagicLinkClaims are carried in the emailed token
type MagicLinkClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service implements the AuthService interface
type Service struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokens   repository.VerificationTokenRepository
	mailer   service.Mailer
	cfg      Config
	logger   *logger.Logger
	now      func() time.Time
}

// NewService creates a new auth service
func NewService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	tokens repository.VerificationTokenRepository,
	mailer service.Mailer,
	cfg Config,
	logger *logger.Logger,
) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		mailer:   mailer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// RequestMagicLink finds or creates the user and emails a sign-in link
func (s *Service) RequestMagicLink(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.findOrCreateUser(ctx, email)
	if err != nil {
		return err
	}

	if s.isAdminEmail(email) && !user.IsAdmin {
		if _, err := s.users.SetAdmin(ctx, email, true); err != nil {
			s.logger.WithError(err).Warn("Failed to grant admin to listed email")
		}
	}

	token, err := s.issueMagicLink(ctx, user)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/api/auth/callback/email?token=%s", s.cfg.AppURL, url.QueryEscape(token))
	if err := s.mailer.SendMagicLink(ctx, email, link); err != nil {
		return errors.NewExternalError("Failed to send email", err)
	}

	s.logger.WithField("user_id", user.ID).Info("Magic link issued")
	return nil
}

func (s *Service) issueMagicLink(ctx context.Context, user *domain.User) (string, error) {
	now := s.now()
	jti := uuid.NewString()
	expires := now.Add(s.cfg.MagicLinkTTL)

	if err := s.tokens.Create(ctx, &domain.VerificationToken{
		Identifier: user.Email,
		Token:      jti,
		Expires:    expires,
	}); err != nil {
		return "", errors.NewInternalError("Failed to create verification token", err)
	}

	claims := MagicLinkClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID,
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", errors.NewInternalError("Failed to sign token", err)
	}
	return signed, nil
}

// CompleteMagicLink verifies and consumes a link token, then opens a session.
// Errors are *CallbackError.
func (s *Service) CompleteMagicLink(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, &CallbackError{Code: CodeInvalidToken}
	}

	claims, err := s.parseMagicLink(token)
	if err != nil {
		s.logger.WithError(err).Debug("Magic link rejected")
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, &CallbackError{Code: CodeTokenExpired, Err: err}
		}
		return nil, &CallbackError{Code: CodeInvalidToken, Err: err}
	}

	stored, err := s.tokens.Consume(ctx, claims.ID)
	if err != nil {
		return nil, &CallbackError{Code: CodeCallbackError, Err: err}
	}
	if stored == nil || stored.Identifier != claims.Email {
		return nil, &CallbackError{Code: CodeInvalidToken}
	}
	if !s.now().Before(stored.Expires) {
		return nil, &CallbackError{Code: CodeTokenExpired}
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, &CallbackError{Code: CodeCallbackError, Err: err}
	}
	if user == nil {
		return nil, &CallbackError{Code: CodeUserNotFound}
	}

	sessionToken, err := newSessionToken()
	if err != nil {
		return nil, &CallbackError{Code: CodeSessionError, Err: err}
	}

	session := &domain.Session{
		Token:   sessionToken,
		UserID:  user.ID,
		Expires: s.now().Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, &CallbackError{Code: CodeSessionError, Err: err}
	}

	s.logger.WithField("user_id", user.ID).Info("Session created")
	return session, nil
}

func (s *Service) parseMagicLink(token string) (*MagicLinkClaims, error) {
	claims := &MagicLinkClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return s.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("token missing id or subject")
	}
	return claims, nil
}

// ResolveSession returns the user behind a session token
func (s *Service) ResolveSession(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, errors.NewAuthenticationError("Unauthorized")
	}

	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load session", err)
	}
	if session == nil {
		return nil, errors.NewAuthenticationError("Unauthorized")
	}
	if session.Expired(s.now()) {
		if err := s.sessions.Delete(ctx, token); err != nil {
			s.logger.WithError(err).Warn("Failed to delete expired session")
		}
		return nil, errors.NewAuthenticationError("Session expired")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load user", err)
	}
	if user == nil {
		return nil, errors.NewAuthenticationError("User not found")
	}
	return user, nil
}

// SignOut deletes the session
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return errors.NewInternalError("Failed to sign out", err)
	}
	return nil
}

// SweepExpired removes expired sessions and verification tokens
func (s *Service) SweepExpired(ctx context.Context) (sessions, tokens int64, err error) {
	now := s.now()
	if sessions, err = s.sessions.DeleteExpired(ctx, now); err != nil {
		return 0, 0, err
	}
	if tokens, err = s.tokens.DeleteExpired(ctx, now); err != nil {
		return sessions, 0, err
	}
	return sessions, tokens, nil
}

func (s *Service) findOrCreateUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, errors.NewInternalError("Failed to check user", err)
	}
	if user != nil {
		return user, nil
	}

	base := usernameFromEmail(email)
	for attempt := 0; attempt < 5; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = withSuffix(base, randomDigits(4))
		}

		taken, err := s.users.UsernameTaken(ctx, candidate, "")
		if err != nil {
			return nil, errors.NewInternalError("Failed to check username", err)
		}
		if taken {
			continue
		}

		user = &domain.User{
			Email:    email,
			Username: candidate,
			IsAdmin:  s.isAdminEmail(email),
		}
		err = s.users.Create(ctx, user)
		if err == nil {
			s.logger.WithField("user_id", user.ID).Info("User created")
			return user, nil
		}
		if !stderrors.Is(err, repository.ErrConflict) {
			return nil, errors.NewInternalError("Failed to create user", err)
		}

		// Lost a race on email or username; the email case means the user now exists
		if existing, getErr := s.users.GetByEmail(ctx, email); getErr == nil && existing != nil {
			return existing, nil
		}
	}

	return nil, errors.NewConflictError("Could not allocate a username")
}

func (s *Service) isAdminEmail(email string) bool {
	for _, admin := range s.cfg.AdminEmails {
		if strings.EqualFold(admin, email) {
			return true
		}
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var usernameUnsafe = regexp.MustCompile(`[^a-z0-9_]+`)

// usernameFromEmail derives a valid username from the email local part
func usernameFromEmail(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}
	name := usernameUnsafe.ReplaceAllString(strings.ToLower(local), "_")
	name = strings.Trim(name, "_")
	if len(name) > domain.UsernameMaxLength-5 {
		name = name[:domain.UsernameMaxLength-5]
	}
	if len(name) < domain.UsernameMinLength {
		name = "player" + name
	}
	return name
}

func withSuffix(base, suffix string) string {
	limit := domain.UsernameMaxLength - len(suffix) - 1
	if len(base) > limit {
		base = base[:limit]
	}
	return base + "_" + suffix
}

func randomDigits(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = '0' + b[i]%10
	}
	return string(b)
}

// newSessionToken returns 32 random bytes, hex encoded
func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
