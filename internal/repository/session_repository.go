package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bb-fantasy/internal/domain"
	"bb-fantasy/pkg/database"

	"github.com/jackc/pgx/v5"
)

type PgSessionRepository struct {
	db *database.PostgresDB
}

func NewSessionRepository(db *database.PostgresDB) *PgSessionRepository {
	return &PgSessionRepository{db: db}
}

// Create stores a new session
func (r *PgSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO sessions (token, user_id, expires) VALUES ($1, $2, $3) RETURNING created_at`,
		s.Token, s.UserID, s.Expires,
	).Scan(&s.CreatedAt)
	if err != nil {
		return wrapPgError(err, "create session")
	}
	return nil
}

// Get retrieves a session by token, including expired ones
func (r *PgSessionRepository) Get(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.Pool.QueryRow(ctx,
		`SELECT token, user_id, expires, created_at FROM sessions WHERE token = $1`, token,
	).Scan(&s.Token, &s.UserID, &s.Expires, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// Delete removes a session
func (r *PgSessionRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before now
func (r *PgSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

type PgVerificationTokenRepository struct {
	db *database.PostgresDB
}

func NewVerificationTokenRepository(db *database.PostgresDB) *PgVerificationTokenRepository {
	return &PgVerificationTokenRepository{db: db}
}

// Create stores a magic link token
func (r *PgVerificationTokenRepository) Create(ctx context.Context, t *domain.VerificationToken) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO verification_tokens (identifier, token, expires) VALUES ($1, $2, $3)`,
		t.Identifier, t.Token, t.Expires,
	)
	if err != nil {
		return wrapPgError(err, "create verification token")
	}
	return nil
}

// Consume deletes and returns the token, or nil if it does not exist
func (r *PgVerificationTokenRepository) Consume(ctx context.Context, token string) (*domain.VerificationToken, error) {
	var t domain.VerificationToken
	err := r.db.Pool.QueryRow(ctx,
		`DELETE FROM verification_tokens WHERE token = $1 RETURNING identifier, token, expires`, token,
	).Scan(&t.Identifier, &t.Token, &t.Expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}
	return &t, nil
}

// DeleteExpired removes tokens that expired before now
func (r *PgVerificationTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM verification_tokens WHERE expires < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired verification tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
