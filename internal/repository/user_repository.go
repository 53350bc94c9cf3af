package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bb-fantasy/internal/domain"
	"bb-fantasy/pkg/database"

	"github.com/jackc/pgx/v5"
)

type PgUserRepository struct {
	db *database.PostgresDB
}

func NewUserRepository(db *database.PostgresDB) *PgUserRepository {
	return &PgUserRepository{db: db}
}

const userColumns = `id, email, username, COALESCE(photo_url, ''), is_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PhotoURL,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	u, err := scanUser(r.db.Pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by ID
func (r *PgUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email = $1", strings.ToLower(strings.TrimSpace(email)))
}

// GetByUsername retrieves a user by username
func (r *PgUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "username = $1", username)
}

// Create creates a new user
func (r *PgUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	query := `
		INSERT INTO users (id, email, username, photo_url, is_admin)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PhotoURL,
		user.IsAdmin,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return wrapPgError(err, "create user")
	}
	return nil
}

// UpdateProfile changes username and, when non-empty, the photo
func (r *PgUserRepository) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	query := `
		UPDATE users
		SET username = $2, photo_url = COALESCE(NULLIF($3, ''), photo_url), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(r.db.Pool.QueryRow(ctx, query, id, update.Username, update.PhotoURL))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapPgError(err, "update profile")
	}
	return u, nil
}

// SetAdmin flags the user with the given email as admin
func (r *PgUserRepository) SetAdmin(ctx context.Context, email string, isAdmin bool) (*domain.User, error) {
	query := `
		UPDATE users SET is_admin = $2, updated_at = NOW()
		WHERE email = $1
		RETURNING ` + userColumns

	u, err := scanUser(r.db.Pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email)), isAdmin))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set admin: %w", err)
	}
	return u, nil
}

// UsernameTaken reports whether another user already has username
func (r *PgUserRepository) UsernameTaken(ctx context.Context, username, excludeUserID string) (bool, error) {
	var taken bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(username) = lower($1) AND id <> $2)`,
		username, excludeUserID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return taken, nil
}

// ListWithPicks returns every user with their pick ids
func (r *PgUserRepository) ListWithPicks(ctx context.Context) ([]domain.UserWithPicks, error) {
	query := `
		SELECT u.id, u.email, u.username, COALESCE(u.photo_url, ''), u.is_admin,
		       u.created_at, u.updated_at,
		       COALESCE(array_agg(p.houseguest_id ORDER BY p.created_at)
		                FILTER (WHERE p.houseguest_id IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN picks p ON p.user_id = u.id
		GROUP BY u.id
		ORDER BY u.username
	`

	rows, err := r.db.Reader().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []domain.UserWithPicks
	for rows.Next() {
		var u domain.UserWithPicks
		if err := rows.Scan(
			&u.ID,
			&u.Email,
			&u.Username,
			&u.PhotoURL,
			&u.IsAdmin,
			&u.CreatedAt,
			&u.UpdatedAt,
			&u.PickIDs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
