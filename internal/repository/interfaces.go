package repository

import (
	"context"
	"time"

	"bb-fantasy/internal/domain"
)

// HouseguestRepository defines the interface for houseguest data operations
type HouseguestRepository interface {
	// List returns every houseguest, active first then by first name
	List(ctx context.Context) ([]*domain.Houseguest, error)

	// GetByID retrieves a houseguest by ID
	GetByID(ctx context.Context, id string) (*domain.Houseguest, error)

	// GetBySlug retrieves a houseguest by slug
	GetBySlug(ctx context.Context, slug string) (*domain.Houseguest, error)

	// Update writes the admin-editable fields of a houseguest
	Update(ctx context.Context, hg *domain.Houseguest) error

	// UpsertBySlug inserts the roster, updating names of existing slugs
	UpsertBySlug(ctx context.Context, seeds []domain.SeedHouseguest) (int, error)

	// ApplyStats stores derived win, nomination and eviction data
	ApplyStats(ctx context.Context, stats []domain.HouseguestStats) error

	// CountExisting returns how many of ids exist
	CountExisting(ctx context.Context, ids []string) (int, error)
}

// WeekRepository defines the interface for week data operations
type WeekRepository interface {
	// List returns all weeks ordered by number
	List(ctx context.Context, desc bool) ([]*domain.Week, error)

	// GetByNumber retrieves a week by its number
	GetByNumber(ctx context.Context, number int) (*domain.Week, error)

	// CreateNext creates the week after the latest one, with empty results
	CreateNext(ctx context.Context) (*domain.Week, error)

	// Update replaces the result columns of a week
	Update(ctx context.Context, week *domain.Week) error

	// CurrentWeek returns the highest week number, or 0
	CurrentWeek(ctx context.Context) (int, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Create creates a new user
	Create(ctx context.Context, user *domain.User) error

	// UpdateProfile changes username and, when non-empty, the photo
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error)

	// SetAdmin flags the user with the given email as admin
	SetAdmin(ctx context.Context, email string, isAdmin bool) (*domain.User, error)

	// UsernameTaken reports whether another user already has username
	UsernameTaken(ctx context.Context, username, excludeUserID string) (bool, error)

	// ListWithPicks returns every user with their pick ids
	ListWithPicks(ctx context.Context) ([]domain.UserWithPicks, error)
}

// PickRepository defines the interface for pick data operations
type PickRepository interface {
	// ListByUser returns the houseguest ids picked by a user
	ListByUser(ctx context.Context, userID string) ([]string, error)

	// CreateForUser stores a user's picks. Fails with ErrConflict when the
	// user already has picks.
	CreateForUser(ctx context.Context, userID string, houseguestIDs []string) error
}

// SessionRepository defines the interface for session storage
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// VerificationTokenRepository defines the interface for magic link tokens
type VerificationTokenRepository interface {
	Create(ctx context.Context, token *domain.VerificationToken) error

	// Consume deletes and returns the token, or nil if it does not exist
	Consume(ctx context.Context, token string) (*domain.VerificationToken, error)

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Houseguest        HouseguestRepository
	Week              WeekRepository
	User              UserRepository
	Pick              PickRepository
	Session           SessionRepository
	VerificationToken VerificationTokenRepository
}
