package service

import (
	"context"

	"bb-fantasy/internal/domain"
)

// AuthService defines the interface for magic-link sign-in and sessions
type AuthService interface {
	// RequestMagicLink finds or creates the user and emails a sign-in link
	RequestMagicLink(ctx context.Context, email string) error

	// CompleteMagicLink consumes a link token and opens a session
	CompleteMagicLink(ctx context.Context, token string) (*domain.Session, error)

	// ResolveSession returns the user behind a session token
	ResolveSession(ctx context.Context, token string) (*domain.User, error)

	// SignOut deletes the session
	SignOut(ctx context.Context, token string) error
}

// LeagueService defines the public and player-facing league operations
type LeagueService interface {
	// ListHouseguests returns the roster with points, optionally fuzzy-filtered
	ListHouseguests(ctx context.Context, query string) ([]domain.HouseguestWithPoints, error)

	// GetHouseguest returns one houseguest with a points breakdown
	GetHouseguest(ctx context.Context, slug string) (*domain.HouseguestWithPoints, error)

	// History returns all weeks
	History(ctx context.Context, desc bool) ([]*domain.Week, error)

	// Leaderboard returns ranked standings
	Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)

	// PublicProfile returns a user's team and totals
	PublicProfile(ctx context.Context, username string) (*domain.PublicProfile, error)

	// Me returns the signed-in user with pick ids
	Me(ctx context.Context, userID string) (*domain.Me, error)

	// CompleteOnboarding sets username and photo for a new user
	CompleteOnboarding(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.User, error)

	// UpdateProfile changes username and optionally photo
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.User, error)

	// SubmitPicks stores the user's five picks
	SubmitPicks(ctx context.Context, userID string, houseguestIDs []string) error
}

// AdminService defines the interface for admin operations
type AdminService interface {
	CreateWeek(ctx context.Context) (*domain.Week, error)
	UpdateWeek(ctx context.Context, number int, update domain.WeekUpdate) (*domain.Week, error)
	UpdateHouseguest(ctx context.Context, id string, update domain.HouseguestUpdate) (*domain.Houseguest, error)
	SeedHouseguests(ctx context.Context) ([]*domain.Houseguest, error)
	Promote(ctx context.Context, email string) (*domain.User, error)
	RecomputeStats(ctx context.Context) error
}

// Mailer sends transactional email
type Mailer interface {
	SendMagicLink(ctx context.Context, to, link string) error
}

// Services aggregates all service interfaces
type Services struct {
	Auth        AuthService
	League      LeagueService
	Admin       AdminService
	RateLimiter *RateLimiter
}
