package domain

import (
	"regexp"
	"time"
)

// Username length bounds
const (
	UsernameMinLength = 3
	UsernameMaxLength = 20
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidUsername reports whether name fits the length bounds and uses only
// letters, digits, underscore, dot and dash.
func ValidUsername(name string) bool {
	return len(name) >= UsernameMinLength &&
		len(name) <= UsernameMaxLength &&
		usernamePattern.MatchString(name)
}

// PicksPerUser is the number of houseguests each user drafts
const PicksPerUser = 5

// User represents a league player
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	PhotoURL  string    `json:"photoUrl,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Onboarded reports whether the user has chosen a profile photo,
// which is the last onboarding step before picks.
func (u *User) Onboarded() bool {
	return u.PhotoURL != ""
}

// Me is the signed-in user's own view
type Me struct {
	User
	Picks []string `json:"picks"`
}

// UserWithPicks pairs a user with their picked houseguest ids
type UserWithPicks struct {
	User
	PickIDs []string
}

// PublicProfile is what anyone can see about a user
type PublicProfile struct {
	Username       string                 `json:"username"`
	PhotoURL       string                 `json:"photoUrl,omitempty"`
	Houseguests    []HouseguestWithPoints `json:"houseguests"`
	TotalPoints    int                    `json:"totalPoints"`
	RemainingCount int                    `json:"remainingCount"`
}

// ProfileUpdate carries the mutable profile fields
type ProfileUpdate struct {
	Username string
	// PhotoURL is left untouched when empty
	PhotoURL string
}
