package domain

import "time"

// Session is a signed-in browser session
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"userId"`
	Expires   time.Time `json:"expires"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the session is no longer valid at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.Expires)
}

// VerificationToken backs a single-use magic link
type VerificationToken struct {
	Identifier string // email address
	Token      string // magic link jti
	Expires    time.Time
}

// SessionUser is the payload of GET /api/auth/session
type SessionUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	PhotoURL string `json:"photoUrl,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
}

// NewSessionUser projects u for the session endpoint
func NewSessionUser(u *User) *SessionUser {
	return &SessionUser{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		PhotoURL: u.PhotoURL,
		IsAdmin:  u.IsAdmin,
	}
}
