package domain

import (
	"strings"
	"time"
)

// HouseguestStatus is whether a houseguest is still in the game
type HouseguestStatus string

const (
	StatusIn      HouseguestStatus = "IN"
	StatusEvicted HouseguestStatus = "EVICTED"
)

// Valid reports whether s is a known status
func (s HouseguestStatus) Valid() bool {
	return s == StatusIn || s == StatusEvicted
}

// FinalPlacement is the end-of-season result
type FinalPlacement string

const (
	PlacementWinner   FinalPlacement = "WINNER"
	PlacementRunnerUp FinalPlacement = "RUNNER_UP"
)

// Valid reports whether p is a known placement
func (p FinalPlacement) Valid() bool {
	return p == PlacementWinner || p == PlacementRunnerUp
}

// Eviction records when and how a houseguest left
type Eviction struct {
	Week int    `json:"week"`
	Vote string `json:"vote"`
}

// Wins lists the week numbers of each competition win
type Wins struct {
	HOH         []int `json:"hoh"`
	POV         []int `json:"pov"`
	Blockbuster []int `json:"blockbuster"`
}

// Houseguest represents a cast member
type Houseguest struct {
	ID              string           `json:"id"`
	Slug            string           `json:"slug"`
	FirstName       string           `json:"firstName"`
	LastName        string           `json:"lastName"`
	PhotoURL        string           `json:"photoUrl,omitempty"`
	Bio             string           `json:"bio,omitempty"`
	Status          HouseguestStatus `json:"status"`
	Eviction        *Eviction        `json:"eviction"`
	OnTheBlockWeeks []int            `json:"onTheBlockWeeks"`
	Wins            Wins             `json:"wins"`
	FinalPlacement  *FinalPlacement  `json:"finalPlacement"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// FullName returns "First Last"
func (h *Houseguest) FullName() string {
	return strings.TrimSpace(h.FirstName + " " + h.LastName)
}

// IsActive reports whether the houseguest is still in the house
func (h *Houseguest) IsActive() bool {
	return h.Status != StatusEvicted
}

// HouseguestWithPoints is a houseguest plus its current score
type HouseguestWithPoints struct {
	Houseguest
	Points    int             `json:"points"`
	Breakdown *PointBreakdown `json:"breakdown,omitempty"`
}

// HouseguestUpdate is the admin-editable subset of a houseguest.
// Absent fields are left untouched.
type HouseguestUpdate struct {
	Bio            Field[string]           `json:"bio"`
	PhotoURL       Field[string]           `json:"photoUrl"`
	Status         Field[HouseguestStatus] `json:"status"`
	EvictionWeek   Field[int]              `json:"evictionWeek"`
	EvictionVote   Field[string]           `json:"evictionVote"`
	FinalPlacement Field[FinalPlacement]   `json:"finalPlacement"`
}

// HouseguestStats are the fields derived from week records
type HouseguestStats struct {
	HouseguestID    string
	HOHWins         []int
	POVWins         []int
	BlockbusterWins []int
	OnTheBlockWeeks []int
	// Eviction is nil when no week names this houseguest as evicted
	Eviction *Eviction
	// ClearEviction resets a stored eviction that a week no longer records
	ClearEviction bool
}

// EvictionRef names the houseguest a week used to record as evicted
type EvictionRef struct {
	HouseguestID string
	Week         int
}

// SeedHouseguest is a roster entry loaded at season start
type SeedHouseguest struct {
	Slug      string
	FirstName string
	LastName  string
	PhotoURL  string
	Bio       string
}
