package domain

// LeaderboardEntry is one user's standing
type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	Username       string `json:"username"`
	PhotoURL       string `json:"photoUrl,omitempty"`
	TotalPoints    int    `json:"totalPoints"`
	RemainingCount int    `json:"remainingCount"`
}

// PointBreakdown splits a houseguest score by category
type PointBreakdown struct {
	HOH            int `json:"hoh"`
	POV            int `json:"pov"`
	Blockbuster    int `json:"blockbuster"`
	Nominations    int `json:"nominations"`
	WeeklySurvival int `json:"weeklySurvival"`
	Placement      int `json:"placement"`
	Total          int `json:"total"`
}
