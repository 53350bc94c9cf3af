// Package scoring turns houseguest results into fantasy points and standings.
package scoring

import (
	"sort"

	"bb-fantasy/internal/domain"
)

// Point values
const (
	PointsHOH          = 5
	PointsPOV          = 3
	PointsBlockbuster  = 3
	PointsNomination   = 1
	PointsWeekSurvived = 1
	PointsWinner       = 25
	PointsRunnerUp     = 10
)

// Scorer computes points. SeasonWeeks caps weekly survival for active
// houseguests; zero means uncapped.
type Scorer struct {
	SeasonWeeks int
}

// New returns a Scorer for a season of the given length
func New(seasonWeeks int) *Scorer {
	if seasonWeeks < 0 {
		seasonWeeks = 0
	}
	return &Scorer{SeasonWeeks: seasonWeeks}
}

// WeeksSurvived counts full weeks a houseguest stayed in the game.
// Evicted: every week before the eviction week. Active: every week so far.
func (s *Scorer) WeeksSurvived(hg *domain.Houseguest, currentWeek int) int {
	var weeks int
	if hg.Status == domain.StatusEvicted {
		if hg.Eviction != nil {
			weeks = hg.Eviction.Week - 1
		}
	} else {
		weeks = currentWeek
		if s.SeasonWeeks > 0 && weeks > s.SeasonWeeks {
			weeks = s.SeasonWeeks
		}
	}
	if weeks < 0 {
		return 0
	}
	return weeks
}

// Breakdown returns the per-category points of hg
func (s *Scorer) Breakdown(hg *domain.Houseguest, currentWeek int) domain.PointBreakdown {
	b := domain.PointBreakdown{
		HOH:            PointsHOH * len(hg.Wins.HOH),
		POV:            PointsPOV * len(hg.Wins.POV),
		Blockbuster:    PointsBlockbuster * len(hg.Wins.Blockbuster),
		Nominations:    PointsNomination * len(hg.OnTheBlockWeeks),
		WeeklySurvival: PointsWeekSurvived * s.WeeksSurvived(hg, currentWeek),
		Placement:      placementBonus(hg.FinalPlacement),
	}
	b.Total = b.HOH + b.POV + b.Blockbuster + b.Nominations + b.WeeklySurvival + b.Placement
	return b
}

// Points returns the total score of hg
func (s *Scorer) Points(hg *domain.Houseguest, currentWeek int) int {
	return s.Breakdown(hg, currentWeek).Total
}

func placementBonus(p *domain.FinalPlacement) int {
	if p == nil {
		return 0
	}
	switch *p {
	case domain.PlacementWinner:
		return PointsWinner
	case domain.PlacementRunnerUp:
		return PointsRunnerUp
	default:
		return 0
	}
}

// TeamTotals sums the points of the picked houseguests and counts how many
// are still in the house. Unknown ids score nothing.
func (s *Scorer) TeamTotals(pickIDs []string, roster map[string]*domain.Houseguest, currentWeek int) (total, remaining int) {
	for _, id := range pickIDs {
		hg, ok := roster[id]
		if !ok {
			continue
		}
		total += s.Points(hg, currentWeek)
		if hg.IsActive() {
			remaining++
		}
	}
	return total, remaining
}

// BuildLeaderboard ranks every user with at least one pick
func (s *Scorer) BuildLeaderboard(users []domain.UserWithPicks, roster map[string]*domain.Houseguest, currentWeek int) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		if len(u.PickIDs) == 0 {
			continue
		}
		total, remaining := s.TeamTotals(u.PickIDs, roster, currentWeek)
		entries = append(entries, domain.LeaderboardEntry{
			Username:       u.Username,
			PhotoURL:       u.PhotoURL,
			TotalPoints:    total,
			RemainingCount: remaining,
		})
	}

	SortEntries(entries)
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// SortEntries orders by points desc, remaining picks desc, then username
func SortEntries(entries []domain.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.RemainingCount != b.RemainingCount {
			return a.RemainingCount > b.RemainingCount
		}
		return a.Username < b.Username
	})
}

// Roster indexes houseguests by id
func Roster(houseguests []*domain.Houseguest) map[string]*domain.Houseguest {
	roster := make(map[string]*domain.Houseguest, len(houseguests))
	for _, hg := range houseguests {
		roster[hg.ID] = hg
	}
	return roster
}

// CurrentWeek is the highest recorded week number, or zero
func CurrentWeek(weeks []*domain.Week) int {
	current := 0
	for _, w := range weeks {
		if w.Number > current {
			current = w.Number
		}
	}
	return current
}
