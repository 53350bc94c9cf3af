package scoring

import (
	"sort"

	"bb-fantasy/internal/domain"
)

// DeriveStats recomputes win, nomination and eviction lists for every
// houseguest from the week records. Ids that match no houseguest are ignored.
// Eviction is left nil for houseguests no week names as evicted.
//
// A stored eviction no week names any more is marked ClearEviction when its
// week now evicts someone else, or when released says that week used to
// evict the houseguest. Evictions set by hand on a week with no evictee
// are kept.
func DeriveStats(houseguests []*domain.Houseguest, weeks []*domain.Week, released ...domain.EvictionRef) []domain.HouseguestStats {
	stats := make(map[string]*domain.HouseguestStats, len(houseguests))
	for _, hg := range houseguests {
		stats[hg.ID] = &domain.HouseguestStats{
			HouseguestID:    hg.ID,
			HOHWins:         []int{},
			POVWins:         []int{},
			BlockbusterWins: []int{},
			OnTheBlockWeeks: []int{},
		}
	}

	ordered := make([]*domain.Week, len(weeks))
	copy(ordered, weeks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	for _, w := range ordered {
		if st := lookup(stats, w.HOHWinnerID); st != nil {
			st.HOHWins = appendWeek(st.HOHWins, w.Number)
		}
		if st := lookup(stats, w.POVWinnerID); st != nil {
			st.POVWins = appendWeek(st.POVWins, w.Number)
		}
		if st := lookup(stats, w.BlockbusterWinnerID); st != nil {
			st.BlockbusterWins = appendWeek(st.BlockbusterWins, w.Number)
		}
		for _, id := range w.NominatedIDs() {
			if st, ok := stats[id]; ok {
				st.OnTheBlockWeeks = appendWeek(st.OnTheBlockWeeks, w.Number)
			}
		}
		if st := lookup(stats, w.EvictedNomineeID); st != nil && st.Eviction == nil {
			ev := &domain.Eviction{Week: w.Number}
			if w.EvictionVote != nil {
				ev.Vote = *w.EvictionVote
			}
			st.Eviction = ev
		}
	}

	evictedBy := make(map[int]string, len(ordered))
	for _, w := range ordered {
		if w.EvictedNomineeID != nil && *w.EvictedNomineeID != "" {
			evictedBy[w.Number] = *w.EvictedNomineeID
		}
	}
	wasReleased := make(map[domain.EvictionRef]bool, len(released))
	for _, ref := range released {
		wasReleased[ref] = true
	}

	out := make([]domain.HouseguestStats, 0, len(houseguests))
	for _, hg := range houseguests {
		st := stats[hg.ID]
		if st.Eviction == nil && hg.Status == domain.StatusEvicted && hg.Eviction != nil {
			week := hg.Eviction.Week
			other, named := evictedBy[week]
			if (named && other != hg.ID) || wasReleased[domain.EvictionRef{HouseguestID: hg.ID, Week: week}] {
				st.ClearEviction = true
			}
		}
		out = append(out, *st)
	}
	return out
}

func lookup(stats map[string]*domain.HouseguestStats, id *string) *domain.HouseguestStats {
	if id == nil {
		return nil
	}
	return stats[*id]
}

func appendWeek(weeks []int, n int) []int {
	if len(weeks) > 0 && weeks[len(weeks)-1] == n {
		return weeks
	}
	return append(weeks, n)
}
