package domain

import "time"

// MaxNominees is the most houseguests that can be on the block in one week
const MaxNominees = 3

// Week records one week's competition results and eviction
type Week struct {
	ID                     string    `json:"id"`
	Number                 int       `json:"week"`
	HOHCompetition         *string   `json:"hohCompetition"`
	HOHWinnerID            *string   `json:"hohWinnerId"`
	Nominees               []string  `json:"nominees"`
	POVCompetition         *string   `json:"povCompetition"`
	POVWinnerID            *string   `json:"povWinnerId"`
	POVUsed                *bool     `json:"povUsed"`
	POVRemovedNomineeID    *string   `json:"povRemovedNomineeId"`
	POVReplacementID       *string   `json:"povReplacementId"`
	BlockbusterCompetition *string   `json:"blockbusterCompetition"`
	BlockbusterWinnerID    *string   `json:"blockbusterWinnerId"`
	EvictedNomineeID       *string   `json:"evictedNomineeId"`
	EvictionVote           *string   `json:"evictionVote"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// NominatedIDs returns everyone put on the block this week: the original
// nominees plus the veto replacement, without duplicates.
func (w *Week) NominatedIDs() []string {
	out := make([]string, 0, len(w.Nominees)+1)
	seen := make(map[string]bool, len(w.Nominees)+1)
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	for _, id := range w.Nominees {
		add(id)
	}
	if w.POVReplacementID != nil {
		add(*w.POVReplacementID)
	}
	return out
}

// WeekUpdate is a partial week edit. Absent fields are untouched and null
// (or empty string) clears the column.
type WeekUpdate struct {
	HOHCompetition         Field[string]   `json:"hohCompetition"`
	HOHWinnerID            Field[string]   `json:"hohWinnerId"`
	Nominees               Field[[]string] `json:"nominees"`
	POVCompetition         Field[string]   `json:"povCompetition"`
	POVWinnerID            Field[string]   `json:"povWinnerId"`
	POVUsed                Field[bool]     `json:"povUsed"`
	POVRemovedNomineeID    Field[string]   `json:"povRemovedNomineeId"`
	POVReplacementID       Field[string]   `json:"povReplacementId"`
	BlockbusterCompetition Field[string]   `json:"blockbusterCompetition"`
	BlockbusterWinnerID    Field[string]   `json:"blockbusterWinnerId"`
	EvictedNomineeID       Field[string]   `json:"evictedNomineeId"`
	EvictionVote           Field[string]   `json:"evictionVote"`
}

// ReferencedIDs returns every houseguest id the update sets
func (u *WeekUpdate) ReferencedIDs() []string {
	var ids []string
	for _, f := range []Field[string]{
		u.HOHWinnerID, u.POVWinnerID, u.POVRemovedNomineeID,
		u.POVReplacementID, u.BlockbusterWinnerID, u.EvictedNomineeID,
	} {
		if p := f.Ptr(); p != nil && *p != "" {
			ids = append(ids, *p)
		}
	}
	if u.Nominees.Set && !u.Nominees.Null {
		for _, id := range u.Nominees.Value {
			if id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Apply merges the update into w
func (u *WeekUpdate) Apply(w *Week) {
	applyString(&w.HOHCompetition, u.HOHCompetition)
	applyString(&w.HOHWinnerID, u.HOHWinnerID)
	if u.Nominees.Set {
		w.Nominees = compactIDs(u.Nominees.Value)
	}
	applyString(&w.POVCompetition, u.POVCompetition)
	applyString(&w.POVWinnerID, u.POVWinnerID)
	if u.POVUsed.Set {
		w.POVUsed = u.POVUsed.Ptr()
	}
	applyString(&w.POVRemovedNomineeID, u.POVRemovedNomineeID)
	applyString(&w.POVReplacementID, u.POVReplacementID)
	applyString(&w.BlockbusterCompetition, u.BlockbusterCompetition)
	applyString(&w.BlockbusterWinnerID, u.BlockbusterWinnerID)
	applyString(&w.EvictedNomineeID, u.EvictedNomineeID)
	applyString(&w.EvictionVote, u.EvictionVote)
}

func applyString(dst **string, f Field[string]) {
	if !f.Set {
		return
	}
	if f.Null || f.Value == "" {
		*dst = nil
		return
	}
	v := f.Value
	*dst = &v
}

func compactIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
