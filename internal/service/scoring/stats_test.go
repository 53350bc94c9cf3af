package scoring

import (
	"testing"

	"bb-fantasy/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sp(s string) *string { return &s }
func bp(b bool) *bool     { return &b }

func TestDeriveStats(t *testing.T) {
	houseguests := []*domain.Houseguest{{ID: "ava"}, {ID: "zach"}, {ID: "kelley"}, {ID: "vince"}}

	weeks := []*domain.Week{
		{
			Number:              2,
			HOHWinnerID:         sp("ava"),
			Nominees:            []string{"zach", "kelley"},
			POVWinnerID:         sp("zach"),
			POVUsed:             bp(true),
			POVRemovedNomineeID: sp("zach"),
			POVReplacementID:    sp("vince"),
			EvictedNomineeID:    sp("vince"),
			EvictionVote:        sp("6-2"),
		},
		{
			Number:              1,
			HOHWinnerID:         sp("ava"),
			Nominees:            []string{"kelley", "unknown"},
			BlockbusterWinnerID: sp("kelley"),
		},
	}

	stats := DeriveStats(houseguests, weeks)
	require.Len(t, stats, 4)

	byID := make(map[string]domain.HouseguestStats)
	for _, st := range stats {
		byID[st.HouseguestID] = st
	}

	assert.Equal(t, []int{1, 2}, byID["ava"].HOHWins)
	assert.Empty(t, byID["ava"].OnTheBlockWeeks)
	assert.Nil(t, byID["ava"].Eviction)

	assert.Equal(t, []int{2}, byID["zach"].POVWins)
	assert.Equal(t, []int{2}, byID["zach"].OnTheBlockWeeks)

	assert.Equal(t, []int{1, 2}, byID["kelley"].OnTheBlockWeeks)
	assert.Equal(t, []int{1}, byID["kelley"].BlockbusterWins)

	assert.Equal(t, []int{2}, byID["vince"].OnTheBlockWeeks)
	require.NotNil(t, byID["vince"].Eviction)
	assert.Equal(t, domain.Eviction{Week: 2, Vote: "6-2"}, *byID["vince"].Eviction)
}

func TestDeriveStats_EmptyListsNotNil(t *testing.T) {
	stats := DeriveStats([]*domain.Houseguest{{ID: "a"}}, nil)
	require.Len(t, stats, 1)
	assert.NotNil(t, stats[0].HOHWins)
	assert.NotNil(t, stats[0].POVWins)
	assert.NotNil(t, stats[0].BlockbusterWins)
	assert.NotNil(t, stats[0].OnTheBlockWeeks)
}

func TestDeriveStats_FirstEvictionWins(t *testing.T) {
	weeks := []*domain.Week{
		{Number: 5, EvictedNomineeID: sp("a")},
		{Number: 3, EvictedNomineeID: sp("a"), EvictionVote: sp("3-1")},
	}
	stats := DeriveStats([]*domain.Houseguest{{ID: "a"}}, weeks)
	require.NotNil(t, stats[0].Eviction)
	assert.Equal(t, 3, stats[0].Eviction.Week)
}

func TestDeriveStats_StaleEvictions(t *testing.T) {
	evicted := func(id string, week int) *domain.Houseguest {
		return &domain.Houseguest{ID: id, Status: domain.StatusEvicted, Eviction: &domain.Eviction{Week: week}}
	}
	weeks := []*domain.Week{
		{Number: 1, EvictedNomineeID: sp("b")},
		{Number: 2},
	}

	tests := []struct {
		name     string
		hg       *domain.Houseguest
		released []domain.EvictionRef
		clear    bool
	}{
		{"week names someone else", evicted("a", 1), nil, true},
		{"released by a week update", evicted("a", 2), []domain.EvictionRef{{HouseguestID: "a", Week: 2}}, true},
		{"released for another week", evicted("a", 2), []domain.EvictionRef{{HouseguestID: "a", Week: 1}}, false},
		{"week without an evictee", evicted("a", 2), nil, false},
		{"week not recorded", evicted("a", 7), nil, false},
		{"still active", &domain.Houseguest{ID: "a", Status: domain.StatusIn}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := DeriveStats([]*domain.Houseguest{tt.hg, {ID: "b"}}, weeks, tt.released...)
			require.Len(t, stats, 2)
			assert.Nil(t, stats[0].Eviction)
			assert.Equal(t, tt.clear, stats[0].ClearEviction)
			assert.False(t, stats[1].ClearEviction)
		})
	}
}
