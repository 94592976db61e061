package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-change-api/internal/models"
)

func TestRankSlotsOrderAndTieBreak(t *testing.T) {
	original := classSession("s1", "fA", "R101", models.DayMonday, "09:00-10:00")
	snap := snapshotOf(t, original)

	suggestions := RankSlots(snap, nil, original, "", 3)
	require.Len(t, suggestions, 3)

	// equal scores fall back to grid order
	assert.Equal(t, models.DayTuesday, suggestions[0].Day)
	assert.Equal(t, models.TimeSlot("09:00-10:00"), suggestions[0].TimeSlot)
	assert.Equal(t, models.DayWednesday, suggestions[1].Day)
	assert.Equal(t, models.DayThursday, suggestions[2].Day)
	assert.Equal(t, suggestions[0].Score, suggestions[1].Score)
	assert.NotEmpty(t, suggestions[0].Rationale)
}

func TestRankSlotsSortedDescendingWithinBounds(t *testing.T) {
	sessions := []models.ClassSession{
		classSession("s1", "fA", "R101", models.DayMonday, "10:00-11:00"),
		classSession("s2", "fB", "R202", models.DayWednesday, "09:00-10:00"),
		classSession("s3", "fA", "R303", models.DayTuesday, "14:00-15:00", withSubject("CS500")),
	}
	snap := snapshotOf(t, sessions...)
	dir := directoryOf(nil, []models.Room{{ID: "R101", Capacity: 60}}, []models.SectionEnrollment{{Batch: "2022", Section: "A", Students: 40}})

	suggestions := RankSlots(snap, dir, sessions[0], "fA", 50)
	require.NotEmpty(t, suggestions)
	for i := 1; i < len(suggestions); i++ {
		assert.GreaterOrEqual(t, suggestions[i-1].Score, suggestions[i].Score)
	}
	for _, s := range suggestions {
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, 100.0)
		assert.False(t, s.Day == models.DayMonday && s.TimeSlot == "10:00-11:00", "original placement must not be suggested")
		assert.False(t, s.Day == models.DayTuesday && s.TimeSlot == "14:00-15:00", "faculty is busy there")
	}
}

func TestRankSlotsSkipsHighConflicts(t *testing.T) {
	original := classSession("s1", "fA", "R101", models.DayMonday, "09:00-10:00")
	sessions := append([]models.ClassSession{original}, fillRoom("R101", models.DayTuesday, models.DayWednesday, models.DayThursday, models.DayFriday, models.DaySaturday)...)
	snap := snapshotOf(t, sessions...)

	suggestions := RankSlots(snap, nil, original, "fA", 100)
	require.Len(t, suggestions, len(models.TimeSlots)-1)
	for _, s := range suggestions {
		assert.Equal(t, models.DayMonday, s.Day)
	}
	assert.Equal(t, models.TimeSlot("10:00-11:00"), suggestions[0].TimeSlot)
}

func TestRankSlotsPrefersDaySeparation(t *testing.T) {
	original := classSession("s1", "fA", "R101", models.DayMonday, "09:00-10:00")
	sibling := classSession("s2", "fC", "R202", models.DayWednesday, "11:00-12:00")
	snap := snapshotOf(t, original, sibling)

	suggestions := RankSlots(snap, nil, original, "", 100)
	scores := make(map[models.Day]float64)
	for _, s := range suggestions {
		if s.TimeSlot == "09:00-10:00" {
			scores[s.Day] = s.Score
		}
	}
	assert.Greater(t, scores[models.DayFriday], scores[models.DayThursday])
	assert.Greater(t, scores[models.DayThursday], scores[models.DayWednesday])
	assert.Equal(t, models.DayFriday, suggestions[0].Day)
}

func TestRankSlotsHasNoSideEffects(t *testing.T) {
	original := classSession("s1", "fA", "R101", models.DayMonday, "09:00-10:00")
	snap := snapshotOf(t, original)

	first := RankSlots(snap, nil, original, "fB", 5)
	second := RankSlots(snap, nil, original, "fB", 5)
	assert.Equal(t, first, second)
	got, ok := snap.Session("s1")
	require.True(t, ok)
	assert.Equal(t, original, got)
}
