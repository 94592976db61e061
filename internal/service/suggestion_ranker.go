package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/noah-isme/timetable-change-api/internal/models"
	"github.com/noah-isme/timetable-change-api/internal/timetable"
)

// DefaultSuggestionLimit caps suggestions when the caller passes no limit.
const DefaultSuggestionLimit = 5

// Score weights, summing to 100.
const (
	weightDayGap      = 40.0
	weightProximity   = 25.0
	weightCapacityFit = 20.0
	weightClean       = 15.0

	softConflictPenalty = 5.0
)

// RankSlots scores every free grid cell for moving original to facultyID.
// Cells that would cause a high-severity conflict are skipped, as is the
// original placement itself.
func RankSlots(view timetable.View, dir *models.Directory, original models.ClassSession, facultyID string, maxResults int) []models.SlotSuggestion {
	return rankSlots(view, dir, original, facultyID, maxResults, nil)
}

type slotFilter func(day models.Day, slot models.TimeSlot) bool

func rankSlots(view timetable.View, dir *models.Directory, original models.ClassSession, facultyID string, maxResults int, allow slotFilter) []models.SlotSuggestion {
	if facultyID == "" {
		facultyID = original.FacultyID
	}
	if maxResults <= 0 {
		maxResults = DefaultSuggestionLimit
	}

	siblings := make([]models.ClassSession, 0)
	for _, s := range view.SessionsBySection(original.Batch, original.Section, original.AcademicYear) {
		if s.ID != original.ID && s.SubjectID == original.SubjectID {
			siblings = append(siblings, s)
		}
	}

	suggestions := make([]models.SlotSuggestion, 0)
	for _, day := range models.WeekDays {
		for _, slot := range models.TimeSlots {
			if day == original.DayOfWeek && slot == original.TimeSlot {
				continue
			}
			if allow != nil && !allow(day, slot) {
				continue
			}
			candidate := original
			candidate.DayOfWeek = day
			candidate.TimeSlot = slot
			candidate.FacultyID = facultyID

			conflicts := DetectConflicts(view, dir, candidate, original.ID)
			if models.HasHighSeverity(conflicts) {
				continue
			}
			suggestions = append(suggestions, scoreSlot(dir, original, candidate, siblings, conflicts))
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Day.Index() != b.Day.Index() {
			return a.Day.Index() < b.Day.Index()
		}
		return a.TimeSlot.Index() < b.TimeSlot.Index()
	})
	if len(suggestions) > maxResults {
		suggestions = suggestions[:maxResults]
	}
	return suggestions
}

func scoreSlot(dir *models.Directory, original, candidate models.ClassSession, siblings []models.ClassSession, conflicts []models.Conflict) models.SlotSuggestion {
	var reasons []string

	gapScore := weightDayGap
	if len(siblings) > 0 {
		gap := len(models.WeekDays)
		for _, s := range siblings {
			if d := absInt(s.DayOfWeek.Index() - candidate.DayOfWeek.Index()); d < gap {
				gap = d
			}
		}
		switch {
		case gap == 0:
			gapScore = 0
			reasons = append(reasons, "same day as another "+original.SubjectID+" session")
		case gap == 1:
			gapScore = weightDayGap * 0.75
			reasons = append(reasons, "1 day from nearest "+original.SubjectID+" session")
		default:
			reasons = append(reasons, fmt.Sprintf("%d days from nearest %s session", gap, original.SubjectID))
		}
	} else {
		reasons = append(reasons, "no other "+original.SubjectID+" sessions this week")
	}

	proximity := weightProximity
	if origin := original.TimeSlot.Index(); origin >= 0 && len(models.TimeSlots) > 1 {
		distance := absInt(candidate.TimeSlot.Index() - origin)
		proximity = weightProximity * (1 - float64(distance)/float64(len(models.TimeSlots)-1))
		if distance == 0 {
			reasons = append(reasons, "keeps the original time")
		}
	}

	capacityScore := weightCapacityFit / 2
	if capacity, ok := dir.RoomCapacity(candidate.RoomID); ok {
		if students, known := dir.Enrollment(candidate.Batch, candidate.Section); known {
			if capacity >= students {
				capacityScore = weightCapacityFit
				reasons = append(reasons, fmt.Sprintf("room fits %d/%d", students, capacity))
			} else {
				capacityScore = 0
			}
		}
	}

	clean := math.Max(0, weightClean-softConflictPenalty*float64(len(conflicts)))
	if len(conflicts) == 0 {
		reasons = append(reasons, "no conflicts")
	} else {
		reasons = append(reasons, fmt.Sprintf("%d minor conflict(s)", len(conflicts)))
	}

	score := math.Round((gapScore+proximity+capacityScore+clean)*100) / 100
	return models.SlotSuggestion{
		Day:       candidate.DayOfWeek,
		TimeSlot:  candidate.TimeSlot,
		Score:     score,
		Rationale: strings.Join(reasons, "; "),
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
