package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/timetable-change-api/internal/models"
	"github.com/noah-isme/timetable-change-api/internal/timetable"
)

// DetectConflicts evaluates a hypothetical placement against a timetable view.
// excludeSessionID names the session being moved so it does not collide with
// itself. The result is ordered by severity, then by conflict type.
func DetectConflicts(view timetable.View, dir *models.Directory, candidate models.ClassSession, excludeSessionID string) []models.Conflict {
	conflicts := make([]models.Conflict, 0, 2)
	year := candidate.AcademicYear

	if holder, ok := view.Occupant(timetable.FacultyKey(year, candidate.FacultyID, candidate.DayOfWeek, candidate.TimeSlot)); ok && holder != excludeSessionID {
		conflicts = append(conflicts, models.Conflict{
			Type:              models.ConflictFacultyDoubleBooking,
			Severity:          models.SeverityHigh,
			Message:           fmt.Sprintf("%s already teaches at %s %s", dir.FacultyName(candidate.FacultyID), candidate.DayOfWeek, candidate.TimeSlot),
			AffectedSessionID: stringPtr(holder),
		})
	}

	if candidate.RoomID != "" {
		if holder, ok := view.Occupant(timetable.RoomKey(year, candidate.RoomID, candidate.DayOfWeek, candidate.TimeSlot)); ok && holder != excludeSessionID {
			conflicts = append(conflicts, models.Conflict{
				Type:              models.ConflictRoomDoubleBooking,
				Severity:          models.SeverityHigh,
				Message:           fmt.Sprintf("room %s is already booked at %s %s", candidate.RoomID, candidate.DayOfWeek, candidate.TimeSlot),
				AffectedSessionID: stringPtr(holder),
			})
		}
	}

	if limit := dir.MaxWeeklyHours(candidate.FacultyID); limit > 0 {
		hours := 1
		for _, s := range view.SessionsByFaculty(candidate.FacultyID, year) {
			if s.ID != excludeSessionID {
				hours++
			}
		}
		if hours > limit {
			conflicts = append(conflicts, models.Conflict{
				Type:     models.ConflictTargetFacultyOverload,
				Severity: models.SeverityMedium,
				Message:  fmt.Sprintf("%s would teach %d hours per week, limit is %d", dir.FacultyName(candidate.FacultyID), hours, limit),
			})
		}
	}

	if candidate.SubjectID != "" {
		for _, s := range view.SessionsBySection(candidate.Batch, candidate.Section, year) {
			if s.ID == excludeSessionID || s.SubjectID != candidate.SubjectID || s.DayOfWeek != candidate.DayOfWeek {
				continue
			}
			conflicts = append(conflicts, models.Conflict{
				Type:              models.ConflictSubjectDayGapViolation,
				Severity:          models.SeverityLow,
				Message:           fmt.Sprintf("%s is already scheduled for %s-%s on %s", candidate.SubjectID, candidate.Batch, candidate.Section, candidate.DayOfWeek),
				AffectedSessionID: stringPtr(s.ID),
			})
			break
		}
	}

	if capacity, ok := dir.RoomCapacity(candidate.RoomID); ok {
		if students, known := dir.Enrollment(candidate.Batch, candidate.Section); known && capacity < students {
			conflicts = append(conflicts, models.Conflict{
				Type:     models.ConflictCapacityExceeded,
				Severity: models.SeverityMedium,
				Message:  fmt.Sprintf("room %s seats %d but %s-%s has %d students", candidate.RoomID, capacity, candidate.Batch, candidate.Section, students),
			})
		}
	}

	sortConflicts(conflicts)
	return conflicts
}

func sortConflicts(conflicts []models.Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Severity.Weight() != b.Severity.Weight() {
			return a.Severity.Weight() > b.Severity.Weight()
		}
		return a.Type.Rank() < b.Type.Rank()
	})
}

// NewValidationReport assembles a report for the given conflicts.
func NewValidationReport(conflicts []models.Conflict, suggestions []models.SlotSuggestion, at time.Time) *models.ValidationReport {
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	if suggestions == nil {
		suggestions = []models.SlotSuggestion{}
	}
	return &models.ValidationReport{
		Conflicts:      conflicts,
		Suggestions:    suggestions,
		Recommendation: models.RecommendationFor(conflicts),
		GeneratedAt:    at.UTC(),
	}
}

func stringPtr(v string) *string {
	return &v
}
